package config

import (
	"errors"
	"testing"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/model"
	"github.com/rushteam/mindrs/pkg/conv"
)

func TestOptimizerRegistry(t *testing.T) {
	var gotLR float64
	RegisterOptimizer("stub", func(params []*core.Param, cfg map[string]any) (model.Optimizer, error) {
		gotLR = conv.ConfigGet(cfg, "learning_rate", 0.0)
		return model.NewSGD(params, gotLR, 0), nil
	})

	opt, err := BuildOptimizer("stub", nil, map[string]any{"learning_rate": 0.01})
	if err != nil {
		t.Fatalf("BuildOptimizer: %v", err)
	}
	if opt == nil || gotLR != 0.01 {
		t.Errorf("builder got learning_rate %v, want 0.01", gotLR)
	}

	if _, err := BuildOptimizer("nadam", nil, nil); err == nil {
		t.Error("unregistered optimizer, want error")
	}

	found := false
	for _, name := range SupportedOptimizers() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("SupportedOptimizers() = %v, want to contain stub", SupportedOptimizers())
	}
}

func TestStoreRegistry(t *testing.T) {
	wantErr := errors.New("no backend")
	RegisterStore("broken", func(cfg map[string]any) (core.KeyValueStore, error) {
		return nil, wantErr
	})

	if _, err := BuildStore("broken", nil); !errors.Is(err, wantErr) {
		t.Errorf("BuildStore(broken) = %v, want builder error", err)
	}
	if _, err := BuildStore("etcd", nil); err == nil {
		t.Error("unregistered store, want error")
	}

	// 空名字/空构建器注册被忽略
	RegisterStore("", func(map[string]any) (core.KeyValueStore, error) { return nil, nil })
	RegisterOptimizer("noop", nil)
	for _, name := range SupportedStores() {
		if name == "" {
			t.Error("empty store name must not be registered")
		}
	}
}
