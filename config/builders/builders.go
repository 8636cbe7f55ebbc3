// Package builders 通过 init 注册内置的优化器与存储构建器。
// 入口处以 import _ 方式引入。
package builders

import (
	"github.com/rushteam/mindrs/config"
	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/model"
	"github.com/rushteam/mindrs/pkg/conv"
	"github.com/rushteam/mindrs/store"
)

func init() {
	config.RegisterOptimizer("adam", BuildAdam)
	config.RegisterOptimizer("sgd", BuildSGD)
	config.RegisterStore("memory", BuildMemoryStore)
	config.RegisterStore("redis", BuildRedisStore)
}

// BuildAdam 构建 Adam 优化器。
func BuildAdam(params []*core.Param, cfg map[string]any) (model.Optimizer, error) {
	lr := conv.ConfigGetFloat64(cfg, "learning_rate", 1e-3)
	clip := conv.ConfigGetFloat64(cfg, "clip_value", 0)
	return model.NewAdam(params, lr, clip), nil
}

// BuildSGD 构建 SGD 优化器。
func BuildSGD(params []*core.Param, cfg map[string]any) (model.Optimizer, error) {
	lr := conv.ConfigGetFloat64(cfg, "learning_rate", 1e-2)
	momentum := conv.ConfigGetFloat64(cfg, "momentum", 0)
	return model.NewSGD(params, lr, momentum), nil
}

// BuildMemoryStore 构建进程内存储（单进程场景）。
func BuildMemoryStore(_ map[string]any) (core.KeyValueStore, error) {
	return store.NewMemoryStore(), nil
}

// BuildRedisStore 构建 Redis 存储（多进程结果汇总）。
func BuildRedisStore(cfg map[string]any) (core.KeyValueStore, error) {
	addr := conv.ConfigGet(cfg, "addr", "127.0.0.1:6379")
	db := int(conv.ConfigGetInt64(cfg, "db", 0))
	return store.NewRedisStore(addr, db)
}
