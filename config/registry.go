package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/model"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/mindrs/config/builders"
// 以触发内置构建器（optimizer.adam、optimizer.sgd、store.memory、store.redis）的 init 注册。

// OptimizerBuilder 根据配置为一组参数构建优化器。
type OptimizerBuilder func(params []*core.Param, cfg map[string]any) (model.Optimizer, error)

// StoreBuilder 根据配置构建跨进程汇总使用的 KV 存储。
type StoreBuilder func(cfg map[string]any) (core.KeyValueStore, error)

var (
	optimizerBuilders = make(map[string]OptimizerBuilder)
	storeBuilders     = make(map[string]StoreBuilder)
	buildersMu        sync.RWMutex
)

// RegisterOptimizer 注册一种优化器的构建逻辑。
// 建议在构建器包的 init 中调用。
func RegisterOptimizer(name string, builder OptimizerBuilder) {
	if name == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	optimizerBuilders[name] = builder
}

// RegisterStore 注册一种存储后端的构建逻辑。
func RegisterStore(name string, builder StoreBuilder) {
	if name == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	storeBuilders[name] = builder
}

// BuildOptimizer 按名字构建优化器；未注册的名字是构造期错误。
func BuildOptimizer(name string, params []*core.Param, cfg map[string]any) (model.Optimizer, error) {
	buildersMu.RLock()
	builder, ok := optimizerBuilders[name]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported optimizer %q (supported: %v)", name, SupportedOptimizers())
	}
	return builder(params, cfg)
}

// BuildStore 按名字构建存储后端。
func BuildStore(name string, cfg map[string]any) (core.KeyValueStore, error) {
	buildersMu.RLock()
	builder, ok := storeBuilders[name]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store %q (supported: %v)", name, SupportedStores())
	}
	return builder(cfg)
}

// SupportedOptimizers 返回已注册的优化器名（排序），用于错误提示。
func SupportedOptimizers() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	names := make([]string, 0, len(optimizerBuilders))
	for n := range optimizerBuilders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SupportedStores 返回已注册的存储后端名（排序）。
func SupportedStores() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	names := make([]string, 0, len(storeBuilders))
	for n := range storeBuilders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
