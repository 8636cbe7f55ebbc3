package store

import "github.com/rushteam/mindrs/core"

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store 和 core.KeyValueStore 接口。
//
// 示例：
//   var store core.Store = NewMemoryStore()
//   var kvStore core.KeyValueStore = NewMemoryStore()

// ErrNotFound 是 key 不存在的统一错误（别名，方便包内使用）。
var ErrNotFound = core.ErrStoreNotFound

// ErrNotSupported 是操作不支持的统一错误。
var ErrNotSupported = core.ErrStoreNotSupported

// 类型别名：包内实现直接引用领域接口。
type Store = core.Store
type KeyValueStore = core.KeyValueStore
