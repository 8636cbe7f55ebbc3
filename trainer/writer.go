package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ScalarWriter 把标量指标落到 JSONL 文件，供离线作图/比对。
// 并发安全：训练日志与验证日志可能交叉写入。
type ScalarWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

type scalarRecord struct {
	Tag   string  `json:"tag"`
	Value float64 `json:"value"`
	Step  int     `json:"step"`
	Time  string  `json:"time"`
}

// NewScalarWriter 以追加模式打开标量日志文件。
func NewScalarWriter(path string) (*ScalarWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create scalar log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open scalar log: %w", err)
	}
	return &ScalarWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// AddScalar 写入一条标量记录。
func (w *ScalarWriter) AddScalar(tag string, value float64, step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(scalarRecord{
		Tag:   tag,
		Value: value,
		Step:  step,
		Time:  time.Now().Format(time.RFC3339),
	})
}

// Close 关闭底层文件。
func (w *ScalarWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
