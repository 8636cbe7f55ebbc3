package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDict 读取 JSON 词典文件（word/uid -> index）。
// 词典由离线工具产出，索引从 1 开始，0 保留给 padding/UNK。
func LoadDict(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dict file: %w", err)
	}
	var dict map[string]int
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse dict file %s: %w", path, err)
	}
	return dict, nil
}
