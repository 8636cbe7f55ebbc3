package trainer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/mindrs/core"
)

// WeightDump 是诊断用注意力权重产物：
// 字段名 -> 逐 impression 的有序序列。
// 与磁盘上已有 dump 的合并是纯粹的逐字段拼接。
type WeightDump map[string][][]float64

// WeightCapture 在验证过程中采集诊断权重，达到条数上限后停止。
// 上限只约束采集，不约束后续合并。
type WeightCapture struct {
	limit int
	dump  WeightDump
	count int
}

// NewWeightCapture 创建采集器。limit <= 0 表示不采集。
func NewWeightCapture(limit int) *WeightCapture {
	return &WeightCapture{limit: limit, dump: make(WeightDump)}
}

// Full 返回是否已达上限。
func (c *WeightCapture) Full() bool {
	return c.limit <= 0 || c.count >= c.limit
}

// Add 从一个验证 batch 采集：索引、截断后的标签/候选/历史/分数、
// 逐 impression 的指标行（results，按训练器的指标顺序），
// 以及所有名字含 "weight" 的注意力输出。
// 名字含 "candidate" 的权重按候选长度截断，否则按历史长度截断。
func (c *WeightCapture) Add(batch *core.Batch, out *core.Output, results [][]float64) {
	n := batch.Size()
	for i := 0; i < n && !c.Full(); i++ {
		cl := batch.CandidateLength[i]
		hl := batch.HistoryLength[i]

		c.append("impression_index", []float64{float64(batch.ImpressionIndex[i])})
		c.append("label", truncCopy(batch.Label[i], cl))
		c.append("pred_score", truncCopy(out.Pred[i], cl))
		c.append("candidate_index", intsToFloats(batch.CandidateIndex[i], cl))
		c.append("history_index", intsToFloats(batch.HistoryIndex[i], hl))
		if i < len(results) {
			c.append("results", truncCopy(results[i], len(results[i])))
		}
		for name, rows := range out.Weights {
			if !strings.Contains(name, "weight") {
				continue
			}
			limit := hl
			if strings.Contains(name, "candidate") {
				limit = cl
			}
			c.append(name, truncCopy(rows[i], limit))
		}
		c.count++
	}
}

func (c *WeightCapture) append(field string, row []float64) {
	c.dump[field] = append(c.dump[field], row)
}

// Dump 返回采集结果。
func (c *WeightCapture) Dump() WeightDump { return c.dump }

// Count 返回已采集的 impression 数。
func (c *WeightCapture) Count() int { return c.count }

func truncCopy(row []float64, n int) []float64 {
	if n > len(row) {
		n = len(row)
	}
	out := make([]float64, n)
	copy(out, row[:n])
	return out
}

func intsToFloats(row []int, n int) []float64 {
	if n > len(row) {
		n = len(row)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(row[i])
	}
	return out
}

// MergeWeightDump 逐字段拼接两份 dump，prior 在前。
func MergeWeightDump(prior, next WeightDump) WeightDump {
	out := make(WeightDump, len(prior)+len(next))
	for field, rows := range prior {
		out[field] = append(out[field], rows...)
	}
	for field, rows := range next {
		out[field] = append(out[field], rows...)
	}
	return out
}

// DumpPath 返回权重产物路径：<modelDir>/weight/<headNum>.pt。
func DumpPath(modelDir string, headNum int) string {
	return filepath.Join(modelDir, "weight", fmt.Sprintf("%d.pt", headNum))
}

// LoadWeightDump 读取磁盘上的 dump；文件不存在时返回空 dump。
func LoadWeightDump(path string) (WeightDump, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return make(WeightDump), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open weight dump: %w", err)
	}
	defer f.Close()
	var dump WeightDump
	if err := gob.NewDecoder(f).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decode weight dump %s: %w", path, err)
	}
	return dump, nil
}

// SaveWeightDump 覆盖写入 dump（只允许协调进程调用）。
func SaveWeightDump(path string, dump WeightDump) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create weight dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weight dump: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		return fmt.Errorf("encode weight dump: %w", err)
	}
	return f.Close()
}
