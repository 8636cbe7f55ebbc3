package embedding

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// WordEmbedding 是按 token id 索引的词向量矩阵（模型 embedding 层的初始权重）。
// 约定第 0 行是 padding token，恒为零向量。
type WordEmbedding struct {
	// Dim 向量维度
	Dim int

	// Matrix 词向量矩阵，Matrix[tokenID] = vector
	Matrix [][]float64
}

// LoadGlove 读取 GloVe 文本格式（"word v1 v2 ..."），
// 按词典对齐为 token id 索引的矩阵。
//
// 词典外的 GloVe 词被跳过；词典内没有 GloVe 向量的词用零向量。
func LoadGlove(path string, wordDict map[string]int, dim int) (*WordEmbedding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open glove file: %w", err)
	}
	defer f.Close()

	size := len(wordDict) + 1
	matrix := make([][]float64, size)
	for i := range matrix {
		matrix[i] = make([]float64, dim)
	}

	scanner := bufio.NewScanner(f)
	// GloVe 行可能超过默认缓冲
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("glove line %d: got %d fields, expect %d", lineNo, len(fields), dim+1)
		}
		id, ok := wordDict[fields[0]]
		if !ok || id <= 0 || id >= size {
			continue
		}
		vec := matrix[id]
		for d := 0; d < dim; d++ {
			v, err := strconv.ParseFloat(fields[d+1], 64)
			if err != nil {
				return nil, fmt.Errorf("glove line %d dim %d: %w", lineNo, d, err)
			}
			vec[d] = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan glove file: %w", err)
	}
	return &WordEmbedding{Dim: dim, Matrix: matrix}, nil
}

// RandomInit 随机初始化词向量（embedding_type = "init" 的场景）。
// 使用 Xavier 尺度的均匀分布；第 0 行保持零向量（padding）。
func RandomInit(vocabSize, dim int, rng *rand.Rand) *WordEmbedding {
	scale := math.Sqrt(6.0 / float64(vocabSize+dim))
	matrix := make([][]float64, vocabSize+1)
	matrix[0] = make([]float64, dim)
	for i := 1; i <= vocabSize; i++ {
		row := make([]float64, dim)
		for d := range row {
			row[d] = (rng.Float64()*2 - 1) * scale
		}
		matrix[i] = row
	}
	return &WordEmbedding{Dim: dim, Matrix: matrix}
}

// Lookup 返回 token id 的向量；越界返回零向量。
func (w *WordEmbedding) Lookup(id int) []float64 {
	if id < 0 || id >= len(w.Matrix) {
		return make([]float64, w.Dim)
	}
	return w.Matrix[id]
}
