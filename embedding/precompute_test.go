package embedding

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rushteam/mindrs/core"
)

// stubEncoder 的新闻向量 = 首 token 的一维向量，便于核对。
type stubEncoder struct {
	mu      sync.Mutex
	encoded int
	err     error
}

func (e *stubEncoder) EncodeNews(tokens [][]int) ([][]float64, error) {
	e.mu.Lock()
	e.encoded += len(tokens)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(tokens))
	for i, row := range tokens {
		out[i] = []float64{float64(row[0])}
	}
	return out, nil
}

func (e *stubEncoder) ScoreWithEmbeds(*core.Batch) (*core.Output, error) {
	return nil, errors.New("not used")
}

// sliceNewsIter 按固定 batch 切片产出新闻。
type sliceNewsIter struct {
	batches []*core.NewsBatch
	cursor  int
}

func (it *sliceNewsIter) Len() int { return len(it.batches) }
func (it *sliceNewsIter) Reset()   { it.cursor = 0 }
func (it *sliceNewsIter) Next() (*core.NewsBatch, bool) {
	if it.cursor >= len(it.batches) {
		return nil, false
	}
	b := it.batches[it.cursor]
	it.cursor++
	return b, true
}

func newsLoader() *sliceNewsIter {
	return &sliceNewsIter{batches: []*core.NewsBatch{
		{Index: []int{1, 2}, Tokens: [][]int{{10, 0}, {20, 0}}},
		{Index: []int{3}, Tokens: [][]int{{30, 0}}},
	}}
}

func TestPrecomputeNewsEmbeddings(t *testing.T) {
	enc := &stubEncoder{}
	cache, err := PrecomputeNewsEmbeddings(context.Background(), enc, newsLoader(),
		PrecomputeOptions{MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("PrecomputeNewsEmbeddings: %v", err)
	}
	want := core.NewsEmbeddingCache{1: {10}, 2: {20}, 3: {30}}
	if !reflect.DeepEqual(cache, want) {
		t.Errorf("cache = %v, want %v", cache, want)
	}
}

func TestPrecomputeProviderHits(t *testing.T) {
	enc := &stubEncoder{}
	provider := NewMemoryProvider(map[int][]float64{2: {42}}, 1)
	cache, err := PrecomputeNewsEmbeddings(context.Background(), enc, newsLoader(),
		PrecomputeOptions{Provider: provider})
	if err != nil {
		t.Fatalf("PrecomputeNewsEmbeddings: %v", err)
	}

	// 提供方命中的新闻不再编码
	if !reflect.DeepEqual(cache[2], []float64{42}) {
		t.Errorf("cache[2] = %v, want provider vector", cache[2])
	}
	if !reflect.DeepEqual(cache[1], []float64{10}) {
		t.Errorf("cache[1] = %v, want encoded vector", cache[1])
	}
	if enc.encoded != 2 {
		t.Errorf("encoded = %d news, want 2 (one served by provider)", enc.encoded)
	}
}

func TestPrecomputeEncodeError(t *testing.T) {
	enc := &stubEncoder{err: errors.New("encode failed")}
	cache, err := PrecomputeNewsEmbeddings(context.Background(), enc, newsLoader(), PrecomputeOptions{})
	if err == nil {
		t.Fatal("encoder error must fail the precompute")
	}
	if cache != nil {
		t.Errorf("cache = %v, want nil on failure", cache)
	}
}
