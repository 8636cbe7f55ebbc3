package dataset

import (
	"reflect"
	"testing"

	"github.com/rushteam/mindrs/core"
)

func TestImpressionDatasetPadding(t *testing.T) {
	c := loadTestCorpus(t)
	ds, err := NewImpressionDataset(c, nil, ImpressionOptions{BatchSize: 8, HistoryLen: 3})
	if err != nil {
		t.Fatalf("NewImpressionDataset: %v", err)
	}

	// 只收带标签的曝光：b0、b1、b3
	if got := ds.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	batch, ok := ds.Next()
	if !ok {
		t.Fatal("Next() = false")
	}
	if err := batch.Validate(); err != nil {
		t.Fatalf("batch.Validate: %v", err)
	}
	if batch.Size() != 3 {
		t.Fatalf("batch.Size() = %d, want 3", batch.Size())
	}
	if !reflect.DeepEqual(batch.ImpressionIndex, []int{0, 1, 3}) {
		t.Fatalf("ImpressionIndex = %v", batch.ImpressionIndex)
	}

	// 候选 padding 到 batch 内最大长度 3，真实长度单独记录
	if !reflect.DeepEqual(batch.CandidateLength, []int{2, 2, 3}) {
		t.Errorf("CandidateLength = %v, want [2 2 3]", batch.CandidateLength)
	}
	n3, n4 := c.NewsIndex["N3"], c.NewsIndex["N4"]
	if !reflect.DeepEqual(batch.CandidateIndex[0], []int{n3, n4, 0}) {
		t.Errorf("CandidateIndex[0] = %v, want [%d %d 0]", batch.CandidateIndex[0], n3, n4)
	}
	if !reflect.DeepEqual(batch.Label[0], []float64{1, 0, 0}) {
		t.Errorf("Label[0] = %v, want [1 0 0]", batch.Label[0])
	}
	// 空历史退化为一条 padding 新闻
	if got := batch.HistoryLength[1]; got != 1 {
		t.Errorf("HistoryLength[1] = %d, want 1", got)
	}
	if batch.CandidateEmbeds != nil {
		t.Error("slow path must not attach embeds")
	}

	if _, ok := ds.Next(); ok {
		t.Error("Next() after exhaustion, want false")
	}
	ds.Reset()
	if _, ok := ds.Next(); !ok {
		t.Error("Next() after Reset, want a batch")
	}
}

func TestImpressionDatasetAttachEmbeds(t *testing.T) {
	c := loadTestCorpus(t)
	cache := core.NewsEmbeddingCache{
		1: {1, 0}, 2: {0.5, 0}, 3: {0.25, 0}, 4: {0.125, 0},
	}
	ds, err := NewImpressionDataset(c, cache, ImpressionOptions{BatchSize: 8, HistoryLen: 3})
	if err != nil {
		t.Fatalf("NewImpressionDataset: %v", err)
	}
	batch, _ := ds.Next()
	if batch.CandidateEmbeds == nil || batch.HistoryEmbeds == nil {
		t.Fatal("fast path must attach embeds")
	}

	n3 := c.NewsIndex["N3"]
	if !reflect.DeepEqual(batch.CandidateEmbeds[0][0], cache[n3]) {
		t.Errorf("CandidateEmbeds[0][0] = %v, want %v", batch.CandidateEmbeds[0][0], cache[n3])
	}
	// padding 位置是零向量
	if !reflect.DeepEqual(batch.CandidateEmbeds[0][2], []float64{0, 0}) {
		t.Errorf("padding embed = %v, want zeros", batch.CandidateEmbeds[0][2])
	}
	if got := len(batch.HistoryEmbeds[0]); got != 3 {
		t.Errorf("len(HistoryEmbeds[0]) = %d, want padded history length", got)
	}
}

func TestImpressionDatasetSelectedImp(t *testing.T) {
	c := loadTestCorpus(t)
	ds, err := NewImpressionDataset(c, nil, ImpressionOptions{
		BatchSize:   8,
		SelectedImp: "impression_index < 1",
	})
	if err != nil {
		t.Fatalf("NewImpressionDataset: %v", err)
	}
	batch, ok := ds.Next()
	if !ok || batch.Size() != 1 || batch.ImpressionIndex[0] != 0 {
		t.Fatalf("filtered batch = %+v, want single impression 0", batch)
	}

	if _, err := NewImpressionDataset(c, nil, ImpressionOptions{SelectedImp: "impression_index <"}); err == nil {
		t.Error("malformed selected_imp, want error")
	}
}

func TestNewsLoader(t *testing.T) {
	c := loadTestCorpus(t)
	nl := NewNewsLoader(c, 3)

	if got := nl.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	first, ok := nl.Next()
	if !ok || !reflect.DeepEqual(first.Index, []int{1, 2, 3}) {
		t.Fatalf("first batch index = %v, want [1 2 3]", first.Index)
	}
	if !reflect.DeepEqual(first.Tokens[0], c.NewsTokens[1]) {
		t.Errorf("tokens misaligned with index")
	}
	second, ok := nl.Next()
	if !ok || !reflect.DeepEqual(second.Index, []int{4}) {
		t.Fatalf("second batch index = %v, want [4]", second.Index)
	}
	if _, ok := nl.Next(); ok {
		t.Error("Next() after exhaustion, want false")
	}
	nl.Reset()
	if batch, ok := nl.Next(); !ok || batch.Index[0] != 1 {
		t.Error("Reset must skip the padding news again")
	}
}
