package embedding

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/store"
)

func TestStoreProviderRoundTrip(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()
	p := NewStoreProvider(ms, 1)
	ctx := context.Background()

	if err := p.Publish(ctx, core.NewsEmbeddingCache{1: {0.5}, 2: {1.5}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := p.BatchGet(ctx, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	want := map[int][]float64{1: {0.5}, 2: {1.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BatchGet = %v, want %v (missing index skipped)", got, want)
	}
}

func TestPrecomputePublishBack(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()
	p := NewStoreProvider(ms, 1)
	ctx := context.Background()

	// 首轮：全部新闻走编码，结果回写进存储
	first := &stubEncoder{}
	cache, err := PrecomputeNewsEmbeddings(ctx, first, newsLoader(), PrecomputeOptions{Provider: p})
	if err != nil {
		t.Fatalf("PrecomputeNewsEmbeddings: %v", err)
	}
	if first.encoded != 3 {
		t.Fatalf("encoded = %d news, want 3", first.encoded)
	}

	// 次轮：提供方全部命中，编码器不再被调用
	second := &stubEncoder{}
	again, err := PrecomputeNewsEmbeddings(ctx, second, newsLoader(), PrecomputeOptions{Provider: p})
	if err != nil {
		t.Fatalf("PrecomputeNewsEmbeddings: %v", err)
	}
	if second.encoded != 0 {
		t.Errorf("encoded = %d news, want 0 (all served by provider)", second.encoded)
	}
	if !reflect.DeepEqual(again, cache) {
		t.Errorf("second cache = %v, want %v", again, cache)
	}
}
