package metric

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		scores []float64
		want   float64
	}{
		{
			name:   "perfect ranking",
			labels: []float64{1, 0, 0},
			scores: []float64{0.9, 0.5, 0.1},
			want:   1.0,
		},
		{
			name:   "inverted ranking",
			labels: []float64{1, 0},
			scores: []float64{0.1, 0.9},
			want:   0.0,
		},
		{
			name:   "tied scores",
			labels: []float64{1, 0},
			scores: []float64{0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "all positives is degenerate",
			labels: []float64{1, 1},
			scores: []float64{0.3, 0.7},
			want:   0.5,
		},
		{
			name:   "one of two pairs correct",
			labels: []float64{1, 0, 0},
			scores: []float64{0.5, 0.9, 0.1},
			want:   0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AUC{}.Compute(tt.labels, tt.scores)
			if !almostEqual(got, tt.want) {
				t.Errorf("AUC = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupAUC(t *testing.T) {
	labels := [][]float64{{1, 0}, {0, 1}}
	scores := [][]float64{{0.9, 0.1}, {0.9, 0.1}}
	// 第一组 1.0，第二组 0.0，均值 0.5
	if got := GroupAUC(labels, scores); !almostEqual(got, 0.5) {
		t.Errorf("GroupAUC = %v, want 0.5", got)
	}
}

func TestMRR(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		scores []float64
		want   float64
	}{
		{
			name:   "positive ranked first",
			labels: []float64{1, 0, 0},
			scores: []float64{0.9, 0.5, 0.1},
			want:   1.0,
		},
		{
			name:   "positive ranked third",
			labels: []float64{1, 0, 0},
			scores: []float64{0.1, 0.9, 0.5},
			want:   1.0 / 3,
		},
		{
			name:   "two positives at rank 1 and 3",
			labels: []float64{1, 0, 1},
			scores: []float64{0.9, 0.5, 0.1},
			want:   (1.0 + 1.0/3) / 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MRR{}.Compute(tt.labels, tt.scores)
			if !almostEqual(got, tt.want) {
				t.Errorf("MRR = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNDCG(t *testing.T) {
	// 正样本排第二：DCG = 1/log2(3)，IDCG = 1/log2(2)
	labels := []float64{0, 1, 0}
	scores := []float64{0.9, 0.5, 0.1}
	want := (1 / math.Log2(3)) / (1 / math.Log2(2))
	if got := (NDCG{K: 5}).Compute(labels, scores); !almostEqual(got, want) {
		t.Errorf("NDCG@5 = %v, want %v", got, want)
	}

	// K 截断：正样本排在 K 之外时 DCG 为 0
	labels = []float64{0, 0, 1}
	scores = []float64{0.9, 0.5, 0.1}
	if got := (NDCG{K: 2}).Compute(labels, scores); !almostEqual(got, 0) {
		t.Errorf("NDCG@2 = %v, want 0", got)
	}
}

func TestAccuracy(t *testing.T) {
	labels := []float64{1, 0, 1, 0}
	scores := []float64{0.9, 0.1, 0.2, 0.8}
	if got := (Accuracy{}).Compute(labels, scores); !almostEqual(got, 0.5) {
		t.Errorf("Accuracy = %v, want 0.5", got)
	}
}

func TestResolve(t *testing.T) {
	funcs, err := Resolve([]string{"group_auc", "mean_mrr", "ndcg_5", "ndcg_10", "accuracy"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(funcs) != 5 {
		t.Fatalf("got %d metric funcs, want 5", len(funcs))
	}
	wantNames := []string{"group_auc", "mean_mrr", "ndcg_5", "ndcg_10", "accuracy"}
	for i, f := range funcs {
		if f.Name() != wantNames[i] {
			t.Errorf("funcs[%d].Name() = %q, want %q", i, f.Name(), wantNames[i])
		}
	}

	if _, err := Resolve([]string{"nope"}); err == nil {
		t.Fatal("Resolve with unknown name should fail")
	}
}
