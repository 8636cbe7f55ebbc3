package core

import (
	"reflect"
	"sort"
	"testing"
)

func alignedBatch() *Batch {
	return &Batch{
		Label:           [][]float64{{1, 0}},
		CandidateNews:   [][][]int{{{1}, {2}}},
		HistoryNews:     [][][]int{{{3}}},
		UID:             []int{0},
		HistoryLength:   []int{1},
		CandidateLength: []int{2},
		ImpressionIndex: []int{0},
		CandidateIndex:  [][]int{{1, 2}},
		HistoryIndex:    [][]int{{3}},
	}
}

func TestBatchValidate(t *testing.T) {
	if err := alignedBatch().Validate(); err != nil {
		t.Fatalf("Validate(aligned) = %v", err)
	}

	misaligned := alignedBatch()
	misaligned.UID = []int{0, 1}
	if err := misaligned.Validate(); err == nil {
		t.Error("misaligned leading dim, want error")
	}

	overLength := alignedBatch()
	overLength.CandidateLength = []int{3}
	if err := overLength.Validate(); err == nil {
		t.Error("candidate_length beyond padding, want error")
	}

	overHistory := alignedBatch()
	overHistory.HistoryLength = []int{2}
	if err := overHistory.Validate(); err == nil {
		t.Error("history_length beyond padding, want error")
	}
}

func TestBatchCopyLabels(t *testing.T) {
	b := alignedBatch()
	snapshot := b.CopyLabels()
	b.Label[0][0] = 0

	if snapshot[0][0] != 1 {
		t.Error("CopyLabels must be a deep copy")
	}
}

func TestResultTableMerge(t *testing.T) {
	r := ResultTable{1: {"auc": 60}}
	r.Merge(ResultTable{2: {"auc": 80, "mrr": 40}})

	if len(r) != 2 || r[2]["mrr"] != 40 {
		t.Errorf("merged table = %v", r)
	}

	cols := r.Columns()
	sort.Strings(cols)
	if !reflect.DeepEqual(cols, []string{"auc", "mrr"}) {
		t.Errorf("Columns() = %v", cols)
	}
}

func TestEnumValidate(t *testing.T) {
	valid := []interface{ Validate() error }{
		TopicVariantBase, TopicVariantVariational,
		ValidMethodFast, ValidMethodSlow,
		TrainStrategyPairWise, TrainStrategyPointWise,
		UserEmbedNone, UserEmbedInit, UserEmbedCat,
		EntropyModeStatic, EntropyModeDynamic,
	}
	for _, v := range valid {
		if err := v.Validate(); err != nil {
			t.Errorf("Validate(%v) = %v", v, err)
		}
	}

	invalid := []interface{ Validate() error }{
		TopicVariant("topical"),
		ValidMethod("medium"),
		TrainStrategy("list_wise"),
		UserEmbedMethod("concat"),
		EntropyMode("auto"),
	}
	for _, v := range invalid {
		if err := v.Validate(); err == nil {
			t.Errorf("Validate(%v) = nil, want error", v)
		}
	}
}
