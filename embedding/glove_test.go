package embedding

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeGlove(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glove.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGlove(t *testing.T) {
	path := writeGlove(t, "alpha 1.0 2.0\nbeta -0.5 0.25\nomega 9 9\n")
	dict := map[string]int{"alpha": 1, "beta": 2, "gamma": 3}

	we, err := LoadGlove(path, dict, 2)
	if err != nil {
		t.Fatalf("LoadGlove: %v", err)
	}
	if len(we.Matrix) != 4 {
		t.Fatalf("matrix rows = %d, want len(dict)+1", len(we.Matrix))
	}
	if !reflect.DeepEqual(we.Matrix[0], []float64{0, 0}) {
		t.Errorf("padding row = %v, want zeros", we.Matrix[0])
	}
	if !reflect.DeepEqual(we.Matrix[1], []float64{1, 2}) {
		t.Errorf("alpha = %v", we.Matrix[1])
	}
	if !reflect.DeepEqual(we.Matrix[2], []float64{-0.5, 0.25}) {
		t.Errorf("beta = %v", we.Matrix[2])
	}
	// 词典内但 GloVe 缺失的词保持零向量
	if !reflect.DeepEqual(we.Matrix[3], []float64{0, 0}) {
		t.Errorf("gamma = %v, want zeros", we.Matrix[3])
	}
}

func TestLoadGloveMalformed(t *testing.T) {
	dict := map[string]int{"alpha": 1}

	if _, err := LoadGlove(writeGlove(t, "alpha 1.0\n"), dict, 2); err == nil {
		t.Error("dim mismatch, want error")
	}
	if _, err := LoadGlove(writeGlove(t, "alpha x y\n"), dict, 2); err == nil {
		t.Error("non-numeric value, want error")
	}
	if _, err := LoadGlove(filepath.Join(t.TempDir(), "missing.txt"), dict, 2); err == nil {
		t.Error("missing file, want error")
	}
}

func TestRandomInit(t *testing.T) {
	we := RandomInit(5, 3, rand.New(rand.NewSource(1)))

	if len(we.Matrix) != 6 || we.Dim != 3 {
		t.Fatalf("shape = %dx%d, want 6x3", len(we.Matrix), we.Dim)
	}
	if !reflect.DeepEqual(we.Matrix[0], []float64{0, 0, 0}) {
		t.Errorf("padding row = %v, want zeros", we.Matrix[0])
	}
	scale := math.Sqrt(6.0 / 8.0)
	for i := 1; i < len(we.Matrix); i++ {
		for _, v := range we.Matrix[i] {
			if math.Abs(v) > scale {
				t.Errorf("row %d value %v exceeds xavier scale %v", i, v, scale)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	we := &WordEmbedding{Dim: 2, Matrix: [][]float64{{0, 0}, {1, 2}}}
	if !reflect.DeepEqual(we.Lookup(1), []float64{1, 2}) {
		t.Errorf("Lookup(1) = %v", we.Lookup(1))
	}
	if !reflect.DeepEqual(we.Lookup(99), []float64{0, 0}) {
		t.Errorf("Lookup(out of range) = %v, want zeros", we.Lookup(99))
	}
}
