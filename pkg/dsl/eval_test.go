package dsl

import "testing"

func TestImpressionFilterMatch(t *testing.T) {
	tests := []struct {
		name string
		expr string
		// impression_index, uid, candidate_length, history_length
		args [4]int
		want bool
	}{
		{"index lower bound", "impression_index < 1000", [4]int{500, 0, 0, 0}, true},
		{"index out of range", "impression_index < 1000", [4]int{1000, 0, 0, 0}, false},
		{"uid equality", "uid == 42", [4]int{0, 42, 0, 0}, true},
		{"conjunction", "candidate_length > 5 && history_length >= 10", [4]int{0, 0, 6, 10}, true},
		{"conjunction miss", "candidate_length > 5 && history_length >= 10", [4]int{0, 0, 6, 9}, false},
		{"modulo sharding", "impression_index % 2 == 0", [4]int{8, 0, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewImpressionFilter(tt.expr)
			if err != nil {
				t.Fatalf("NewImpressionFilter(%q): %v", tt.expr, err)
			}
			got, err := f.Match(tt.args[0], tt.args[1], tt.args[2], tt.args[3])
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestImpressionFilterEmpty(t *testing.T) {
	f, err := NewImpressionFilter("")
	if err != nil {
		t.Fatalf("NewImpressionFilter(\"\"): %v", err)
	}
	if f != nil {
		t.Fatal("empty expression must return a nil filter")
	}
	// nil filter 放行所有 impression
	ok, err := f.Match(1, 2, 3, 4)
	if err != nil || !ok {
		t.Errorf("nil filter Match = %v, %v, want true", ok, err)
	}
	if f.Expr() != "" {
		t.Errorf("nil filter Expr() = %q", f.Expr())
	}
}

func TestImpressionFilterCompileError(t *testing.T) {
	if _, err := NewImpressionFilter("impression_index <"); err == nil {
		t.Error("malformed expression, want compile error")
	}
	if _, err := NewImpressionFilter("unknown_var > 1"); err == nil {
		t.Error("undeclared variable, want compile error")
	}
}

func TestImpressionFilterNonBoolean(t *testing.T) {
	f, err := NewImpressionFilter("impression_index + 1")
	if err != nil {
		t.Fatalf("NewImpressionFilter: %v", err)
	}
	if _, err := f.Match(1, 0, 0, 0); err == nil {
		t.Error("non-boolean expression, want eval error")
	}
}
