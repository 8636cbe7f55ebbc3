package core

import "testing"

func TestParam(t *testing.T) {
	p := NewParam("w", []float64{3, 4})
	if len(p.Grad) != 2 {
		t.Fatalf("len(Grad) = %d, want len(Data)", len(p.Grad))
	}
	if got := p.SquaredNorm(); got != 25 {
		t.Errorf("SquaredNorm() = %v, want 25", got)
	}

	p.Grad[0], p.Grad[1] = 1, -2
	p.ZeroGrad()
	if p.Grad[0] != 0 || p.Grad[1] != 0 {
		t.Errorf("ZeroGrad left %v", p.Grad)
	}
}
