package conv

import "testing"

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{int32(5), 5, true},
		{true, 1, true},
		{false, 0, true},
		{"nope", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToFloat64(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"lr": 0.001, "name": "adam"}

	if got := ConfigGet(m, "lr", 0.1); got != 0.001 {
		t.Errorf("ConfigGet(lr) = %v", got)
	}
	if got := ConfigGet(m, "missing", 0.1); got != 0.1 {
		t.Errorf("ConfigGet(missing) = %v, want default", got)
	}
	// 类型不符回退默认值
	if got := ConfigGet(m, "name", 7); got != 7 {
		t.Errorf("ConfigGet(type mismatch) = %v, want default", got)
	}
}

func TestConfigGetFloat64(t *testing.T) {
	// YAML 里整数字面量解析为 int，必须仍能取到
	m := map[string]any{"lr": 1, "clip": 0.5, "name": "adam"}
	for key, want := range map[string]float64{"lr": 1, "clip": 0.5, "missing": 9, "name": 9} {
		if got := ConfigGetFloat64(m, key, 9); got != want {
			t.Errorf("ConfigGetFloat64(%s) = %v, want %v", key, got, want)
		}
	}
}

func TestConfigGetInt64(t *testing.T) {
	m := map[string]any{"a": 1, "b": int64(2), "c": 3.0}
	for key, want := range map[string]int64{"a": 1, "b": 2, "c": 3, "missing": 9} {
		if got := ConfigGetInt64(m, key, 9); got != want {
			t.Errorf("ConfigGetInt64(%s) = %d, want %d", key, got, want)
		}
	}
}
