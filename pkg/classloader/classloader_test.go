package classloader

import "testing"

func TestLocalVar_InScope(t *testing.T) {
	lv := LocalVar{Name: "x", StartPC: 10, Length: 5}
	cases := []struct {
		pc   uint32
		want bool
	}{
		{9, false},
		{10, true},
		{14, true},
		{15, false},
	}
	for _, c := range cases {
		if got := lv.InScope(c.pc); got != c.want {
			t.Errorf("InScope(%d) = %v, want %v", c.pc, got, c.want)
		}
	}
}
