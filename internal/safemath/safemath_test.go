package safemath

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if sum, ok := Add(2, 3); !ok || sum != 5 {
		t.Errorf("Add(2, 3) = %d, %v; want 5, true", sum, ok)
	}
	if _, ok := Add(math.MaxUint64, 1); ok {
		t.Error("Add(MaxUint64, 1) should overflow")
	}
	if sum, ok := Add(math.MaxUint64, 0); !ok || sum != math.MaxUint64 {
		t.Errorf("Add(MaxUint64, 0) = %d, %v; want MaxUint64, true", sum, ok)
	}
}

func TestSub(t *testing.T) {
	if diff, ok := Sub(5, 3); !ok || diff != 2 {
		t.Errorf("Sub(5, 3) = %d, %v; want 2, true", diff, ok)
	}
	if _, ok := Sub(3, 5); ok {
		t.Error("Sub(3, 5) should underflow")
	}
	if diff, ok := Sub(3, 3); !ok || diff != 0 {
		t.Errorf("Sub(3, 3) = %d, %v; want 0, true", diff, ok)
	}
}

func TestMul(t *testing.T) {
	if prod, ok := Mul(6, 7); !ok || prod != 42 {
		t.Errorf("Mul(6, 7) = %d, %v; want 42, true", prod, ok)
	}
	if prod, ok := Mul(0, math.MaxUint64); !ok || prod != 0 {
		t.Errorf("Mul(0, MaxUint64) = %d, %v; want 0, true", prod, ok)
	}
	if _, ok := Mul(math.MaxUint64, 2); ok {
		t.Error("Mul(MaxUint64, 2) should overflow")
	}
}

func TestDiv(t *testing.T) {
	if q, ok := Div(10, 3); !ok || q != 3 {
		t.Errorf("Div(10, 3) = %d, %v; want 3, true", q, ok)
	}
	if _, ok := Div(1, 0); ok {
		t.Error("Div(1, 0) should fail")
	}
}

func TestSqrt(t *testing.T) {
	cases := []struct {
		n, want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{101, 10},
		{10000, 100},
		{math.MaxUint64, 4294967295},
	}
	for _, c := range cases {
		if got := Sqrt(c.n); got != c.want {
			t.Errorf("Sqrt(%d) = %d; want %d", c.n, got, c.want)
		}
	}
}
