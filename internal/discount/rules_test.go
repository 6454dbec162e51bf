package discount

import "testing"

func TestApplyPercentage(t *testing.T) {
	cases := []struct {
		price, percentage, want float64
	}{
		{100, 10, 90},
		{100, 0, 100},
		{100, 100, 0},
		{100, 150, 0},
		{0, 50, 0},
	}
	for _, tc := range cases {
		if got := ApplyPercentage(tc.price, tc.percentage); got != tc.want {
			t.Fatalf("ApplyPercentage(%v, %v) = %v, want %v", tc.price, tc.percentage, got, tc.want)
		}
	}
}

func TestApplyFixedFloorsAtZero(t *testing.T) {
	if got := ApplyFixed(300, 50); got != 250 {
		t.Fatalf("expected 250, got %v", got)
	}
	if got := ApplyFixed(30, 50); got != 0 {
		t.Fatalf("expected excess discount to floor at 0, got %v", got)
	}
}
