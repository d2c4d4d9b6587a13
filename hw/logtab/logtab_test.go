package logtab

import (
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for x := int32(-128); x <= 128; x++ {
		got := LogToLinear(LinearToLog(x), RoundTripShift)
		if d := got - x; d < -1 || d > 1 {
			t.Errorf("LogToLinear(LinearToLog(%d)) = %d, want %d ±1", x, got, x)
		}
	}
}

func TestLogToLinearLimits(t *testing.T) {
	if got := LogToLinear(LinearToLog(0), 0); got != 0 {
		t.Errorf("zero amplitude = %d, want 0", got)
	}
	if got := LogToLinear(0, 0); got != 1<<LogLinBits {
		t.Errorf("LogToLinear(0, 0) = %d, want %d", got, 1<<LogLinBits)
	}
	if got := LogToLinear(0, LogLinBits); got != 0 {
		t.Errorf("LogToLinear(0, %d) = %d, want 0", LogLinBits, got)
	}
	if got := LogToLinear(1, 1); got != -(1 << (LogLinBits - 1)) {
		t.Errorf("sign bit not honored: %d", got)
	}
}

func TestTablesMonotonic(t *testing.T) {
	for i := 1; i < len(logtbl); i++ {
		if logtbl[i] > logtbl[i-1] {
			t.Fatalf("logtbl[%d] = %d > logtbl[%d] = %d", i, logtbl[i], i-1, logtbl[i-1])
		}
	}
	for i := 2; i < len(lineartbl); i++ {
		if lineartbl[i] > lineartbl[i-1] {
			t.Fatalf("lineartbl[%d] = %d > lineartbl[%d] = %d", i, lineartbl[i], i-1, lineartbl[i-1])
		}
	}
}

func TestMul(t *testing.T) {
	tests := []struct{ a, b int32 }{
		{64, 64}, {-32, 100}, {-128, -3}, {17, 0}, {128, 128},
	}
	for _, tt := range tests {
		got := Mul(tt.a, tt.b, RoundTripShift)
		want := float64(tt.a*tt.b) / 128
		if math.Abs(float64(got)-want) > 1+math.Abs(want)/64 {
			t.Errorf("Mul(%d, %d) = %d, want ≈ %.1f", tt.a, tt.b, got, want)
		}
	}
}
