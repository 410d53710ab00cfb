package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       int64 // milliseconds
	}{
		{0, 1000},    // 1s
		{1, 2000},    // 2s
		{2, 4000},    // 4s
		{3, 8000},    // 8s
		{10, 60000},  // max 60s
		{100, 60000}, // still max 60s
	}

	for _, tt := range tests {
		delay := CalculateBackoff(tt.retryCount, DefaultBaseDelay, DefaultMaxDelay)
		if delay.Milliseconds() != tt.want {
			t.Errorf("CalculateBackoff(%d) = %dms, want %dms", tt.retryCount, delay.Milliseconds(), tt.want)
		}
	}

	if got := CalculateBackoff(2, 10*time.Millisecond, time.Second); got != 40*time.Millisecond {
		t.Errorf("custom base delay = %v, want 40ms", got)
	}
}
