package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{10 * time.Second, "0:10"},
		{95*time.Second + 900*time.Millisecond, "1:35"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 sps"},
		{-5, "0 sps"},
		{200, "200 sps"},
		{1500, "1.5k sps"},
		{2_500_000, "2.5M sps"},
	}
	for _, tt := range tests {
		if got := FormatRate(tt.in); got != tt.want {
			t.Fatalf("FormatRate(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
