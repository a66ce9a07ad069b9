package reconcile

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestReconcileBoundaries(t *testing.T) {
	cases := []struct {
		video, narration float64
		want             Kind
		pad              float64
	}{
		{100, 98, Aligned, 0},
		{100, 102, Aligned, 0},
		{100, 100, Aligned, 0},
		{100, 90, NarrationShort, 10},
		{100, 110, NarrationLong, 0},
		{0, 0, Aligned, 0},
	}
	for _, tc := range cases {
		out, err := Reconcile(tc.video, tc.narration, DefaultTolerance)
		if err != nil {
			t.Fatalf("Reconcile(%v, %v) returned error: %v", tc.video, tc.narration, err)
		}
		if out.Kind != tc.want {
			t.Fatalf("Reconcile(%v, %v) = %s, want %s", tc.video, tc.narration, out.Kind, tc.want)
		}
		if out.PadSeconds != tc.pad {
			t.Fatalf("Reconcile(%v, %v) pad = %v, want %v", tc.video, tc.narration, out.PadSeconds, tc.pad)
		}
	}
}

func TestReconcileInvalidInput(t *testing.T) {
	for _, in := range [][3]float64{
		{-1, 5, 2},
		{5, -0.5, 2},
		{math.NaN(), 5, 2},
		{5, math.Inf(1), 2},
		{5, 5, -1},
	} {
		if _, err := Reconcile(in[0], in[1], in[2]); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("Reconcile(%v) expected ErrInvalidDuration, got %v", in, err)
		}
	}
}

func TestOutcomeDescribe(t *testing.T) {
	short, _ := Reconcile(100, 90, 2)
	if !strings.Contains(short.Describe(), "pad 10.00s") {
		t.Fatalf("unexpected short description %q", short.Describe())
	}
	long, _ := Reconcile(100, 110, 2)
	if !long.NeedsAttention() || !strings.Contains(long.Describe(), "longer") {
		t.Fatalf("unexpected long outcome %+v", long)
	}
	if long.KindName != "narration_long" {
		t.Fatalf("unexpected kind name %q", long.KindName)
	}
}
