package stats

import (
	"math"
	"testing"
	"time"

	"sitewatch/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{100, 200, 300})
	if s.Mean == nil || *s.Mean != 200 {
		t.Fatalf("mean: got %v", s.Mean)
	}
	// Population stddev of {100,200,300} is sqrt(20000/3).
	want := math.Sqrt(20000.0 / 3.0)
	if s.Stddev == nil || math.Abs(*s.Stddev-want) > 1e-9 {
		t.Fatalf("stddev: got %v, want %f", s.Stddev, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Mean != nil || s.Stddev != nil {
		t.Fatalf("want nil summary for empty window, got %+v", s)
	}
}

func TestFromHistory_SkipsNilLatencies(t *testing.T) {
	now := time.Now().UTC()
	s := FromHistory([]domain.HistoryRecord{
		{Timestamp: now, LatencyMS: fptr(100)},
		{Timestamp: now, LatencyMS: nil},
		{Timestamp: now, LatencyMS: fptr(300)},
	})
	if s.Mean == nil || *s.Mean != 200 {
		t.Fatalf("mean: got %v", s.Mean)
	}
}

func TestAnomalous_NoBaseline(t *testing.T) {
	if (Summary{}).Anomalous(99999, 100) {
		t.Fatalf("empty summary must never flag")
	}
	// A single sample (or identical samples) leaves stddev at zero.
	one := Summarize([]float64{150})
	if one.Anomalous(99999, 100) {
		t.Fatalf("zero spread must never flag, even past the threshold")
	}
	same := Summarize([]float64{150, 150, 150})
	if same.Anomalous(99999, 100) {
		t.Fatalf("identical samples must never flag")
	}
}

func TestAnomalous_ZScore(t *testing.T) {
	// Mean 200, stddev ~81.6; a 400ms sample is ~2.45 sigma out.
	s := Summarize([]float64{100, 200, 300})
	if !s.Anomalous(400, 0) {
		t.Fatalf("want z-score breach flagged")
	}
	if s.Anomalous(250, 0) {
		t.Fatalf("250 is within 2 sigma, must not flag")
	}
}

func TestAnomalous_Threshold(t *testing.T) {
	s := Summarize([]float64{100, 200, 300})
	// 320 is inside 2 sigma but above a 310ms threshold.
	if !s.Anomalous(320, 310) {
		t.Fatalf("want threshold breach flagged")
	}
	if s.Anomalous(320, 0) {
		t.Fatalf("zero threshold disables the absolute rule")
	}
}
