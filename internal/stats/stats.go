// Package stats computes rolling latency statistics over a target's
// trailing history window and classifies fresh samples as anomalous.
package stats

import (
	"math"

	"sitewatch/internal/domain"
)

const zScoreLimit = 2.0

// Summary holds the mean and population standard deviation of the latency
// samples in a window. Both are nil when the window held no samples.
type Summary struct {
	Mean   *float64
	Stddev *float64
}

// FromHistory summarizes the latency-bearing records of a history window.
// Records without a latency (none are written today, but the column is
// nullable) are skipped.
func FromHistory(records []domain.HistoryRecord) Summary {
	samples := make([]float64, 0, len(records))
	for _, r := range records {
		if r.LatencyMS != nil {
			samples = append(samples, *r.LatencyMS)
		}
	}
	return Summarize(samples)
}

// Summarize computes mean and population standard deviation.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))

	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(samples)))
	return Summary{Mean: &mean, Stddev: &stddev}
}

// Anomalous reports whether a fresh latency sample is inconsistent with
// the summary: z-score above 2, or above the target's absolute threshold.
// With no usable spread — no history, or fewer than two distinct samples
// leaving stddev at zero — nothing is flagged; a single observation is not
// a baseline.
func (s Summary) Anomalous(sample float64, thresholdMS int) bool {
	if s.Mean == nil || s.Stddev == nil || *s.Stddev == 0 {
		return false
	}
	if math.Abs(sample-*s.Mean)/(*s.Stddev) > zScoreLimit {
		return true
	}
	return thresholdMS > 0 && sample > float64(thresholdMS)
}
