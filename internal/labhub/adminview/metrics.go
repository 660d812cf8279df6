// Package adminview builds the administrator monitoring views: lab
// listings, per-lab metric summaries, and console log streams. The raw
// series come from the backend's CloudWatch-style store; this package only
// reshapes and summarizes.
package adminview

import (
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// Range tokens accepted by the metrics endpoints.
const (
	RangeHour    = "1h"
	RangeSixHour = "6h"
	RangeDay     = "24h"
	RangeAll     = "all"
)

// DefaultRange is applied when the caller omits the range parameter.
const DefaultRange = RangeHour

// IsValidRange reports whether the token is one of the accepted ranges.
func IsValidRange(token string) bool {
	switch token {
	case RangeHour, RangeSixHour, RangeDay, RangeAll:
		return true
	}
	return false
}

// MetricPoint is one sample in a metric series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a named metric series for one lab instance.
type Series struct {
	Name   string        `json:"name"`
	Unit   string        `json:"unit,omitempty"`
	Points []MetricPoint `json:"points"`
}

// Summary is the aggregate view rendered on the admin dashboard. Current is
// the most recent sample, not an aggregate.
type Summary struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Current float64 `json:"current"`
}

// LogStream is one console log stream for a lab instance.
type LogStream struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// Summarize computes the dashboard aggregates over a series of values. An
// empty series yields all zeros rather than NaN. Results are rounded to two
// decimal places.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	min := values[0]
	max := values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	return Summary{
		Min:     round2(min),
		Max:     round2(max),
		Avg:     round2(sum / float64(len(values))),
		Current: round2(values[len(values)-1]),
	}
}

// SummarizeSeries computes the aggregate over a series' point values.
func SummarizeSeries(s Series) Summary {
	values := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		values = append(values, p.Value)
	}
	return Summarize(values)
}

// ParseSeries decodes the backend's raw metrics document into series. The
// document shape is {"metrics":[{"name":...,"unit":...,"datapoints":
// [{"timestamp":...,"value":...},...]},...]}.
func ParseSeries(raw []byte) []Series {
	var out []Series
	gjson.GetBytes(raw, "metrics").ForEach(func(_, m gjson.Result) bool {
		s := Series{
			Name: m.Get("name").String(),
			Unit: m.Get("unit").String(),
		}
		m.Get("datapoints").ForEach(func(_, p gjson.Result) bool {
			point := MetricPoint{Value: p.Get("value").Float()}
			if ts := p.Get("timestamp"); ts.Exists() {
				if parsed, err := time.Parse(time.RFC3339, ts.String()); err == nil {
					point.Timestamp = parsed
				}
			}
			s.Points = append(s.Points, point)
			return true
		})
		out = append(out, s)
		return true
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
