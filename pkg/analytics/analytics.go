// Package analytics turns a session's recorded moments into a
// human-readable productivity summary.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/classify"
)

// fallbackInterval is assumed when a session has too few samples to
// infer its own cadence.
const fallbackInterval = 5 * time.Second

// ServiceUsage is time attributed to one service.
type ServiceUsage struct {
	Service string  `json:"service"`
	Minutes float64 `json:"minutes"`
}

// Summary aggregates one session.
type Summary struct {
	SessionID   string `json:"session_id"`
	MomentCount int    `json:"moment_count"`

	// DurationMinutes spans the first to the last sample.
	DurationMinutes float64 `json:"duration_minutes"`

	ProductiveMinutes   float64 `json:"productive_minutes"`
	UnproductiveMinutes float64 `json:"unproductive_minutes"`

	// ProductivityPct is productive time over labeled time; moments
	// labeled Unknown do not count either way.
	ProductivityPct float64 `json:"productivity_pct"`

	DistractionPctAvg float64 `json:"distraction_pct_avg"`

	// Services is attributed time per service, largest first.
	Services []ServiceUsage `json:"services"`
}

// Compute builds the summary for a session's moments. The moments are
// expected in timestamp order, as returned by the store.
func Compute(sessionID string, moments []store.Moment) Summary {
	s := Summary{SessionID: sessionID, MomentCount: len(moments)}
	if len(moments) == 0 {
		return s
	}

	interval := sampleInterval(moments)
	perSample := interval.Minutes()

	span := moments[len(moments)-1].Timestamp.Sub(moments[0].Timestamp)
	s.DurationMinutes = round2(span.Minutes())

	var productive, unproductive int
	var distractionSum float64
	services := map[string]float64{}

	for _, m := range moments {
		switch m.Productivity {
		case classify.LabelProductive:
			productive++
		case classify.LabelUnproductive:
			unproductive++
		}
		distractionSum += m.DistractionPct
		if m.Service != "" && m.Service != classify.LabelUnknown {
			services[m.Service] += perSample
		}
	}

	s.ProductiveMinutes = round2(float64(productive) * perSample)
	s.UnproductiveMinutes = round2(float64(unproductive) * perSample)
	if labeled := productive + unproductive; labeled > 0 {
		s.ProductivityPct = round2(float64(productive) / float64(labeled) * 100)
	}
	s.DistractionPctAvg = round2(distractionSum / float64(len(moments)))

	for service, minutes := range services {
		s.Services = append(s.Services, ServiceUsage{Service: service, Minutes: round2(minutes)})
	}
	sort.Slice(s.Services, func(i, j int) bool {
		if s.Services[i].Minutes != s.Services[j].Minutes {
			return s.Services[i].Minutes > s.Services[j].Minutes
		}
		return s.Services[i].Service < s.Services[j].Service
	})

	return s
}

// sampleInterval infers the session's cadence as the median gap
// between consecutive samples. The median shrugs off pauses and
// classifier stalls that would skew a mean.
func sampleInterval(moments []store.Moment) time.Duration {
	if len(moments) < 2 {
		return fallbackInterval
	}

	gaps := make([]time.Duration, 0, len(moments)-1)
	for i := 1; i < len(moments); i++ {
		if gap := moments[i].Timestamp.Sub(moments[i-1].Timestamp); gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return fallbackInterval
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	mid := len(gaps) / 2
	if len(gaps)%2 == 0 {
		return (gaps[mid-1] + gaps[mid]) / 2
	}
	return gaps[mid]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
