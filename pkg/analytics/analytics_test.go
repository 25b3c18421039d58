package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/classify"
)

func ticks(start time.Time, interval time.Duration, labels []string) []store.Moment {
	moments := make([]store.Moment, len(labels))
	for i, label := range labels {
		moments[i] = store.Moment{
			SessionID:    "s1",
			Timestamp:    start.Add(time.Duration(i) * interval),
			Productivity: label,
		}
	}
	return moments
}

func TestComputeBasicSession(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	labels := []string{
		classify.LabelProductive, classify.LabelProductive, classify.LabelProductive,
		classify.LabelProductive, classify.LabelProductive, classify.LabelProductive,
		classify.LabelUnproductive, classify.LabelUnproductive,
		classify.LabelUnproductive, classify.LabelUnproductive,
	}
	moments := ticks(start, 5*time.Second, labels)

	s := Compute("s1", moments)

	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, 10, s.MomentCount)
	// Ten samples five seconds apart span 45 seconds.
	assert.InDelta(t, 0.75, s.DurationMinutes, 1e-9)
	assert.InDelta(t, 60.0, s.ProductivityPct, 1e-9)
	assert.InDelta(t, 0.5, s.ProductiveMinutes, 1e-9)   // 6 * 5s
	assert.InDelta(t, 0.33, s.UnproductiveMinutes, 1e-9) // 4 * 5s rounded
}

func TestComputeEmptySession(t *testing.T) {
	s := Compute("empty", nil)
	assert.Equal(t, 0, s.MomentCount)
	assert.Zero(t, s.DurationMinutes)
	assert.Zero(t, s.ProductivityPct)
	assert.Empty(t, s.Services)
}

func TestComputeUnknownLabelsExcludedFromPct(t *testing.T) {
	start := time.Now()
	moments := ticks(start, 5*time.Second, []string{
		classify.LabelProductive,
		classify.LabelUnknown,
		classify.LabelUnknown,
		classify.LabelUnproductive,
	})

	s := Compute("s1", moments)
	assert.InDelta(t, 50.0, s.ProductivityPct, 1e-9)
}

func TestComputeAllUnknownHasZeroPct(t *testing.T) {
	moments := ticks(time.Now(), 5*time.Second, []string{
		classify.LabelUnknown, classify.LabelUnknown,
	})
	s := Compute("s1", moments)
	assert.Zero(t, s.ProductivityPct)
}

func TestComputeServiceAttribution(t *testing.T) {
	start := time.Now()
	moments := ticks(start, 5*time.Second, []string{
		classify.LabelProductive, classify.LabelProductive,
		classify.LabelProductive, classify.LabelUnproductive,
	})
	moments[0].Service = "GitHub"
	moments[1].Service = "GitHub"
	moments[2].Service = "GitHub"
	moments[3].Service = "YouTube"

	s := Compute("s1", moments)

	if assert.Len(t, s.Services, 2) {
		assert.Equal(t, "GitHub", s.Services[0].Service)
		assert.InDelta(t, 0.25, s.Services[0].Minutes, 1e-9)
		assert.Equal(t, "YouTube", s.Services[1].Service)
	}
}

func TestComputeMedianIntervalIgnoresGaps(t *testing.T) {
	start := time.Now()
	moments := ticks(start, 5*time.Second, []string{
		classify.LabelProductive, classify.LabelProductive,
		classify.LabelProductive, classify.LabelProductive,
		classify.LabelProductive,
	})
	// A long pause between samples must not inflate per-sample time.
	for i := 3; i < len(moments); i++ {
		moments[i].Timestamp = moments[i].Timestamp.Add(10 * time.Minute)
	}

	s := Compute("s1", moments)
	// Median gap stays at 5s, so productive time is 5 samples * 5s.
	assert.InDelta(t, 0.42, s.ProductiveMinutes, 1e-9)
}

func TestComputeSingleMomentUsesFallbackInterval(t *testing.T) {
	moments := ticks(time.Now(), 5*time.Second, []string{classify.LabelProductive})
	s := Compute("s1", moments)
	assert.InDelta(t, 0.08, s.ProductiveMinutes, 1e-9) // one 5s sample
	assert.Zero(t, s.DurationMinutes)
}
