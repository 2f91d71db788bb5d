package metrics

import (
	"math"
	"sort"

	"keytrace-go/internal/models"
)

// EditorCounters are the editor-level signals the capture client reports
// alongside the keystroke stream. They cannot be derived from key events.
type EditorCounters struct {
	PasteCount        int `json:"pasteCount"`
	LargestPasteChars int `json:"largestPasteChars"`
}

// ComputeSessionMetrics folds a session's keystroke corpus plus editor
// counters into the aggregate profile consumed by the risk scorer.
func ComputeSessionMetrics(events []models.KeystrokeEvent, counters EditorCounters) models.SessionMetrics {
	m := models.SessionMetrics{
		PasteCount:        counters.PasteCount,
		LargestPasteChars: counters.LargestPasteChars,
		TotalKeystrokes:   len(events),
	}

	if len(events) < 3 {
		return m
	}

	sorted := make([]models.KeystrokeEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	m.DurationSeconds = (sorted[len(sorted)-1].Timestamp - sorted[0].Timestamp) / 1000

	features := Extract(sorted)
	m.TypingSpeed = features.TypingSpeed
	m.MeanDwell = features.MeanDwell
	m.DwellVariance = features.StdDwell * features.StdDwell
	m.MeanFlight = features.MeanFlight
	m.FlightVariance = features.StdFlight * features.StdFlight
	m.RhythmConsistency = 1.0 / (1.0 + features.RhythmVariability)

	// Deletion rate: corrections per content key.
	correctionCount := 0
	charCount := 0
	for _, event := range sorted {
		if event.Key == "Backspace" || event.Key == "Delete" {
			correctionCount++
		} else if isContentKey(event.Key) {
			charCount++
		}
	}
	if charCount >= 3 {
		m.DeletionRate = float64(correctionCount) / float64(charCount)
	}

	// Pause statistics over inter-key intervals. A pause is anything above
	// 3x the average interval (minimum 1s); a deep-thinking pause is >5s.
	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Timestamp-sorted[i-1].Timestamp)
	}

	if len(intervals) >= 5 {
		var avgInterval float64
		for _, interval := range intervals {
			avgInterval += interval
		}
		avgInterval /= float64(len(intervals))

		pauseThreshold := math.Max(avgInterval*3.0, 1000.0)
		pauseCount := 0
		longPauseCount := 0
		for _, interval := range intervals {
			if interval > pauseThreshold {
				pauseCount++
				if interval > 5000 {
					longPauseCount++
				}
			}
		}
		m.PauseRate = float64(pauseCount) / float64(len(intervals))
		m.DeepPauseRate = float64(longPauseCount) / float64(len(intervals))

		// Burst intervals: runs of 10+ consecutive keys each landing within
		// 40ms of the previous one. Humans rarely sustain that; injected or
		// replayed input does.
		run := 0
		for _, interval := range intervals {
			if interval > 0 && interval < 40 {
				run++
				if run == 10 {
					m.BurstTypingIntervals++
				}
			} else {
				run = 0
			}
		}
	}

	return m
}
