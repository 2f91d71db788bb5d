package metrics

import (
	"fmt"
	"math"
	"sort"

	"keytrace-go/internal/models"
)

// FeatureSet is the aggregated typing-dynamics representation extracted from
// a keystroke corpus. It is the comparison basis for enrollment templates and
// identification samples alike.
type FeatureSet struct {
	MeanDwell         float64
	StdDwell          float64
	MeanFlight        float64
	StdFlight         float64
	TypingSpeed       float64 // content keys per second
	RhythmVariability float64 // coefficient of variation of flight times
	Digraphs          map[string]float64
	SampleSize        int
}

// Vector flattens the scalar features in the layout shared with the stored
// template column (models.Feat* indexes).
func (f FeatureSet) Vector() []float64 {
	v := make([]float64, models.FeatureVectorLen)
	v[models.FeatMeanDwell] = f.MeanDwell
	v[models.FeatStdDwell] = f.StdDwell
	v[models.FeatMeanFlight] = f.MeanFlight
	v[models.FeatStdFlight] = f.StdFlight
	v[models.FeatTypingSpeed] = f.TypingSpeed
	v[models.FeatRhythmVariability] = f.RhythmVariability
	return v
}

// FeatureSetFromVector rebuilds the scalar features from a stored vector.
func FeatureSetFromVector(v []float64, digraphs map[string]float64, sampleSize int) FeatureSet {
	f := FeatureSet{Digraphs: digraphs, SampleSize: sampleSize}
	if len(v) < models.FeatureVectorLen {
		return f
	}
	f.MeanDwell = v[models.FeatMeanDwell]
	f.StdDwell = v[models.FeatStdDwell]
	f.MeanFlight = v[models.FeatMeanFlight]
	f.StdFlight = v[models.FeatStdFlight]
	f.TypingSpeed = v[models.FeatTypingSpeed]
	f.RhythmVariability = v[models.FeatRhythmVariability]
	return f
}

// Extract computes the feature set for a keystroke corpus with outlier
// filtering. Events are sorted by timestamp first; capture order is already
// chronological but batches may be concatenated from several flushes.
func Extract(events []models.KeystrokeEvent) FeatureSet {
	features := FeatureSet{
		Digraphs:   map[string]float64{},
		SampleSize: len(events),
	}

	if len(events) < 3 {
		return features
	}

	sorted := make([]models.KeystrokeEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	// Dwell times: drop implausible holds, then IQR-filter the rest.
	dwellTimes := make([]float64, 0, len(sorted))
	for _, event := range sorted {
		if event.DwellTime >= 20 && event.DwellTime <= 1000 {
			dwellTimes = append(dwellTimes, event.DwellTime)
		}
	}

	if len(dwellTimes) >= 5 {
		sort.Float64s(dwellTimes)
		q1 := dwellTimes[len(dwellTimes)/4]
		q3 := dwellTimes[(len(dwellTimes)*3)/4]
		iqr := q3 - q1

		filtered := make([]float64, 0, len(dwellTimes))
		for _, t := range dwellTimes {
			if t >= q1-(1.5*iqr) && t <= q3+(1.5*iqr) {
				filtered = append(filtered, t)
			}
		}

		if len(filtered) >= 5 {
			features.MeanDwell, features.StdDwell = meanStd(filtered)
		}
	}

	// Flight times: skip the first event (flight 0 by definition) and cut
	// everything beyond 1.5x the 95th percentile, which removes breaks
	// between bursts without flattening normal variation.
	flights := make([]float64, 0, len(sorted))
	for i, event := range sorted {
		if i == 0 {
			continue
		}
		if event.FlightTime > 0 {
			flights = append(flights, event.FlightTime)
		}
	}

	if len(flights) >= 3 {
		sortedFlights := make([]float64, len(flights))
		copy(sortedFlights, flights)
		sort.Float64s(sortedFlights)

		p95idx := int(float64(len(sortedFlights)) * 0.95)
		if p95idx >= len(sortedFlights) {
			p95idx = len(sortedFlights) - 1
		}
		maxFlight := sortedFlights[p95idx] * 1.5

		filtered := make([]float64, 0, len(flights))
		for _, flight := range flights {
			if flight <= maxFlight {
				filtered = append(filtered, flight)
			}
		}

		if len(filtered) >= 3 {
			features.MeanFlight, features.StdFlight = meanStd(filtered)
			if features.MeanFlight > 0 {
				features.RhythmVariability = features.StdFlight / features.MeanFlight
			}
		}
	}

	// Typing speed over content keys only.
	if len(sorted) >= 5 {
		contentKeys := 0
		for _, event := range sorted {
			if isContentKey(event.Key) {
				contentKeys++
			}
		}
		totalTime := (sorted[len(sorted)-1].Timestamp - sorted[0].Timestamp) / 1000
		if totalTime > 0 && contentKeys > 0 {
			features.TypingSpeed = float64(contentKeys) / totalTime
		}
	}

	// Digraph latencies: mean flight time per ordered key pair. Pairs seen
	// fewer than twice carry too much noise and are dropped.
	type digraphAcc struct {
		sum   float64
		count int
	}
	acc := make(map[string]*digraphAcc)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].FlightTime <= 0 || sorted[i].FlightTime > 2000 {
			continue
		}
		pair := digraphKey(sorted[i-1].Key, sorted[i].Key)
		if a, ok := acc[pair]; ok {
			a.sum += sorted[i].FlightTime
			a.count++
		} else {
			acc[pair] = &digraphAcc{sum: sorted[i].FlightTime, count: 1}
		}
	}
	for pair, a := range acc {
		if a.count >= 2 {
			features.Digraphs[pair] = a.sum / float64(a.count)
		}
	}

	return features
}

func digraphKey(first, second string) string {
	return fmt.Sprintf("%s|%s", first, second)
}

func isContentKey(key string) bool {
	return len(key) == 1 || key == "Space" || key == "Enter" || key == " "
}

func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	var variance float64
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}
	variance /= float64(len(values) - 1)
	return mean, math.Sqrt(variance)
}
