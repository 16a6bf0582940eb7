// Package providers - sequence-length observation for dynamic QA inputs.
package providers

import "sync"

// LengthObservation records statistics for one observed padded sequence length.
type LengthObservation struct {
	Length    int64   `json:"length"`
	Count     int64   `json:"count"`
	AvgTimeMs float64 `json:"avg_time_ms"`
}

// SequenceLengthObserver tracks the padded lengths a session actually sees.
//
// The observer compares observations against the configured sequence profiles
// so a benchmark report can say how often inputs stayed inside the range the
// session was tuned for.
type SequenceLengthObserver struct {
	profiles        []SequenceProfile
	observed        map[string][]LengthObservation
	mu              sync.RWMutex
	profileHits     int64
	totalInferences int64
}

// NewSequenceLengthObserver creates an observer over the given profiles.
func NewSequenceLengthObserver(profiles []SequenceProfile) *SequenceLengthObserver {
	return &SequenceLengthObserver{
		profiles: profiles,
		observed: make(map[string][]LengthObservation),
	}
}

// Observe records one inference's padded length for an input tensor.
//
// Arguments:
//   - inputName: Name of the input tensor.
//   - length: Padded sequence length of this run.
//   - inferenceTimeMs: Wall time the run took.
func (o *SequenceLengthObserver) Observe(inputName string, length int64, inferenceTimeMs float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.totalInferences++

	observations := o.observed[inputName]
	found := false
	for i := range observations {
		if observations[i].Length == length {
			observations[i].Count++
			observations[i].AvgTimeMs += (inferenceTimeMs - observations[i].AvgTimeMs) /
				float64(observations[i].Count)
			found = true
			break
		}
	}
	if !found {
		observations = append(observations, LengthObservation{
			Length:    length,
			Count:     1,
			AvgTimeMs: inferenceTimeMs,
		})
	}
	o.observed[inputName] = observations

	for _, profile := range o.profiles {
		if profile.InputName == inputName &&
			length >= profile.MinLength && length <= profile.MaxLength {
			o.profileHits++
			break
		}
	}
}

// LengthStats summarizes observation coverage against the configured profiles.
type LengthStats struct {
	TotalInferences int64                          `json:"total_inferences"`
	ProfileHits     int64                          `json:"profile_hits"`
	ProfileHitRate  float64                        `json:"profile_hit_rate"`
	Inputs          map[string][]LengthObservation `json:"inputs"`
}

// Stats returns a snapshot of the observed lengths and profile hit rate.
func (o *SequenceLengthObserver) Stats() LengthStats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	stats := LengthStats{
		TotalInferences: o.totalInferences,
		ProfileHits:     o.profileHits,
		Inputs:          make(map[string][]LengthObservation, len(o.observed)),
	}
	if o.totalInferences > 0 {
		stats.ProfileHitRate = float64(o.profileHits) / float64(o.totalInferences)
	}
	for name, observations := range o.observed {
		copied := make([]LengthObservation, len(observations))
		copy(copied, observations)
		stats.Inputs[name] = copied
	}
	return stats
}
