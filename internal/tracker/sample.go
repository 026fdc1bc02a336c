package tracker

import (
	"math/rand/v2"

	"github.com/dyluth/bandstand/pkg/realtime"
)

// DefaultSamples are the instruments AddSample chooses from when none are configured.
func DefaultSamples() []realtime.RecordDraft {
	return []realtime.RecordDraft{
		{Name: "Electric Guitar", Type: "String"},
		{Name: "Piano", Type: "Keyboard"},
		{Name: "Drums", Type: "Percussion"},
		{Name: "Violin", Type: "String"},
		{Name: "Trumpet", Type: "Brass"},
	}
}

// PickSample returns a uniformly random entry of samples, falling back to
// DefaultSamples when samples is empty.
func PickSample(samples []realtime.RecordDraft) realtime.RecordDraft {
	if len(samples) == 0 {
		samples = DefaultSamples()
	}
	return samples[rand.IntN(len(samples))]
}
