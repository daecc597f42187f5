package scheduler

import (
	"sort"
	"time"
)

// Commitment links a participant to a training on a date. Active is false for
// rejected nominations and for cancelled trainings.
type Commitment struct {
	TrainingID    string
	ParticipantID string
	Date          time.Time
	Active        bool
}

// BusyParticipants returns the sorted participant IDs already committed on
// date to a training other than excludeTrainingID.
func BusyParticipants(commitments []Commitment, date time.Time, excludeTrainingID string) []string {
	seen := make(map[string]struct{})
	for _, c := range commitments {
		if !c.Active || c.TrainingID == excludeTrainingID || !SameDay(c.Date, date) {
			continue
		}
		seen[c.ParticipantID] = struct{}{}
	}

	busy := make([]string, 0, len(seen))
	for id := range seen {
		busy = append(busy, id)
	}
	sort.Strings(busy)
	return busy
}
