package scheduler

import (
	"sort"
	"time"
)

// ConflictKind describes what prevented a hall from being free.
type ConflictKind string

const (
	// ConflictNone is reported for free slots.
	ConflictNone ConflictKind = ""
	// ConflictAvailability indicates the slot falls outside permitted hours.
	ConflictAvailability ConflictKind = "availability"
	// ConflictBlock indicates an explicit block covers the slot.
	ConflictBlock ConflictKind = "block"
	// ConflictTraining indicates a confirmed training already occupies the slot.
	ConflictTraining ConflictKind = "training"
)

// Reasons reported alongside a conflict.
const (
	ReasonOutsideHours  = "outside permitted hours"
	ReasonBookedByOther = "booked by another training"
)

// Block is a hard exclusion on a hall for part of a day.
type Block struct {
	ID       string
	Date     time.Time
	Interval Interval
	Reason   string
}

// Booking is a training occupying, or wishing to occupy, a hall.
type Booking struct {
	ID        string
	Date      time.Time
	Interval  Interval
	Confirmed bool
}

// CheckInput gathers everything needed to decide whether a hall is free.
type CheckInput struct {
	Windows           []Window
	Blocks            []Block
	Bookings          []Booking
	Date              time.Time
	Candidate         Interval
	ExcludeTrainingID string
	OpenWhenUnset     bool
}

// Result is the outcome of a conflict check.
type Result struct {
	Free     bool
	Kind     ConflictKind
	Reason   string
	EntityID string
}

// Check evaluates availability, then blocks, then confirmed bookings.
// Either a block or a booking collision alone is enough to reject; the
// order only decides which reason is reported.
func Check(in CheckInput) Result {
	if !IsWithinAvailability(in.Windows, in.Date, in.Candidate, in.OpenWhenUnset) {
		return Result{Kind: ConflictAvailability, Reason: ReasonOutsideHours}
	}

	blocks := append([]Block(nil), in.Blocks...)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Interval.Start == blocks[j].Interval.Start {
			return blocks[i].ID < blocks[j].ID
		}
		return blocks[i].Interval.Start < blocks[j].Interval.Start
	})
	for _, b := range blocks {
		if !SameDay(b.Date, in.Date) {
			continue
		}
		if Overlaps(b.Interval, in.Candidate) {
			return Result{Kind: ConflictBlock, Reason: b.Reason, EntityID: b.ID}
		}
	}

	bookings := append([]Booking(nil), in.Bookings...)
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Interval.Start == bookings[j].Interval.Start {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Interval.Start < bookings[j].Interval.Start
	})
	for _, b := range bookings {
		if !b.Confirmed || b.ID == in.ExcludeTrainingID || !SameDay(b.Date, in.Date) {
			continue
		}
		if Overlaps(b.Interval, in.Candidate) {
			return Result{Kind: ConflictTraining, Reason: ReasonBookedByOther, EntityID: b.ID}
		}
	}

	return Result{Free: true}
}
