package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a missing parent record.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrStaleState is returned when a guarded update finds the row no longer in the expected state.
	ErrStaleState = errors.New("persistence: stale state")
	// ErrOverlap is returned when a commit would double-book a hall.
	ErrOverlap = errors.New("persistence: overlapping hall booking")
)

// OverlapError names the block or training a commit would have collided with.
type OverlapError struct {
	Kind string
	ID   string
}

func (e *OverlapError) Error() string {
	return "persistence: overlapping hall booking with " + e.Kind + " " + e.ID
}

// Is lets errors.Is match OverlapError against ErrOverlap.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}
