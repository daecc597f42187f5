package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/events"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// storeStub keeps every repository in memory and mirrors the guarded writes of
// the SQLite store closely enough for service tests.
type storeStub struct {
	mu          sync.Mutex
	halls       map[string]Hall
	windows     map[string]AvailabilityWindow
	blocks      map[string]Block
	trainings   map[string]Training
	requests    map[string]BookingRequest
	attendance  map[string]Attendance
	nominations map[string]Nomination

	// commitHook runs inside CommitApproval before the guards are checked.
	commitHook func()
	// updateHook runs inside UpdateTraining before the status guard.
	updateHook func()
	// nominationHook runs inside CreateNomination before the insert.
	nominationHook func()
	listErr        error
}

func newStoreStub() *storeStub {
	return &storeStub{
		halls:       map[string]Hall{},
		windows:     map[string]AvailabilityWindow{},
		blocks:      map[string]Block{},
		trainings:   map[string]Training{},
		requests:    map[string]BookingRequest{},
		attendance:  map[string]Attendance{},
		nominations: map[string]Nomination{},
	}
}

func (s *storeStub) CreateHall(_ context.Context, hall Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.halls {
		if h.Name == hall.Name {
			return persistence.ErrDuplicate
		}
	}
	s.halls[hall.ID] = hall
	return nil
}

func (s *storeStub) UpdateHall(_ context.Context, hall Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[hall.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.halls[hall.ID] = hall
	return nil
}

func (s *storeStub) GetHall(_ context.Context, id string) (Hall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hall, ok := s.halls[id]
	if !ok {
		return Hall{}, persistence.ErrNotFound
	}
	return hall, nil
}

func (s *storeStub) ListHalls(context.Context) ([]Hall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Hall, 0, len(s.halls))
	for _, h := range s.halls {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *storeStub) DeleteHall(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, t := range s.trainings {
		if t.HallID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(s.halls, id)
	return nil
}

func (s *storeStub) CreateWindow(_ context.Context, window AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[window.ID] = window
	return nil
}

func (s *storeStub) DeleteWindow(_ context.Context, hallID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok || w.HallID != hallID {
		return persistence.ErrNotFound
	}
	delete(s.windows, id)
	return nil
}

func (s *storeStub) ListWindows(_ context.Context, hallID string) ([]AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AvailabilityWindow
	for _, w := range s.windows {
		if w.HallID == hallID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *storeStub) CreateBlock(_ context.Context, block Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[block.ID] = block
	return nil
}

func (s *storeStub) GetBlock(_ context.Context, id string) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return Block{}, persistence.ErrNotFound
	}
	return b, nil
}

func (s *storeStub) DeleteBlock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}

func (s *storeStub) ListBlocks(_ context.Context, hallID string, date *time.Time) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Block
	for _, b := range s.blocks {
		if b.HallID != hallID {
			continue
		}
		if date != nil && !scheduler.SameDay(b.Date, *date) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (s *storeStub) CreateTraining(_ context.Context, training Training) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trainings[training.ID] = training
	return nil
}

func (s *storeStub) UpdateTraining(_ context.Context, training Training) error {
	if s.updateHook != nil {
		s.updateHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.trainings[training.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if current.Status != training.Status {
		return persistence.ErrStaleState
	}
	training.Session = current.Session
	s.trainings[training.ID] = training
	return nil
}

func (s *storeStub) GetTraining(_ context.Context, id string) (Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trainings[id]
	if !ok {
		return Training{}, persistence.ErrNotFound
	}
	return t, nil
}

func (s *storeStub) ListTrainings(_ context.Context, filter TrainingFilter) ([]Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Training
	for _, t := range s.trainings {
		if filter.HallID != "" && t.HallID != filter.HallID {
			continue
		}
		if filter.TrainerID != "" && t.TrainerID != filter.TrainerID {
			continue
		}
		if filter.Date != nil && !scheduler.SameDay(t.Date, *filter.Date) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].ID < out[j].ID
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func containsStatus(statuses []TrainingStatus, status TrainingStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *storeStub) DeleteTraining(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trainings[id]; !ok {
		return persistence.ErrNotFound
	}
	for rid, r := range s.requests {
		if r.TrainingID == id {
			delete(s.requests, rid)
		}
	}
	for nid, n := range s.nominations {
		if n.TrainingID == id {
			delete(s.nominations, nid)
		}
	}
	for aid, a := range s.attendance {
		if a.TrainingID == id {
			delete(s.attendance, aid)
		}
	}
	delete(s.trainings, id)
	return nil
}

func (s *storeStub) SaveSession(_ context.Context, trainingID string, session AttendanceSession, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trainings[trainingID]
	if !ok {
		return persistence.ErrNotFound
	}
	t.Session = session
	t.UpdatedAt = updatedAt
	s.trainings[trainingID] = t
	return nil
}

func (s *storeStub) UpdateTrainingStatus(_ context.Context, id string, from, to TrainingStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trainings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if t.Status != from {
		return persistence.ErrStaleState
	}
	t.Status = to
	t.UpdatedAt = updatedAt
	s.trainings[id] = t
	return nil
}

func (s *storeStub) CreateRequest(_ context.Context, request BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.TrainingID == request.TrainingID && r.Status == RequestPending {
			return persistence.ErrDuplicate
		}
	}
	t, ok := s.trainings[request.TrainingID]
	if !ok {
		return persistence.ErrForeignKeyViolation
	}
	if t.HallID != request.HallID {
		t.HallID = request.HallID
		s.trainings[t.ID] = t
	}
	s.requests[request.ID] = request
	return nil
}

func (s *storeStub) GetRequest(_ context.Context, id string) (BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return BookingRequest{}, persistence.ErrNotFound
	}
	return r, nil
}

func (s *storeStub) ListRequests(_ context.Context, filter RequestFilter) ([]BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BookingRequest
	for _, r := range s.requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.HallID != "" && r.HallID != filter.HallID {
			continue
		}
		if filter.TrainingID != "" && r.TrainingID != filter.TrainingID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ui, uj := out[i].Priority == PriorityUrgent, out[j].Priority == PriorityUrgent
		if ui != uj {
			return ui
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *storeStub) CommitApproval(_ context.Context, commit ApprovalCommit) error {
	if s.commitHook != nil {
		s.commitHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[commit.RequestID]
	if !ok {
		return persistence.ErrNotFound
	}
	t, ok := s.trainings[commit.TrainingID]
	if !ok {
		return persistence.ErrNotFound
	}
	if r.Status != RequestPending || t.Status != TrainingDraft {
		return persistence.ErrStaleState
	}
	for _, b := range s.blocks {
		if b.HallID == commit.HallID && scheduler.SameDay(b.Date, t.Date) &&
			scheduler.Overlaps(scheduler.Interval{Start: b.Start, End: b.End}, t.Interval()) {
			return &persistence.OverlapError{Kind: "block", ID: b.ID}
		}
	}
	for _, other := range s.trainings {
		if other.ID != t.ID && other.HallID == commit.HallID && other.Status.IsConfirmed() &&
			scheduler.SameDay(other.Date, t.Date) && scheduler.Overlaps(other.Interval(), t.Interval()) {
			return &persistence.OverlapError{Kind: "training", ID: other.ID}
		}
	}
	r.Status = RequestApproved
	r.DecidedBy = commit.DecidedBy
	decided := commit.DecidedAt
	r.DecidedAt = &decided
	s.requests[r.ID] = r
	t.Status = TrainingScheduled
	t.HallID = commit.HallID
	s.trainings[t.ID] = t
	return nil
}

func (s *storeStub) CommitRejection(_ context.Context, commit RejectionCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[commit.RequestID]
	if !ok {
		return persistence.ErrNotFound
	}
	if r.Status != RequestPending {
		return persistence.ErrStaleState
	}
	r.Status = RequestRejected
	r.DecidedBy = commit.DecidedBy
	r.RejectionReason = commit.Reason
	decided := commit.DecidedAt
	r.DecidedAt = &decided
	s.requests[r.ID] = r
	return nil
}

func (s *storeStub) RecordAttendance(_ context.Context, attendance Attendance) (Attendance, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attendance {
		if a.TrainingID == attendance.TrainingID && a.ParticipantID == attendance.ParticipantID {
			return a, false, nil
		}
	}
	s.attendance[attendance.ID] = attendance
	for id, n := range s.nominations {
		if n.TrainingID == attendance.TrainingID && n.ParticipantID == attendance.ParticipantID &&
			(n.Status == NominationNominated || n.Status == NominationApproved) {
			n.Status = NominationAttended
			s.nominations[id] = n
		}
	}
	return attendance, true, nil
}

func (s *storeStub) ListAttendance(_ context.Context, trainingID string) ([]Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Attendance
	for _, a := range s.attendance {
		if a.TrainingID == trainingID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *storeStub) ListAttendanceByParticipant(_ context.Context, participantID string) ([]Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Attendance
	for _, a := range s.attendance {
		if a.ParticipantID == participantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarkedAt.After(out[j].MarkedAt) })
	return out, nil
}

func (s *storeStub) CreateNomination(_ context.Context, nomination Nomination) error {
	if s.nominationHook != nil {
		s.nominationHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nominations {
		if n.TrainingID == nomination.TrainingID && n.ParticipantID == nomination.ParticipantID && n.Status != NominationRejected {
			return persistence.ErrDuplicate
		}
	}
	s.nominations[nomination.ID] = nomination
	return nil
}

func (s *storeStub) GetNomination(_ context.Context, id string) (Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nominations[id]
	if !ok {
		return Nomination{}, persistence.ErrNotFound
	}
	return n, nil
}

func (s *storeStub) ListNominations(_ context.Context, filter NominationFilter) ([]Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter.TrainingIDs != nil && len(filter.TrainingIDs) == 0 {
		return nil, nil
	}
	inTrainings := map[string]bool{}
	for _, id := range filter.TrainingIDs {
		inTrainings[id] = true
	}
	var out []Nomination
	for _, n := range s.nominations {
		if filter.TrainingID != "" && n.TrainingID != filter.TrainingID {
			continue
		}
		if len(inTrainings) > 0 && !inTrainings[n.TrainingID] {
			continue
		}
		if filter.ParticipantID != "" && n.ParticipantID != filter.ParticipantID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if st == n.Status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *storeStub) UpdateNominationStatus(_ context.Context, id string, from, to NominationStatus, reason string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nominations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if n.Status != from {
		return persistence.ErrStaleState
	}
	n.Status = to
	n.RejectionReason = reason
	n.UpdatedAt = updatedAt
	s.nominations[id] = n
	return nil
}

// keyedLockStub is a minimal in-process Locker; failKeys makes Acquire fail.
type keyedLockStub struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	failKeys map[string]bool
	acquired []string
}

func newKeyedLockStub() *keyedLockStub {
	return &keyedLockStub{locks: map[string]*sync.Mutex{}, failKeys: map[string]bool{}}
}

func (l *keyedLockStub) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.failKeys[key] {
		l.mu.Unlock()
		return nil, context.DeadlineExceeded
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.acquired = append(l.acquired, key)
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type publisherRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *publisherRecorder) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *publisherRecorder) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type metricsRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{counts: map[string]int{}}
}

func (m *metricsRecorder) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *metricsRecorder) BookingDecision(decision, outcome string) { m.inc(decision + ":" + outcome) }
func (m *metricsRecorder) ConflictCheck(result string)              { m.inc("check:" + result) }
func (m *metricsRecorder) SessionAction(action string)              { m.inc("session:" + action) }
func (m *metricsRecorder) AttendanceScan(outcome string)            { m.inc("scan:" + outcome) }

func (m *metricsRecorder) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

var testDay = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var (
	adminPrincipal   = Principal{UserID: "admin-1", Role: RoleAdmin}
	officerPrincipal = Principal{UserID: "officer-1", Role: RoleProgramOfficer}
	trainerPrincipal = Principal{UserID: "trainer-1", Role: RoleTrainer}
)

func (s *storeStub) seedHall(id string) Hall {
	hall := Hall{ID: id, Name: "Hall " + id, Location: "Block A", Capacity: 40}
	s.halls[id] = hall
	return hall
}

func (s *storeStub) seedTraining(id, hallID, start, end string, status TrainingStatus) Training {
	training := Training{
		ID:        id,
		Title:     "Training " + id,
		HallID:    hallID,
		Date:      testDay,
		Start:     scheduler.MustTimeOfDay(start),
		End:       scheduler.MustTimeOfDay(end),
		Capacity:  20,
		TrainerID: trainerPrincipal.UserID,
		CreatedBy: officerPrincipal.UserID,
		Status:    status,
	}
	s.trainings[id] = training
	return training
}

func (s *storeStub) seedRequest(id, trainingID string) BookingRequest {
	t := s.trainings[trainingID]
	request := BookingRequest{
		ID:          id,
		TrainingID:  trainingID,
		HallID:      t.HallID,
		RequestedBy: officerPrincipal.UserID,
		Priority:    PriorityNormal,
		Status:      RequestPending,
		CreatedAt:   testDay,
	}
	s.requests[id] = request
	return request
}

func (s *storeStub) seedBlock(id, hallID, start, end string) Block {
	block := Block{
		ID:     id,
		HallID: hallID,
		Date:   testDay,
		Start:  scheduler.MustTimeOfDay(start),
		End:    scheduler.MustTimeOfDay(end),
		Reason: "maintenance",
	}
	s.blocks[id] = block
	return block
}

func newAvailabilityForStub(store *storeStub, metrics Metrics) *AvailabilityService {
	return NewAvailabilityService(AvailabilityServiceDeps{
		Halls:         store,
		Windows:       store,
		Blocks:        store,
		Trainings:     store,
		Nominations:   store,
		OpenWhenUnset: true,
		Metrics:       metrics,
	})
}
