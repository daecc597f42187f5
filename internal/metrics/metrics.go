package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tms"

var (
	once sync.Once

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_decisions_total",
			Help:      "Count of booking request decisions by decision and outcome.",
		},
		[]string{"decision", "outcome"},
	)

	conflictChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_checks_total",
			Help:      "Count of hall conflict checks by result.",
		},
		[]string{"result"},
	)

	attendanceSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_sessions_total",
			Help:      "Count of attendance session starts and stops.",
		},
		[]string{"action"},
	)

	attendanceScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_scans_total",
			Help:      "Count of attendance marks by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingDecisions, conflictChecks, attendanceSessions, attendanceScans)
	})
}

func IncBookingDecision(decision, outcome string) {
	bookingDecisions.WithLabelValues(decision, outcome).Inc()
}

func IncConflictCheck(result string) {
	conflictChecks.WithLabelValues(result).Inc()
}

func IncAttendanceSession(action string) {
	attendanceSessions.WithLabelValues(action).Inc()
}

func IncAttendanceScan(outcome string) {
	attendanceScans.WithLabelValues(outcome).Inc()
}

// Recorder forwards service observations to the package counters.
type Recorder struct{}

func (Recorder) BookingDecision(decision, outcome string) { IncBookingDecision(decision, outcome) }
func (Recorder) ConflictCheck(result string)              { IncConflictCheck(result) }
func (Recorder) SessionAction(action string)              { IncAttendanceSession(action) }
func (Recorder) AttendanceScan(outcome string)            { IncAttendanceScan(outcome) }
