package core

// =============================================================================
// EVENT SINK - Post-commit fan-out to connected clients
// =============================================================================

// Event names consumed by the realtime layer and the dashboards behind it.
const (
	EventBalanceUpdate     = "balanceUpdate"
	EventStudentCreated    = "studentCreated"
	EventStudentDeleted    = "studentDeleted"
	EventReservationUpdate = "reservationUpdate"
)

// EventSink receives fire-and-forget notifications after a successful
// commit, never before. Delivery is best-effort; the engine does not block
// on it and ignores sink failures.
type EventSink interface {
	Emit(event string, payload any)
}

// NopSink discards events. Used in tests and batch tooling.
type NopSink struct{}

func (NopSink) Emit(string, any) {}
