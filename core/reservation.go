/*
reservation.go - Scheduled top-up request workflow

PURPOSE:
  Parents reserve a time slot to hand cash to the canteen admin. The
  request moves through a small state machine; the terminal transition is
  the only one that moves money.

STATE MACHINE:
  ┌─────────┐  admin accepts  ┌──────────┐  cash collected  ┌──────────┐
  │ PENDING │ ──────────────▶ │ ACCEPTED │ ───────────────▶ │ RESOLVED │
  └─────────┘                 └──────────┘                  └──────────┘

  Accept requires PENDING. Resolve rejects only RESOLVED: in practice the
  admin may collect cash from a request that was never formally accepted,
  so PENDING -> RESOLVED is allowed. Re-resolving is always rejected
  (ErrAlreadyResolved) - this is the idempotency guard that guarantees
  exactly one top-up per reservation.

ATOMICITY:
  Resolution runs the status flip, the balance credit, the ledger append,
  and the notification insert inside ONE store transaction. If the student
  record no longer exists the request is still marked RESOLVED without a
  transfer - money is never credited to a deleted account.

SEE ALSO:
  - engine.go: applyTopUp, shared with the direct top-up path
  - types.go: Notification
*/
package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// TOPUP REQUEST
// =============================================================================

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestResolved RequestStatus = "RESOLVED"
)

// TopupRequest is a reservation for a future, admin-mediated top-up.
// StudentName and GradeSection are snapshots taken at creation.
type TopupRequest struct {
	ID           RequestID
	StudentKey   AccountKey
	StudentName  string
	GradeSection string

	Amount        decimal.Decimal
	ScheduledDate string // YYYY-MM-DD as supplied by the client
	TimeSlot      string

	Status     RequestStatus
	Timestamp  time.Time
	ApprovedAt *time.Time
	ResolvedAt *time.Time
}

// =============================================================================
// RESERVATION SERVICE
// =============================================================================

// ReservationService drives the request lifecycle. It shares the engine's
// store and top-up logic so resolution produces the same ledger entries as
// a direct admin top-up.
type ReservationService struct {
	Store  TxStore
	Engine *Engine
	Log    *logrus.Logger
}

func NewReservationService(engine *Engine) *ReservationService {
	return &ReservationService{Store: engine.Store, Engine: engine, Log: engine.Log}
}

// Create registers a PENDING reservation for a resolvable student.
func (rs *ReservationService) Create(ctx context.Context, identifier string, amount decimal.Decimal, scheduledDate, timeSlot string) (*TopupRequest, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	a, err := ResolveAccount(ctx, rs.Store, identifier)
	if err != nil {
		return nil, err
	}

	req := &TopupRequest{
		ID:            RequestID(uuid.NewString()),
		StudentKey:    a.Key,
		StudentName:   a.FullName,
		GradeSection:  a.GradeSection(),
		Amount:        Round2(amount),
		ScheduledDate: strings.TrimSpace(scheduledDate),
		TimeSlot:      strings.TrimSpace(timeSlot),
		Status:        RequestPending,
		Timestamp:     rs.Engine.now(),
	}
	if err := rs.Store.PutRequest(ctx, req); err != nil {
		return nil, err
	}

	rs.Engine.Events.Emit(EventReservationUpdate, map[string]any{
		"requestId": req.ID,
		"status":    req.Status,
	})
	return req, nil
}

// Accept moves PENDING -> ACCEPTED and notifies the student.
func (rs *ReservationService) Accept(ctx context.Context, id RequestID) (*TopupRequest, error) {
	var out *TopupRequest
	err := rs.Store.WithTx(ctx, func(s Store) error {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != RequestPending {
			return ErrNotPending
		}

		now := rs.Engine.now()
		req.Status = RequestAccepted
		req.ApprovedAt = &now
		if err := s.PutRequest(ctx, req); err != nil {
			return err
		}

		n := &Notification{
			ID:         uuid.NewString(),
			StudentKey: req.StudentKey,
			Title:      "Reservation accepted",
			Message:    "Your top-up reservation for " + req.ScheduledDate + " (" + req.TimeSlot + ") was accepted.",
			Timestamp:  now,
		}
		if err := s.PutNotification(ctx, n); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.Engine.Events.Emit(EventReservationUpdate, map[string]any{
		"requestId": out.ID,
		"status":    out.Status,
	})
	return out, nil
}

// Resolve marks the reservation RESOLVED and performs exactly one top-up.
// Rejects only when already RESOLVED; an unaccepted PENDING request may be
// resolved directly (the admin simply collected the cash).
func (rs *ReservationService) Resolve(ctx context.Context, id RequestID) (*TopupRequest, error) {
	var (
		out      *TopupRequest
		transfer *Transaction
	)
	err := rs.Store.WithTx(ctx, func(s Store) error {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status == RequestResolved {
			return ErrAlreadyResolved
		}

		now := rs.Engine.now()
		transfer = nil

		a, err := s.GetAccount(ctx, req.StudentKey)
		switch {
		case err == nil:
			tx, err := rs.Engine.applyTopUp(ctx, s, a, req.Amount, LocationAdmin)
			if err != nil {
				return err
			}
			transfer = tx

			n := &Notification{
				ID:         uuid.NewString(),
				StudentKey: req.StudentKey,
				Title:      "Payment received",
				Message:    "Your balance was topped up by " + req.Amount.StringFixed(2) + ".",
				Timestamp:  now,
			}
			if err := s.PutNotification(ctx, n); err != nil {
				return err
			}
		case IsNotFound(err):
			// Student deleted since the reservation was made. Mark resolved
			// without a transfer so the request cannot linger forever.
		default:
			return err
		}

		req.Status = RequestResolved
		req.ResolvedAt = &now
		if err := s.PutRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.Log.WithFields(logrus.Fields{
		"operation": "resolve",
		"request":   out.ID,
		"student":   out.StudentKey,
		"credited":  transfer != nil,
	}).Info("reservation resolved")
	rs.Engine.Events.Emit(EventReservationUpdate, map[string]any{
		"requestId": out.ID,
		"status":    out.Status,
	})
	if transfer != nil {
		rs.Engine.Events.Emit(EventBalanceUpdate, map[string]any{
			"studentKey": transfer.StudentKey,
			"balance":    transfer.NewBalance,
		})
	}
	return out, nil
}

// List returns reservations, optionally filtered by status.
func (rs *ReservationService) List(ctx context.Context, status RequestStatus) ([]*TopupRequest, error) {
	return rs.Store.ListRequests(ctx, status)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifications returns a student's notifications, newest-first.
func (rs *ReservationService) Notifications(ctx context.Context, identifier string) ([]*Notification, error) {
	a, err := ResolveAccount(ctx, rs.Store, identifier)
	if err != nil {
		return nil, err
	}
	return rs.Store.NotificationsByStudent(ctx, a.Key)
}

// MarkRead flips the read flag on one notification.
func (rs *ReservationService) MarkRead(ctx context.Context, id string) error {
	return rs.Store.WithTx(ctx, func(s Store) error {
		n, err := s.GetNotification(ctx, id)
		if err != nil {
			return err
		}
		n.Read = true
		return s.PutNotification(ctx, n)
	})
}
