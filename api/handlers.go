/*
handlers.go - HTTP API handlers for the canteen payment core

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic. Wire format lives here;
  payload semantics live in core.

ERROR HANDLING:
  core errors map to HTTP status codes in one place (writeDomainError):
  - 400: invalid amounts, malformed passkeys, missing name
  - 401: passkey mismatch (with attemptsLeft), wrong admin PIN
  - 404: identifier resolves to nothing
  - 409: duplicate key, reservation state violations
  - 423: account locked
  - 503: store unavailable
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lunchbox/canteen-core/core"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine       *core.Engine
	Reservations *core.ReservationService
	Ledger       *core.LedgerReader
	Reports      *core.Aggregator
	Log          *logrus.Logger
}

// NewHandler wires the handler from an engine; the remaining services
// share its store.
func NewHandler(engine *core.Engine) *Handler {
	return &Handler{
		Engine:       engine,
		Reservations: core.NewReservationService(engine),
		Ledger:       core.NewLedgerReader(engine.Store),
		Reports:      core.NewAggregator(engine.Store),
		Log:          engine.Log,
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.Store.ListAccounts(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.Engine.CreateAccount(r.Context(), core.CreateAccountInput{
		ID:       req.ID,
		FullName: req.FullName,
		Grade:    req.Grade,
		Section:  req.Section,
		Passkey:  req.Passkey,
		LRN:      req.LRN,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	a, err := core.ResolveAccount(r.Context(), h.Engine.Store, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RenameStudent(w http.ResponseWriter, r *http.Request) {
	var req RenameAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.Engine.RenameAccount(r.Context(), chi.URLParam(r, "id"), req.NewID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (h *Handler) UpdatePasskey(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasskeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Engine.UpdatePasskey(r.Context(), chi.URLParam(r, "id"), req.Passkey); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnlockStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.UnlockAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) VerifyPasskey(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.Engine.VerifyPasskey(r.Context(), req.Identifier, req.Passkey)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.Engine.TopUp(r.Context(), req.Identifier, req.Amount, req.Location)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.Engine.Purchase(r.Context(), req.Identifier, req.Amount, req.Passkey)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.Engine.Withdraw(r.Context(), req.Amount, req.AdminPin)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.Ledger.Recent(r.Context(), r.URL.Query().Get("student"), limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		date = parsed
	}
	stats, err := h.Reports.DailyStats(r.Context(), date, r.URL.Query().Get("location"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyStatsDTO(stats))
}

func (h *Handler) GetWeeklySeries(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	if d := r.URL.Query().Get("end"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
			return
		}
		end = parsed
	}
	buckets, err := h.Reports.WeeklySeries(r.Context(), end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]DayBucketDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = DayBucketDTO{Date: b.Date, Sales: b.Sales.StringFixed(2), Count: b.Count}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.SystemStats(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SystemStatsDTO{
		OutstandingCredit: stats.OutstandingCredit.StringFixed(2),
		TotalSystemCash:   stats.TotalSystemCash.StringFixed(2),
		AccountCount:      stats.AccountCount,
		IndebtedCount:     stats.IndebtedCount,
	})
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.Reservations.Create(r.Context(), req.Identifier, req.Amount, req.ScheduledDate, req.TimeSlot)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(res))
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.List(r.Context(), core.RequestStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]ReservationDTO, len(list))
	for i, res := range list {
		dtos[i] = toReservationDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AcceptReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Accept(r.Context(), core.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

func (h *Handler) ResolveReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Resolve(r.Context(), core.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.Notifications(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]NotificationDTO, len(list))
	for i, n := range list {
		dtos[i] = toNotificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps core errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var pe *core.PasskeyError
	if errors.As(err, &pe) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:        "invalid passkey",
			AttemptsLeft: &pe.AttemptsLeft,
		})
		return
	}

	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrAccountLocked):
		writeError(w, http.StatusLocked, err.Error())
	case errors.Is(err, core.ErrInvalidPin), errors.Is(err, core.ErrInvalidPasskey):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, core.ErrDuplicateID),
		errors.Is(err, core.ErrAlreadyResolved),
		errors.Is(err, core.ErrNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.Log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
