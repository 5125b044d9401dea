/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts arrive as JSON numbers or strings (decimal.Decimal accepts
  both) and are rendered as fixed two-decimal strings, so clients never
  see binary-float artifacts.

SECURITY:
  AccountDTO never carries the passkey hash. There is no field for it.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunchbox/canteen-core/core"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	Key            string `json:"key"`
	StudentID      string `json:"studentId"`
	LRN            string `json:"lrn,omitempty"`
	FullName       string `json:"fullName"`
	Grade          string `json:"grade,omitempty"`
	Section        string `json:"section,omitempty"`
	GradeSection   string `json:"gradeSection,omitempty"`
	Balance        string `json:"balance"`
	AccountLocked  bool   `json:"accountLocked"`
	FailedAttempts int    `json:"failedAttempts"`
	QRData         string `json:"qrData"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

func toAccountDTO(a *core.Account) AccountDTO {
	return AccountDTO{
		Key:            string(a.Key),
		StudentID:      a.StudentID,
		LRN:            a.LRN,
		FullName:       a.FullName,
		Grade:          a.Grade,
		Section:        a.Section,
		GradeSection:   a.GradeSection(),
		Balance:        a.Balance.StringFixed(2),
		AccountLocked:  a.AccountLocked,
		FailedAttempts: a.FailedAttempts,
		QRData:         a.QRData,
		CreatedAt:      formatTime(a.CreatedAt),
	}
}

type CreateAccountRequest struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Grade    string `json:"grade"`
	Section  string `json:"section"`
	Passkey  string `json:"passkey"`
	LRN      string `json:"lrn"`
}

type RenameAccountRequest struct {
	NewID string `json:"newId"`
}

type UpdatePasskeyRequest struct {
	Passkey string `json:"passkey"`
}

type VerifyRequest struct {
	Identifier string `json:"identifier"`
	Passkey    string `json:"passkey"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

type TopUpRequest struct {
	Identifier string          `json:"identifier"`
	Amount     decimal.Decimal `json:"amount"`
	Location   string          `json:"location"`
}

type PurchaseRequest struct {
	Identifier string          `json:"identifier"`
	Amount     decimal.Decimal `json:"amount"`
	Passkey    string          `json:"passkey"`
}

type WithdrawRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	AdminPin string          `json:"adminPin"`
}

type TransactionDTO struct {
	ID              string `json:"id"`
	StudentKey      string `json:"studentKey,omitempty"`
	StudentName     string `json:"studentName,omitempty"`
	Grade           string `json:"grade,omitempty"`
	Section         string `json:"section,omitempty"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	PreviousBalance string `json:"previousBalance,omitempty"`
	NewBalance      string `json:"newBalance,omitempty"`
	Location        string `json:"location,omitempty"`
	Timestamp       string `json:"timestamp"`
}

func toTransactionDTO(tx core.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          string(tx.ID),
		StudentKey:  string(tx.StudentKey),
		StudentName: tx.StudentName,
		Grade:       tx.Grade,
		Section:     tx.Section,
		Type:        string(tx.Type),
		Amount:      tx.Amount.StringFixed(2),
		Location:    tx.Location,
		Timestamp:   formatTime(tx.Timestamp),
	}
	if tx.PreviousBalance != nil {
		dto.PreviousBalance = tx.PreviousBalance.StringFixed(2)
	}
	if tx.NewBalance != nil {
		dto.NewBalance = tx.NewBalance.StringFixed(2)
	}
	return dto
}

// =============================================================================
// RESERVATIONS & NOTIFICATIONS
// =============================================================================

type CreateReservationRequest struct {
	Identifier    string          `json:"identifier"`
	Amount        decimal.Decimal `json:"amount"`
	ScheduledDate string          `json:"scheduledDate"`
	TimeSlot      string          `json:"timeSlot"`
}

type ReservationDTO struct {
	ID            string `json:"id"`
	StudentKey    string `json:"studentKey"`
	StudentName   string `json:"studentName"`
	GradeSection  string `json:"gradeSection,omitempty"`
	Amount        string `json:"amount"`
	ScheduledDate string `json:"scheduledDate,omitempty"`
	TimeSlot      string `json:"timeSlot,omitempty"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	ApprovedAt    string `json:"approvedAt,omitempty"`
	ResolvedAt    string `json:"resolvedAt,omitempty"`
}

func toReservationDTO(r *core.TopupRequest) ReservationDTO {
	dto := ReservationDTO{
		ID:            string(r.ID),
		StudentKey:    string(r.StudentKey),
		StudentName:   r.StudentName,
		GradeSection:  r.GradeSection,
		Amount:        r.Amount.StringFixed(2),
		ScheduledDate: r.ScheduledDate,
		TimeSlot:      r.TimeSlot,
		Status:        string(r.Status),
		Timestamp:     formatTime(r.Timestamp),
	}
	if r.ApprovedAt != nil {
		dto.ApprovedAt = formatTime(*r.ApprovedAt)
	}
	if r.ResolvedAt != nil {
		dto.ResolvedAt = formatTime(*r.ResolvedAt)
	}
	return dto
}

type NotificationDTO struct {
	ID         string `json:"id"`
	StudentKey string `json:"studentKey"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Read       bool   `json:"read"`
	Timestamp  string `json:"timestamp"`
}

func toNotificationDTO(n *core.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID,
		StudentKey: string(n.StudentKey),
		Title:      n.Title,
		Message:    n.Message,
		Read:       n.Read,
		Timestamp:  formatTime(n.Timestamp),
	}
}

// =============================================================================
// REPORTS
// =============================================================================

type DailyStatsDTO struct {
	Date             string `json:"date"`
	TotalSales       string `json:"totalSales"`
	CashCollected    string `json:"cashCollected"`
	CreditIssued     string `json:"creditIssued"`
	PurchaseCount    int    `json:"purchaseCount"`
	TodayTopups      string `json:"todayTopups"`
	TodayWithdrawals string `json:"todayWithdrawals"`
}

func toDailyStatsDTO(s *core.DailyStats) DailyStatsDTO {
	return DailyStatsDTO{
		Date:             s.Date,
		TotalSales:       s.TotalSales.StringFixed(2),
		CashCollected:    s.CashCollected.StringFixed(2),
		CreditIssued:     s.CreditIssued.StringFixed(2),
		PurchaseCount:    s.PurchaseCount,
		TodayTopups:      s.TodayTopups.StringFixed(2),
		TodayWithdrawals: s.TodayWithdrawals.StringFixed(2),
	}
}

type DayBucketDTO struct {
	Date  string `json:"date"`
	Sales string `json:"sales"`
	Count int    `json:"count"`
}

type SystemStatsDTO struct {
	OutstandingCredit string `json:"outstandingCredit"`
	TotalSystemCash   string `json:"totalSystemCash"`
	AccountCount      int    `json:"accountCount"`
	IndebtedCount     int    `json:"indebtedCount"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error        string `json:"error"`
	AttemptsLeft *int   `json:"attemptsLeft,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
