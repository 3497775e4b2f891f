package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionScheduled          SessionStatus = "scheduled"
	SessionCompleted          SessionStatus = "completed"
	SessionCancelledByTeacher SessionStatus = "cancelled-by-teacher"
	SessionCancelledByStudent SessionStatus = "cancelled-by-student"
	SessionCancelledByAdmin   SessionStatus = "cancelled-by-admin"
	SessionNoShow             SessionStatus = "no-show"
	SessionRescheduled        SessionStatus = "rescheduled"
	SessionPendingMakeup      SessionStatus = "pending-makeup"
)

const cancelledPrefix = "cancelled-by-"

var sessionStatuses = map[SessionStatus]struct{}{
	SessionScheduled:          {},
	SessionCompleted:          {},
	SessionCancelledByTeacher: {},
	SessionCancelledByStudent: {},
	SessionCancelledByAdmin:   {},
	SessionNoShow:             {},
	SessionRescheduled:        {},
	SessionPendingMakeup:      {},
}

func (s SessionStatus) Valid() bool {
	_, ok := sessionStatuses[s]
	return ok
}

func (s SessionStatus) IsCancelled() bool {
	return strings.HasPrefix(string(s), cancelledPrefix)
}

// CancelledParty returns the party encoded in a cancelled-by-* status, or ""
// for any other status.
func (s SessionStatus) CancelledParty() CancelParty {
	if !s.IsCancelled() {
		return ""
	}
	return CancelParty(strings.TrimPrefix(string(s), cancelledPrefix))
}

type CancelParty string

const (
	CancelByTeacher CancelParty = "teacher"
	CancelByStudent CancelParty = "student"
	CancelByAdmin   CancelParty = "admin"
)

func (p CancelParty) Valid() bool {
	switch p {
	case CancelByTeacher, CancelByStudent, CancelByAdmin:
		return true
	default:
		return false
	}
}

func (p CancelParty) Status() SessionStatus {
	return SessionStatus(cancelledPrefix + string(p))
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPartiallyPaid PaymentStatus = "partially-paid"
	PaymentPaid          PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPartiallyPaid, PaymentPaid:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank-transfer"
	MethodGCash        PaymentMethod = "gcash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodGCash:
		return true
	default:
		return false
	}
}

type Session struct {
	ID                         uuid.UUID     `json:"id"`
	Date                       string        `json:"date"`
	StartTime                  string        `json:"start_time"`
	EndTime                    string        `json:"end_time"`
	TeacherID                  uuid.UUID     `json:"teacher_id"`
	TeacherName                string        `json:"teacher_name"`
	StudentID                  uuid.UUID     `json:"student_id"`
	StudentName                string        `json:"student_name"`
	Status                     SessionStatus `json:"status"`
	AttendanceConfirmed        bool          `json:"attendance_confirmed"`
	TeacherAttendanceConfirmed bool          `json:"teacher_attendance_confirmed"`
	PaymentStatus              PaymentStatus `json:"payment_status"`
	PaymentConfirmedByTeacher  bool          `json:"payment_confirmed_by_teacher"`
	ExpectedAmount             *float64      `json:"expected_amount,omitempty"`
	CancelledBy                *CancelParty  `json:"cancelled_by,omitempty"`
	CancelReason               *string       `json:"cancel_reason,omitempty"`
	RescheduleDate             *string       `json:"reschedule_date,omitempty"`
	MakeupSessionID            *uuid.UUID    `json:"makeup_session_id,omitempty"`
	Notes                      *string       `json:"notes,omitempty"`
	Version                    int64         `json:"version"`
	CreatedAt                  time.Time     `json:"created_at"`
	UpdatedAt                  time.Time     `json:"updated_at"`
}

type Payment struct {
	ID                 uuid.UUID     `json:"id"`
	SessionID          uuid.UUID     `json:"session_id"`
	TeacherName        string        `json:"teacher_name"`
	StudentName        string        `json:"student_name"`
	Date               string        `json:"date"`
	Amount             float64       `json:"amount"`
	Method             PaymentMethod `json:"method"`
	ProofImageURL      *string       `json:"proof_image_url,omitempty"`
	Notes              *string       `json:"notes,omitempty"`
	AdminFee           float64       `json:"admin_fee"`
	TeacherFee         float64       `json:"teacher_fee"`
	ConfirmedByTeacher bool          `json:"confirmed_by_teacher"`
	CreatedAt          time.Time     `json:"created_at"`
}

type SessionDetail struct {
	Session
	Payments  []Payment `json:"payments"`
	PaidTotal float64   `json:"paid_total"`
}
