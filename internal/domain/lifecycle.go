package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
)

type Action string

const (
	ActionMarkStudentAttendance    Action = "mark-student-attendance"
	ActionConfirmTeacherAttendance Action = "confirm-teacher-attendance"
	ActionCancel                   Action = "cancel"
	ActionReschedule               Action = "reschedule"
	ActionMarkPendingMakeup        Action = "mark-pending-makeup"
	ActionScheduleMakeup           Action = "schedule-makeup"
	ActionMarkNoShow               Action = "mark-no-show"
	ActionConfirmPaymentReceipt    Action = "confirm-payment-receipt"
)

func (a Action) Valid() bool {
	switch a {
	case ActionMarkStudentAttendance, ActionConfirmTeacherAttendance, ActionCancel,
		ActionReschedule, ActionMarkPendingMakeup, ActionScheduleMakeup,
		ActionMarkNoShow, ActionConfirmPaymentReceipt:
		return true
	default:
		return false
	}
}

type ActionRequest struct {
	Action    Action
	Party     models.CancelParty
	Reason    string
	Date      string
	StartTime string
	EndTime   string
}

type LifecycleRules struct {
	// RequireDualAttendance holds a session in scheduled until both the
	// student and the teacher attendance are confirmed.
	RequireDualAttendance bool
}

// SuccessorDraft describes the session to create for a reschedule or makeup.
type SuccessorDraft struct {
	Date           string
	StartTime      string
	EndTime        string
	TeacherID      uuid.UUID
	StudentID      uuid.UUID
	ExpectedAmount *float64
	Notes          *string
}

type Outcome struct {
	Session        models.Session
	PreviousStatus models.SessionStatus
	Successor      *SuccessorDraft
}

// ApplyAction validates a lifecycle action against the actor's permissions
// and the session's current state and returns the updated session. The input
// session is not modified.
func ApplyAction(actor Actor, session models.Session, req ActionRequest, rules LifecycleRules) (Outcome, error) {
	if !req.Action.Valid() {
		return Outcome{}, NewValidationError("action", fmt.Sprintf("unknown action %q", req.Action))
	}

	next := session
	outcome := Outcome{PreviousStatus: session.Status}

	switch req.Action {
	case ActionMarkStudentAttendance:
		if err := AuthorizeSession(actor, &session, CapMarkStudentAttendance); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled); err != nil {
			return Outcome{}, err
		}
		if session.AttendanceConfirmed {
			return Outcome{}, &StateConflictError{Action: string(req.Action), Reason: "student attendance already confirmed"}
		}
		next.AttendanceConfirmed = true
		if !rules.RequireDualAttendance || next.TeacherAttendanceConfirmed {
			next.Status = models.SessionCompleted
		}

	case ActionConfirmTeacherAttendance:
		if actor.ID == session.TeacherID {
			return Outcome{}, &PermissionError{Role: actor.Role, Action: "confirm their own attendance"}
		}
		if err := AuthorizeSession(actor, &session, CapConfirmTeacherAttendance); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled); err != nil {
			return Outcome{}, err
		}
		if session.TeacherAttendanceConfirmed {
			return Outcome{}, &StateConflictError{Action: string(req.Action), Reason: "teacher attendance already confirmed"}
		}
		next.TeacherAttendanceConfirmed = true
		if rules.RequireDualAttendance && next.AttendanceConfirmed {
			next.Status = models.SessionCompleted
		}

	case ActionCancel:
		if !req.Party.Valid() {
			return Outcome{}, NewValidationError("party", "must be one of teacher, student, admin")
		}
		if err := authorizeCancel(actor, &session, req.Party); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled); err != nil {
			return Outcome{}, err
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return Outcome{}, NewValidationError("reason", "a cancellation reason is required")
		}
		party := req.Party
		next.Status = party.Status()
		next.CancelledBy = &party
		next.CancelReason = &reason

	case ActionReschedule:
		if err := AuthorizeSession(actor, &session, CapReschedule); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled); err != nil {
			return Outcome{}, err
		}
		draft, err := buildSuccessor(session, req)
		if err != nil {
			return Outcome{}, err
		}
		date := draft.Date
		next.Status = models.SessionRescheduled
		next.RescheduleDate = &date
		outcome.Successor = draft

	case ActionMarkPendingMakeup:
		if err := AuthorizeSession(actor, &session, CapMarkPendingMakeup); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled, models.SessionRescheduled); err != nil {
			return Outcome{}, err
		}
		next.Status = models.SessionPendingMakeup

	case ActionScheduleMakeup:
		if err := AuthorizeSession(actor, &session, CapManageSessions); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionPendingMakeup); err != nil {
			return Outcome{}, err
		}
		if session.MakeupSessionID != nil {
			return Outcome{}, &StateConflictError{Action: string(req.Action), Reason: "a makeup session is already scheduled"}
		}
		draft, err := buildSuccessor(session, req)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Successor = draft

	case ActionMarkNoShow:
		if err := AuthorizeSession(actor, &session, CapMarkNoShow); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionScheduled); err != nil {
			return Outcome{}, err
		}
		next.Status = models.SessionNoShow

	case ActionConfirmPaymentReceipt:
		if err := AuthorizeSession(actor, &session, CapConfirmPaymentReceipt); err != nil {
			return Outcome{}, err
		}
		if err := requireStatus(req.Action, session.Status, models.SessionCompleted); err != nil {
			return Outcome{}, err
		}
		if session.PaymentConfirmedByTeacher {
			return Outcome{}, &StateConflictError{Action: string(req.Action), Reason: "payment receipt already confirmed"}
		}
		next.PaymentConfirmedByTeacher = true
	}

	if err := CheckSessionInvariants(next); err != nil {
		return Outcome{}, err
	}
	outcome.Session = next
	return outcome, nil
}

// LinkSuccessor records the created reschedule/makeup session on the original.
func LinkSuccessor(session models.Session, successorID uuid.UUID) models.Session {
	id := successorID
	session.MakeupSessionID = &id
	return session
}

// CheckSessionInvariants enforces the cancellation and reschedule field rules.
func CheckSessionInvariants(session models.Session) error {
	if !session.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown session status %q", session.Status))
	}
	if session.PaymentStatus != "" && !session.PaymentStatus.Valid() {
		return NewValidationError("payment_status", fmt.Sprintf("unknown payment status %q", session.PaymentStatus))
	}

	if session.Status.IsCancelled() {
		if session.CancelledBy == nil || *session.CancelledBy != session.Status.CancelledParty() {
			return NewValidationError("cancelled_by", fmt.Sprintf("must be %q for status %s", session.Status.CancelledParty(), session.Status))
		}
		if session.CancelReason == nil || strings.TrimSpace(*session.CancelReason) == "" {
			return NewValidationError("cancel_reason", "is required for a cancelled session")
		}
	} else if session.CancelledBy != nil {
		return NewValidationError("cancelled_by", fmt.Sprintf("must be empty for status %s", session.Status))
	}

	followUp := session.Status == models.SessionRescheduled || session.Status == models.SessionPendingMakeup
	if !followUp && session.RescheduleDate != nil {
		return NewValidationError("reschedule_date", fmt.Sprintf("must be empty for status %s", session.Status))
	}
	if !followUp && session.MakeupSessionID != nil {
		return NewValidationError("makeup_session_id", fmt.Sprintf("must be empty for status %s", session.Status))
	}
	if session.Status == models.SessionRescheduled && session.RescheduleDate == nil {
		return NewValidationError("reschedule_date", "is required for a rescheduled session")
	}
	return nil
}

func ValidateDate(field, value string) error {
	if _, err := ParseDate(value); err != nil {
		return NewValidationError(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

// ValidateTimeRange checks both clocks and that the session ends after it starts.
func ValidateTimeRange(start, end string) error {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return NewValidationError("start_time", "must be an HH:MM time")
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return NewValidationError("end_time", "must be an HH:MM time")
	}
	if !endAt.After(startAt) {
		return NewValidationError("end_time", "must be after start_time")
	}
	return nil
}

func authorizeCancel(actor Actor, session *models.Session, party models.CancelParty) error {
	if Can(actor, CapCancelAnyParty) {
		return nil
	}
	if party == models.CancelByAdmin {
		return &PermissionError{Role: actor.Role, Action: "cancel on behalf of admin"}
	}
	return AuthorizeSession(actor, session, CapCancelOwnSession)
}

func requireStatus(action Action, current models.SessionStatus, allowed ...models.SessionStatus) error {
	for _, status := range allowed {
		if current == status {
			return nil
		}
	}
	return &StateConflictError{Action: string(action), Status: current}
}

func buildSuccessor(session models.Session, req ActionRequest) (*SuccessorDraft, error) {
	date := strings.TrimSpace(req.Date)
	if date == "" {
		return nil, NewValidationError("date", "a new session date is required")
	}
	if err := ValidateDate("date", date); err != nil {
		return nil, err
	}

	start := strings.TrimSpace(req.StartTime)
	if start == "" {
		start = session.StartTime
	}
	end := strings.TrimSpace(req.EndTime)
	if end == "" {
		end = session.EndTime
	}
	if err := ValidateTimeRange(start, end); err != nil {
		return nil, err
	}

	return &SuccessorDraft{
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		TeacherID:      session.TeacherID,
		StudentID:      session.StudentID,
		ExpectedAmount: session.ExpectedAmount,
		Notes:          session.Notes,
	}, nil
}
