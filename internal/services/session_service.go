package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
	"go.uber.org/zap"
)

type SessionService struct {
	uow          UnitOfWork
	events       EventPublisher
	logger       *zap.Logger
	rules        domain.LifecycleRules
	defaultPrice float64
	now          func() time.Time
}

func NewSessionService(
	uow UnitOfWork,
	events EventPublisher,
	logger *zap.Logger,
	rules domain.LifecycleRules,
	defaultPrice float64,
) *SessionService {
	return &SessionService{
		uow:          uow,
		events:       publisherOrNoop(events),
		logger:       logging.OrNop(logger),
		rules:        rules,
		defaultPrice: defaultPrice,
		now:          time.Now,
	}
}

type CreateSessionInput struct {
	Date           string
	StartTime      string
	EndTime        string
	TeacherID      uuid.UUID
	StudentID      uuid.UUID
	ExpectedAmount *float64
	Notes          *string
}

// UpdateSessionInput carries the editable, non-lifecycle fields. A zero
// Version skips the optimistic concurrency check.
type UpdateSessionInput struct {
	Version        int64
	Date           *string
	StartTime      *string
	EndTime        *string
	TeacherID      *uuid.UUID
	StudentID      *uuid.UUID
	ExpectedAmount *float64
	Notes          *string
}

type ActionResult struct {
	Session        *models.Session      `json:"session"`
	PreviousStatus models.SessionStatus `json:"previous_status"`
	Successor      *models.Session      `json:"successor,omitempty"`
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actor domain.Actor,
	filter repository.SessionListFilter,
) ([]models.Session, int, error) {
	switch {
	case domain.Can(actor, domain.CapViewAllSessions):
	case domain.Can(actor, domain.CapViewOwnSessions):
		teacherID := actor.ID
		filter.TeacherID = &teacherID
	default:
		return nil, 0, domain.Authorize(actor, domain.CapViewOwnSessions)
	}
	if err := validateSessionFilter(filter); err != nil {
		return nil, 0, err
	}

	stores := s.uow.Stores()
	sessions, err := stores.Sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	total, err := stores.Sessions.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actor domain.Actor,
	sessionID uuid.UUID,
) (*models.SessionDetail, error) {
	stores := s.uow.Stores()
	session, err := stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewSession(actor, session) {
		return nil, &domain.PermissionError{Role: actor.Role, Action: "view this session"}
	}

	payments, err := stores.Payments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session payments: %w", err)
	}
	return &models.SessionDetail{
		Session:   *session,
		Payments:  payments,
		PaidTotal: domain.SumAmounts(payments),
	}, nil
}

func (s *SessionService) CreateSession(
	ctx context.Context,
	actor domain.Actor,
	input CreateSessionInput,
) (*models.Session, error) {
	if err := domain.Authorize(actor, domain.CapManageSessions); err != nil {
		return nil, err
	}
	input.Date = strings.TrimSpace(input.Date)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	if err := domain.ValidateDate("date", input.Date); err != nil {
		return nil, err
	}
	if err := domain.ValidateTimeRange(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}
	if err := validateExpectedAmount(input.ExpectedAmount); err != nil {
		return nil, err
	}
	if input.ExpectedAmount != nil {
		amount := domain.RoundCents(*input.ExpectedAmount)
		input.ExpectedAmount = &amount
	}

	stores := s.uow.Stores()
	if err := ensureParticipants(ctx, stores, input.TeacherID, input.StudentID); err != nil {
		return nil, err
	}

	session, err := stores.Sessions.Create(ctx, repository.CreateSessionInput{
		Date:           input.Date,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		TeacherID:      input.TeacherID,
		StudentID:      input.StudentID,
		ExpectedAmount: input.ExpectedAmount,
		Notes:          normalizeOptional(input.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publishSession(models.EventSessionCreated, session)
	return session, nil
}

func (s *SessionService) UpdateSession(
	ctx context.Context,
	actor domain.Actor,
	sessionID uuid.UUID,
	input UpdateSessionInput,
) (*models.Session, error) {
	if err := domain.Authorize(actor, domain.CapManageSessions); err != nil {
		return nil, err
	}

	var (
		updated         *models.Session
		previousTeacher uuid.UUID
	)
	err := s.uow.WithinTx(ctx, func(stores Stores) error {
		current, err := stores.Sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		previousTeacher = current.TeacherID
		if input.Version > 0 && input.Version != current.Version {
			return ErrStaleVersion
		}

		next := *current
		if input.Date != nil {
			next.Date = strings.TrimSpace(*input.Date)
			if err := domain.ValidateDate("date", next.Date); err != nil {
				return err
			}
		}
		if input.StartTime != nil {
			next.StartTime = strings.TrimSpace(*input.StartTime)
		}
		if input.EndTime != nil {
			next.EndTime = strings.TrimSpace(*input.EndTime)
		}
		if err := domain.ValidateTimeRange(next.StartTime, next.EndTime); err != nil {
			return err
		}
		if input.TeacherID != nil {
			next.TeacherID = *input.TeacherID
		}
		if input.StudentID != nil {
			next.StudentID = *input.StudentID
		}
		if input.TeacherID != nil || input.StudentID != nil {
			if err := ensureParticipants(ctx, stores, next.TeacherID, next.StudentID); err != nil {
				return err
			}
		}
		if input.Notes != nil {
			next.Notes = normalizeOptional(input.Notes)
		}
		if input.ExpectedAmount != nil {
			if err := validateExpectedAmount(input.ExpectedAmount); err != nil {
				return err
			}
			amount := domain.RoundCents(*input.ExpectedAmount)
			next.ExpectedAmount = &amount
			status, err := derivePaymentStatus(ctx, stores, next, s.defaultPrice)
			if err != nil {
				return err
			}
			next.PaymentStatus = status
		}
		if err := domain.CheckSessionInvariants(next); err != nil {
			return err
		}

		updated, err = stores.Sessions.UpdateIfVersion(ctx, &next)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishSession(models.EventSessionUpdated, updated)
	if previousTeacher != updated.TeacherID {
		// The old teacher's feed only sees events tagged with their id.
		s.events.Publish(models.Event{
			Type:       models.EventSessionUpdated,
			SessionID:  updated.ID,
			TeacherID:  previousTeacher,
			Session:    updated,
			OccurredAt: s.now().UTC(),
		})
	}
	return updated, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, actor domain.Actor, sessionID uuid.UUID) error {
	if err := domain.Authorize(actor, domain.CapManageSessions); err != nil {
		return err
	}

	stores := s.uow.Stores()
	session, err := stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := stores.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.events.Publish(models.Event{
		Type:       models.EventSessionDeleted,
		SessionID:  session.ID,
		TeacherID:  session.TeacherID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ApplyAction runs one lifecycle action under a row lock. A positive
// expectedVersion must match the stored version.
func (s *SessionService) ApplyAction(
	ctx context.Context,
	actor domain.Actor,
	sessionID uuid.UUID,
	req domain.ActionRequest,
	expectedVersion int64,
) (*ActionResult, error) {
	result := &ActionResult{}
	err := s.uow.WithinTx(ctx, func(stores Stores) error {
		current, err := stores.Sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && expectedVersion != current.Version {
			return ErrStaleVersion
		}

		outcome, err := domain.ApplyAction(actor, *current, req, s.rules)
		if err != nil {
			return err
		}
		result.PreviousStatus = outcome.PreviousStatus

		next := outcome.Session
		if draft := outcome.Successor; draft != nil {
			successor, err := stores.Sessions.Create(ctx, repository.CreateSessionInput{
				Date:           draft.Date,
				StartTime:      draft.StartTime,
				EndTime:        draft.EndTime,
				TeacherID:      draft.TeacherID,
				StudentID:      draft.StudentID,
				ExpectedAmount: draft.ExpectedAmount,
				Notes:          draft.Notes,
			})
			if err != nil {
				return fmt.Errorf("create follow-up session: %w", err)
			}
			next = domain.LinkSuccessor(next, successor.ID)
			result.Successor = successor
		}

		updated, err := stores.Sessions.UpdateIfVersion(ctx, &next)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		result.Session = updated

		if req.Action == domain.ActionConfirmPaymentReceipt {
			if _, err := stores.Payments.MarkConfirmedByTeacher(ctx, sessionID); err != nil {
				return fmt.Errorf("confirm session payments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session action applied",
		zap.String("session_id", sessionID.String()),
		zap.String("action", string(req.Action)),
		zap.String("actor_id", actor.ID.String()),
		zap.String("role", string(actor.Role)),
		zap.String("from", string(result.PreviousStatus)),
		zap.String("to", string(result.Session.Status)),
	)
	s.publishSession(models.EventSessionUpdated, result.Session)
	if result.Successor != nil {
		s.publishSession(models.EventSessionCreated, result.Successor)
	}
	return result, nil
}

func (s *SessionService) publishSession(eventType models.EventType, session *models.Session) {
	s.events.Publish(models.Event{
		Type:       eventType,
		SessionID:  session.ID,
		TeacherID:  session.TeacherID,
		Session:    session,
		OccurredAt: s.now().UTC(),
	})
}

func ensureParticipants(ctx context.Context, stores Stores, teacherID, studentID uuid.UUID) error {
	if _, err := stores.Teachers.GetByID(ctx, teacherID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewValidationError("teacher_id", "unknown teacher")
		}
		return fmt.Errorf("lookup teacher: %w", err)
	}
	if _, err := stores.Students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewValidationError("student_id", "unknown student")
		}
		return fmt.Errorf("lookup student: %w", err)
	}
	return nil
}

func validateSessionFilter(filter repository.SessionListFilter) error {
	if filter.Status != "" && !models.SessionStatus(filter.Status).Valid() {
		return domain.NewValidationError("status", "unknown session status")
	}
	if filter.PaymentStatus != "" && !models.PaymentStatus(filter.PaymentStatus).Valid() {
		return domain.NewValidationError("payment_status", "unknown payment status")
	}
	_, err := domain.NewPeriod(filter.From, filter.To)
	return err
}

func validateExpectedAmount(amount *float64) error {
	if amount == nil {
		return nil
	}
	if *amount < 0 {
		return domain.NewValidationError("expected_amount", "must not be negative")
	}
	return domain.ValidateMoney("expected_amount", *amount)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
