package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
	"go.uber.org/zap"
)

const MaxProofSizeBytes = 2 << 20

var proofExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type PaymentService struct {
	uow          UnitOfWork
	storage      ProofStorage
	events       EventPublisher
	logger       *zap.Logger
	flatFee      float64
	defaultPrice float64
	now          func() time.Time
}

func NewPaymentService(
	uow UnitOfWork,
	storage ProofStorage,
	events EventPublisher,
	logger *zap.Logger,
	flatFee float64,
	defaultPrice float64,
) *PaymentService {
	return &PaymentService{
		uow:          uow,
		storage:      storage,
		events:       publisherOrNoop(events),
		logger:       logging.OrNop(logger),
		flatFee:      flatFee,
		defaultPrice: defaultPrice,
		now:          time.Now,
	}
}

type ProofUpload struct {
	Filename string
	Content  []byte
}

type RecordPaymentInput struct {
	SessionID uuid.UUID
	Date      string
	Amount    float64
	Method    models.PaymentMethod
	Notes     *string
	Proof     *ProofUpload
}

type UpdatePaymentInput struct {
	Date   *string
	Amount *float64
	Method *models.PaymentMethod
	Notes  *string
	Proof  *ProofUpload
}

func (s *PaymentService) ListPayments(
	ctx context.Context,
	actor domain.Actor,
	filter repository.PaymentListFilter,
) ([]models.Payment, error) {
	if err := domain.Authorize(actor, domain.CapViewPayments); err != nil {
		return nil, err
	}
	if !domain.IsStaff(actor) {
		teacherID := actor.ID
		filter.TeacherID = &teacherID
	}
	if filter.Method != "" && !models.PaymentMethod(filter.Method).Valid() {
		return nil, domain.NewValidationError("method", "unknown payment method")
	}
	if _, err := domain.NewPeriod(filter.From, filter.To); err != nil {
		return nil, err
	}

	payments, err := s.uow.Stores().Payments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) ListSessionPayments(
	ctx context.Context,
	actor domain.Actor,
	sessionID uuid.UUID,
) ([]models.Payment, error) {
	stores := s.uow.Stores()
	session, err := stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeSession(actor, session, domain.CapViewPayments); err != nil {
		return nil, err
	}

	payments, err := stores.Payments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session payments: %w", err)
	}
	return payments, nil
}

// RecordPayment stores a payment against a completed session, splits its
// fees and refreshes the session's payment status in the same transaction.
func (s *PaymentService) RecordPayment(
	ctx context.Context,
	actor domain.Actor,
	input RecordPaymentInput,
) (*models.Payment, error) {
	if err := domain.Authorize(actor, domain.CapManagePayments); err != nil {
		return nil, err
	}
	if err := validatePaymentAmount(input.Amount); err != nil {
		return nil, err
	}
	input.Amount = domain.RoundCents(input.Amount)
	if !input.Method.Valid() {
		return nil, domain.NewValidationError("method", "must be one of cash, bank-transfer, gcash")
	}
	input.Date = strings.TrimSpace(input.Date)
	if input.Date == "" {
		input.Date = domain.FormatDate(s.now())
	}
	if err := domain.ValidateDate("date", input.Date); err != nil {
		return nil, err
	}
	split, err := domain.SplitFee(input.Amount, s.flatFee)
	if err != nil {
		return nil, err
	}

	session, err := s.uow.Stores().Sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if err := requireCompleted(session); err != nil {
		return nil, err
	}

	proofURL, err := s.uploadProof(ctx, input.SessionID, input.Proof)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.uow.WithinTx(ctx, func(stores Stores) error {
		locked, err := stores.Sessions.GetByIDForUpdate(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if err := requireCompleted(locked); err != nil {
			return err
		}

		payment, err = stores.Payments.Create(ctx, repository.CreatePaymentInput{
			SessionID:     input.SessionID,
			Date:          input.Date,
			Amount:        input.Amount,
			Method:        input.Method,
			ProofImageURL: proofURL,
			Notes:         normalizeOptional(input.Notes),
			AdminFee:      split.AdminFee,
			TeacherFee:    split.TeacherFee,
		})
		if err != nil {
			return paymentWriteError("create payment", err)
		}
		return s.syncPaymentStatus(ctx, stores, locked)
	})
	if err != nil {
		s.discardProof(proofURL)
		return nil, err
	}

	s.publishPayment(models.EventPaymentRecorded, session.TeacherID, payment)
	return payment, nil
}

func (s *PaymentService) UpdatePayment(
	ctx context.Context,
	actor domain.Actor,
	paymentID uuid.UUID,
	input UpdatePaymentInput,
) (*models.Payment, error) {
	if err := domain.Authorize(actor, domain.CapManagePayments); err != nil {
		return nil, err
	}
	if input.Amount != nil {
		if err := validatePaymentAmount(*input.Amount); err != nil {
			return nil, err
		}
	}
	if input.Method != nil && !input.Method.Valid() {
		return nil, domain.NewValidationError("method", "must be one of cash, bank-transfer, gcash")
	}
	if input.Date != nil {
		if err := domain.ValidateDate("date", strings.TrimSpace(*input.Date)); err != nil {
			return nil, err
		}
	}

	existing, err := s.uow.Stores().Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	proofURL, err := s.uploadProof(ctx, existing.SessionID, input.Proof)
	if err != nil {
		return nil, err
	}

	var (
		updated     *models.Payment
		teacherID   uuid.UUID
		replacedURL *string
	)
	err = s.uow.WithinTx(ctx, func(stores Stores) error {
		current, err := stores.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		session, err := stores.Sessions.GetByIDForUpdate(ctx, current.SessionID)
		if err != nil {
			return err
		}
		teacherID = session.TeacherID

		next := *current
		if input.Date != nil {
			next.Date = strings.TrimSpace(*input.Date)
		}
		if input.Amount != nil {
			next.Amount = domain.RoundCents(*input.Amount)
		}
		if input.Method != nil {
			next.Method = *input.Method
		}
		if input.Notes != nil {
			next.Notes = normalizeOptional(input.Notes)
		}
		if proofURL != nil {
			replacedURL = current.ProofImageURL
			next.ProofImageURL = proofURL
		}
		split, err := domain.SplitFee(next.Amount, s.flatFee)
		if err != nil {
			return err
		}
		next.AdminFee = split.AdminFee
		next.TeacherFee = split.TeacherFee

		updated, err = stores.Payments.Update(ctx, &next)
		if err != nil {
			return paymentWriteError("update payment", err)
		}
		return s.syncPaymentStatus(ctx, stores, session)
	})
	if err != nil {
		s.discardProof(proofURL)
		return nil, err
	}

	s.discardProof(replacedURL)
	s.publishPayment(models.EventPaymentUpdated, teacherID, updated)
	return updated, nil
}

func (s *PaymentService) DeletePayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) error {
	if err := domain.Authorize(actor, domain.CapManagePayments); err != nil {
		return err
	}

	var (
		deleted   *models.Payment
		teacherID uuid.UUID
	)
	err := s.uow.WithinTx(ctx, func(stores Stores) error {
		payment, err := stores.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		session, err := stores.Sessions.GetByIDForUpdate(ctx, payment.SessionID)
		if err != nil {
			return err
		}
		if err := stores.Payments.Delete(ctx, paymentID); err != nil {
			return err
		}
		deleted = payment
		teacherID = session.TeacherID
		return s.syncPaymentStatus(ctx, stores, session)
	})
	if err != nil {
		return err
	}

	s.discardProof(deleted.ProofImageURL)
	s.publishPayment(models.EventPaymentDeleted, teacherID, deleted)
	return nil
}

// syncPaymentStatus recomputes the derived payment status of session from its
// stored payments and writes it back when it changed.
func (s *PaymentService) syncPaymentStatus(ctx context.Context, stores Stores, session *models.Session) error {
	status, err := derivePaymentStatus(ctx, stores, *session, s.defaultPrice)
	if err != nil {
		return err
	}
	if status == session.PaymentStatus {
		return nil
	}
	if err := stores.Sessions.UpdatePaymentStatus(ctx, session.ID, status); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	s.logger.Info("session payment status changed",
		zap.String("session_id", session.ID.String()),
		zap.String("from", string(session.PaymentStatus)),
		zap.String("to", string(status)),
	)
	session.PaymentStatus = status
	return nil
}

func derivePaymentStatus(
	ctx context.Context,
	stores Stores,
	session models.Session,
	defaultPrice float64,
) (models.PaymentStatus, error) {
	payments, err := stores.Payments.ListBySession(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("list session payments: %w", err)
	}
	return domain.DerivePaymentStatus(payments, domain.ResolveExpectedTotal(session, defaultPrice)), nil
}

func validatePaymentAmount(amount float64) error {
	if amount <= 0 {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	return domain.ValidateMoney("amount", amount)
}

func paymentWriteError(op string, err error) error {
	if isPgError(err, pgCheckViolation) || isPgError(err, pgNumericOutOfRange) {
		return domain.NewValidationError("amount", "cannot be stored")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireCompleted(session *models.Session) error {
	if session.Status != models.SessionCompleted {
		return &domain.StateConflictError{Action: "record a payment for", Status: session.Status}
	}
	return nil
}

func (s *PaymentService) uploadProof(ctx context.Context, sessionID uuid.UUID, proof *ProofUpload) (*string, error) {
	if proof == nil {
		return nil, nil
	}
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if len(proof.Content) == 0 {
		return nil, domain.NewValidationError("proof", "file is empty")
	}
	if len(proof.Content) > MaxProofSizeBytes {
		return nil, domain.NewValidationError("proof", "file exceeds 2MB limit")
	}
	contentType := http.DetectContentType(proof.Content)
	ext, ok := proofExtensions[contentType]
	if !ok {
		return nil, domain.NewValidationError("proof", "must be a png, jpg, gif or webp image")
	}

	objectPath := fmt.Sprintf("payments/%s/%s%s", sessionID, uuid.NewString(), ext)
	url, err := s.storage.Upload(ctx, objectPath, proof.Content, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload proof: %w", err)
	}
	return &url, nil
}

func (s *PaymentService) discardProof(url *string) {
	if url == nil || *url == "" || s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, *url); err != nil {
		s.logger.Warn("failed to delete proof image", zap.String("url", *url), zap.Error(err))
	}
}

func (s *PaymentService) publishPayment(eventType models.EventType, teacherID uuid.UUID, payment *models.Payment) {
	s.events.Publish(models.Event{
		Type:       eventType,
		SessionID:  payment.SessionID,
		TeacherID:  teacherID,
		Payment:    payment,
		OccurredAt: s.now().UTC(),
	})
}
