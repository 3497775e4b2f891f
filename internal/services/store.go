package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
)

type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	Count(ctx context.Context, filter repository.SessionListFilter) (int, error)
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	UpdateIfVersion(ctx context.Context, session *models.Session) (*models.Session, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PaymentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Payment, error)
	List(ctx context.Context, filter repository.PaymentListFilter) ([]models.Payment, error)
	Create(ctx context.Context, input repository.CreatePaymentInput) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkConfirmedByTeacher(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	List(ctx context.Context, search string) ([]models.Student, error)
	Create(ctx context.Context, input repository.StudentInput) (*models.Student, error)
	Update(ctx context.Context, id uuid.UUID, input repository.StudentInput) (*models.Student, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TeacherStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Teacher, error)
	List(ctx context.Context) ([]models.Teacher, error)
	Create(ctx context.Context, userID uuid.UUID, number *string) (*models.Teacher, error)
	UpdateNumber(ctx context.Context, id uuid.UUID, number *string) (*models.Teacher, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, role models.Role) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	LockForBootstrap(ctx context.Context) error
	CreateUser(ctx context.Context, input repository.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input repository.UpdateUserInput) (*models.User, error)
}

// Stores groups the repositories bound to one connection or transaction.
type Stores struct {
	Sessions SessionStore
	Payments PaymentStore
	Students StudentStore
	Teachers TeacherStore
	Users    UserStore
}

type UnitOfWork interface {
	Stores() Stores
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

type PgUnitOfWork struct {
	pool *pgxpool.Pool
}

func NewPgUnitOfWork(pool *pgxpool.Pool) *PgUnitOfWork {
	return &PgUnitOfWork{pool: pool}
}

func storesFor(db repository.DBTX) Stores {
	return Stores{
		Sessions: repository.NewSessionRepository(db),
		Payments: repository.NewPaymentRepository(db),
		Students: repository.NewStudentRepository(db),
		Teachers: repository.NewTeacherRepository(db),
		Users:    repository.NewUserRepository(db),
	}
}

func (u *PgUnitOfWork) Stores() Stores {
	return storesFor(u.pool)
}

func (u *PgUnitOfWork) WithinTx(ctx context.Context, fn func(Stores) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(storesFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type EventPublisher interface {
	Publish(event models.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.Event) {}

func publisherOrNoop(events EventPublisher) EventPublisher {
	if events == nil {
		return noopPublisher{}
	}
	return events
}
