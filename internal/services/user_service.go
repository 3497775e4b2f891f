package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/pkg/utils"
	"go.uber.org/zap"
)

type UserService struct {
	uow    UnitOfWork
	logger *zap.Logger
}

func NewUserService(uow UnitOfWork, logger *zap.Logger) *UserService {
	return &UserService{uow: uow, logger: logging.OrNop(logger)}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Register creates the first account, which becomes the owner. Once any
// account exists further accounts are created by the owner.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	account, err := newAccount(input.Name, input.Email, input.Password, models.RoleOwner)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.uow.WithinTx(ctx, func(stores Stores) error {
		if err := stores.Users.LockForBootstrap(ctx); err != nil {
			return fmt.Errorf("lock users: %w", err)
		}
		total, err := stores.Users.Count(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if total > 0 {
			return ErrRegistrationClosed
		}
		user, err = stores.Users.CreateUser(ctx, account)
		if err != nil {
			if isPgError(err, pgUniqueViolation) {
				return fmt.Errorf("email already exists: %w", ErrConflict)
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("owner account bootstrapped", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.uow.Stores().Users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, actor domain.Actor) (*models.User, error) {
	return s.uow.Stores().Users.GetByID(ctx, actor.ID)
}

func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor, role models.Role) ([]models.User, error) {
	if err := domain.Authorize(actor, domain.CapViewUsers); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, domain.NewValidationError("role", "unknown role")
	}
	users, err := s.uow.Stores().Users.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.User, error) {
	if err := domain.Authorize(actor, domain.CapViewUsers); err != nil {
		return nil, err
	}
	return s.uow.Stores().Users.GetByID(ctx, id)
}

// CreateUser adds a staff account. Teachers are created through
// TeacherService so that their directory entry exists.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Actor, input CreateUserInput) (*models.User, error) {
	if err := domain.Authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	if input.Role != models.RoleAdmin && input.Role != models.RoleOwner {
		return nil, domain.NewValidationError("role", "must be admin or owner")
	}
	account, err := newAccount(input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		return nil, err
	}

	user, err := s.uow.Stores().Users.CreateUser(ctx, account)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, fmt.Errorf("email already exists: %w", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
