package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
	"github.com/tutordesk/backend/pkg/utils"
)

const minPasswordLength = 8

type StudentService struct {
	uow UnitOfWork
}

func NewStudentService(uow UnitOfWork) *StudentService {
	return &StudentService{uow: uow}
}

type StudentInput struct {
	Name  string
	Email *string
	Phone *string
}

func (s *StudentService) ListStudents(ctx context.Context, actor domain.Actor, search string) ([]models.Student, error) {
	if err := domain.Authorize(actor, domain.CapViewStudents); err != nil {
		return nil, err
	}
	students, err := s.uow.Stores().Students.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

func (s *StudentService) GetStudent(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.Student, error) {
	if err := domain.Authorize(actor, domain.CapViewStudents); err != nil {
		return nil, err
	}
	return s.uow.Stores().Students.GetByID(ctx, id)
}

func (s *StudentService) CreateStudent(ctx context.Context, actor domain.Actor, input StudentInput) (*models.Student, error) {
	if err := domain.Authorize(actor, domain.CapManageStudents); err != nil {
		return nil, err
	}
	record, err := normalizeStudent(input)
	if err != nil {
		return nil, err
	}
	student, err := s.uow.Stores().Students.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

func (s *StudentService) UpdateStudent(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	input StudentInput,
) (*models.Student, error) {
	if err := domain.Authorize(actor, domain.CapManageStudents); err != nil {
		return nil, err
	}
	record, err := normalizeStudent(input)
	if err != nil {
		return nil, err
	}
	return s.uow.Stores().Students.Update(ctx, id, record)
}

func (s *StudentService) DeleteStudent(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.Authorize(actor, domain.CapManageStudents); err != nil {
		return err
	}
	err := s.uow.Stores().Students.Delete(ctx, id)
	if isPgError(err, pgForeignKeyViolation) {
		return fmt.Errorf("student still has sessions: %w", ErrConflict)
	}
	return err
}

func normalizeStudent(input StudentInput) (repository.StudentInput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return repository.StudentInput{}, domain.NewValidationError("name", "is required")
	}
	email, err := normalizeOptionalEmail(input.Email)
	if err != nil {
		return repository.StudentInput{}, err
	}
	return repository.StudentInput{
		Name:  name,
		Email: email,
		Phone: normalizeOptional(input.Phone),
	}, nil
}

type TeacherService struct {
	uow UnitOfWork
}

func NewTeacherService(uow UnitOfWork) *TeacherService {
	return &TeacherService{uow: uow}
}

type CreateTeacherInput struct {
	Name     string
	Email    string
	Password string
	Number   *string
}

type UpdateTeacherInput struct {
	Name   *string
	Email  *string
	Number *string
}

func (s *TeacherService) ListTeachers(ctx context.Context, actor domain.Actor) ([]models.Teacher, error) {
	if err := domain.Authorize(actor, domain.CapViewTeachers); err != nil {
		return nil, err
	}
	teachers, err := s.uow.Stores().Teachers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

func (s *TeacherService) GetTeacher(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.Teacher, error) {
	if err := domain.Authorize(actor, domain.CapViewTeachers); err != nil {
		return nil, err
	}
	return s.uow.Stores().Teachers.GetByID(ctx, id)
}

// CreateTeacher creates the teacher's login and directory entry together.
func (s *TeacherService) CreateTeacher(
	ctx context.Context,
	actor domain.Actor,
	input CreateTeacherInput,
) (*models.Teacher, error) {
	if err := domain.Authorize(actor, domain.CapManageTeachers); err != nil {
		return nil, err
	}
	account, err := newAccount(input.Name, input.Email, input.Password, models.RoleTeacher)
	if err != nil {
		return nil, err
	}

	var teacher *models.Teacher
	err = s.uow.WithinTx(ctx, func(stores Stores) error {
		user, err := stores.Users.CreateUser(ctx, account)
		if err != nil {
			if isPgError(err, pgUniqueViolation) {
				return fmt.Errorf("email already exists: %w", ErrConflict)
			}
			return fmt.Errorf("create teacher account: %w", err)
		}
		teacher, err = stores.Teachers.Create(ctx, user.ID, normalizeOptional(input.Number))
		if err != nil {
			return fmt.Errorf("create teacher: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

func (s *TeacherService) UpdateTeacher(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	input UpdateTeacherInput,
) (*models.Teacher, error) {
	if err := domain.Authorize(actor, domain.CapManageTeachers); err != nil {
		return nil, err
	}

	var update repository.UpdateUserInput
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be empty")
		}
		update.Name = &name
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		update.Email = &email
	}

	var teacher *models.Teacher
	err := s.uow.WithinTx(ctx, func(stores Stores) error {
		if _, err := stores.Teachers.GetByID(ctx, id); err != nil {
			return err
		}
		if update.Name != nil || update.Email != nil {
			if _, err := stores.Users.Update(ctx, id, update); err != nil {
				if isPgError(err, pgUniqueViolation) {
					return fmt.Errorf("email already exists: %w", ErrConflict)
				}
				return fmt.Errorf("update teacher account: %w", err)
			}
		}
		var err error
		if input.Number != nil {
			teacher, err = stores.Teachers.UpdateNumber(ctx, id, normalizeOptional(input.Number))
		} else {
			teacher, err = stores.Teachers.GetByID(ctx, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

// DeleteTeacher removes the directory entry. Teachers with sessions are kept.
func (s *TeacherService) DeleteTeacher(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.Authorize(actor, domain.CapManageTeachers); err != nil {
		return err
	}
	err := s.uow.Stores().Teachers.Delete(ctx, id)
	if isPgError(err, pgForeignKeyViolation) {
		return fmt.Errorf("teacher still has sessions: %w", ErrConflict)
	}
	return err
}

func newAccount(name, email, password string, role models.Role) (repository.CreateUserInput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.CreateUserInput{}, domain.NewValidationError("name", "is required")
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return repository.CreateUserInput{}, err
	}
	if len(password) < minPasswordLength {
		return repository.CreateUserInput{}, domain.NewValidationError("password", "must be at least 8 characters")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return repository.CreateUserInput{}, fmt.Errorf("hash password: %w", err)
	}
	return repository.CreateUserInput{
		Name:         name,
		Email:        normalized,
		PasswordHash: hashed,
		Role:         role,
	}, nil
}

func normalizeEmail(value string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", domain.NewValidationError("email", "invalid email format")
	}
	return strings.ToLower(parsed.Address), nil
}

func normalizeOptionalEmail(value *string) (*string, error) {
	trimmed := normalizeOptional(value)
	if trimmed == nil {
		return nil, nil
	}
	email, err := normalizeEmail(*trimmed)
	if err != nil {
		return nil, err
	}
	return &email, nil
}
