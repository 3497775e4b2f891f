package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/services"
	"go.uber.org/zap"
)

type studentApplicationService interface {
	ListStudents(ctx context.Context, actor domain.Actor, search string) ([]models.Student, error)
	GetStudent(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.Student, error)
	CreateStudent(ctx context.Context, actor domain.Actor, input services.StudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, actor domain.Actor, id uuid.UUID, input services.StudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type teacherApplicationService interface {
	ListTeachers(ctx context.Context, actor domain.Actor) ([]models.Teacher, error)
	GetTeacher(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.Teacher, error)
	CreateTeacher(ctx context.Context, actor domain.Actor, input services.CreateTeacherInput) (*models.Teacher, error)
	UpdateTeacher(ctx context.Context, actor domain.Actor, id uuid.UUID, input services.UpdateTeacherInput) (*models.Teacher, error)
	DeleteTeacher(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type userApplicationService interface {
	ListUsers(ctx context.Context, actor domain.Actor, role models.Role) ([]models.User, error)
	GetUser(ctx context.Context, actor domain.Actor, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, actor domain.Actor, input services.CreateUserInput) (*models.User, error)
}

type DirectoryHandler struct {
	students studentApplicationService
	teachers teacherApplicationService
	users    userApplicationService
	logger   *zap.Logger
}

func NewDirectoryHandler(
	students studentApplicationService,
	teachers teacherApplicationService,
	users userApplicationService,
	logger *zap.Logger,
) *DirectoryHandler {
	return &DirectoryHandler{
		students: students,
		teachers: teachers,
		users:    users,
		logger:   logging.OrNop(logger),
	}
}

type studentRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type createTeacherRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Number   *string `json:"number"`
}

type updateTeacherRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Number *string `json:"number"`
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin owner"`
}

func (h *DirectoryHandler) ListStudents(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	students, err := h.students.ListStudents(c.UserContext(), actor, strings.TrimSpace(c.Query("search")))
	if err != nil {
		return mapServiceError(c, h.logger, "Student", err)
	}
	return c.JSON(fiber.Map{"students": students})
}

func (h *DirectoryHandler) GetStudent(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "student")
	}

	student, err := h.students.GetStudent(c.UserContext(), actor, id)
	if err != nil {
		return mapServiceError(c, h.logger, "Student", err)
	}
	return c.JSON(fiber.Map{"student": student})
}

func (h *DirectoryHandler) CreateStudent(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	var req studentRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	student, err := h.students.CreateStudent(c.UserContext(), actor, services.StudentInput(req))
	if err != nil {
		return mapServiceError(c, h.logger, "Student", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"student": student})
}

func (h *DirectoryHandler) UpdateStudent(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "student")
	}
	var req studentRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	student, err := h.students.UpdateStudent(c.UserContext(), actor, id, services.StudentInput(req))
	if err != nil {
		return mapServiceError(c, h.logger, "Student", err)
	}
	return c.JSON(fiber.Map{"student": student})
}

func (h *DirectoryHandler) DeleteStudent(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "student")
	}

	if err := h.students.DeleteStudent(c.UserContext(), actor, id); err != nil {
		return mapServiceError(c, h.logger, "Student", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DirectoryHandler) ListTeachers(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	teachers, err := h.teachers.ListTeachers(c.UserContext(), actor)
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.JSON(fiber.Map{"teachers": teachers})
}

func (h *DirectoryHandler) GetTeacher(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "teacher")
	}

	teacher, err := h.teachers.GetTeacher(c.UserContext(), actor, id)
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.JSON(fiber.Map{"teacher": teacher})
}

func (h *DirectoryHandler) CreateTeacher(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	var req createTeacherRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	teacher, err := h.teachers.CreateTeacher(c.UserContext(), actor, services.CreateTeacherInput(req))
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"teacher": teacher})
}

func (h *DirectoryHandler) UpdateTeacher(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "teacher")
	}
	var req updateTeacherRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	teacher, err := h.teachers.UpdateTeacher(c.UserContext(), actor, id, services.UpdateTeacherInput(req))
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.JSON(fiber.Map{"teacher": teacher})
}

func (h *DirectoryHandler) DeleteTeacher(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "teacher")
	}

	if err := h.teachers.DeleteTeacher(c.UserContext(), actor, id); err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DirectoryHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	users, err := h.users.ListUsers(c.UserContext(), actor, models.Role(strings.TrimSpace(c.Query("role"))))
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *DirectoryHandler) GetUser(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "user")
	}

	user, err := h.users.GetUser(c.UserContext(), actor, id)
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *DirectoryHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	var req createUserRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), actor, services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}
