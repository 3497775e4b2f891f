package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/models"
)

type StudentInput struct {
	Name  string
	Email *string
	Phone *string
}

type StudentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, name, email, phone, created_at, updated_at"

func scanStudent(row pgx.Row) (*models.Student, error) {
	var student models.Student
	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.Phone,
		&student.CreatedAt,
		&student.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) Create(ctx context.Context, input StudentInput) (*models.Student, error) {
	query := `
		INSERT INTO students (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING ` + studentColumns
	return scanStudent(r.db.QueryRow(ctx, query, input.Name, input.Email, input.Phone))
}

func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	return scanStudent(r.db.QueryRow(ctx, query, id))
}

func (r *StudentRepository) List(ctx context.Context, search string) ([]models.Student, error) {
	builder := psql.Select(studentColumns).From("students").OrderBy("name ASC", "id ASC")
	if search = strings.TrimSpace(search); search != "" {
		builder = builder.Where(sq.ILike{"name": "%" + search + "%"})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) Update(ctx context.Context, id uuid.UUID, input StudentInput) (*models.Student, error) {
	query := `
		UPDATE students
		SET name = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + studentColumns
	return scanStudent(r.db.QueryRow(ctx, query, id, input.Name, input.Email, input.Phone))
}

func (r *StudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
