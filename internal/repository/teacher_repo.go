package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/models"
)

type TeacherRepository struct {
	db DBTX
}

func NewTeacherRepository(db DBTX) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherSelect = `
	SELECT t.id, u.name, u.email, t.number, t.created_at
	FROM teachers t
	JOIN users u ON u.id = t.id
`

func scanTeacher(row pgx.Row) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := row.Scan(
		&teacher.ID,
		&teacher.Name,
		&teacher.Email,
		&teacher.Number,
		&teacher.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create registers an existing teacher-role user as a teacher.
func (r *TeacherRepository) Create(ctx context.Context, userID uuid.UUID, number *string) (*models.Teacher, error) {
	if _, err := r.db.Exec(ctx, `INSERT INTO teachers (id, number) VALUES ($1, $2)`, userID, number); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, userID)
}

func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Teacher, error) {
	return scanTeacher(r.db.QueryRow(ctx, teacherSelect+` WHERE t.id = $1`, id))
}

func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	rows, err := r.db.Query(ctx, teacherSelect+` ORDER BY u.name ASC, t.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teachers := make([]models.Teacher, 0)
	for rows.Next() {
		teacher, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, *teacher)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (r *TeacherRepository) UpdateNumber(ctx context.Context, id uuid.UUID, number *string) (*models.Teacher, error) {
	tag, err := r.db.Exec(ctx, `UPDATE teachers SET number = $2 WHERE id = $1`, id, number)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *TeacherRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
