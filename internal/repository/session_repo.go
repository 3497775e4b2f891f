package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/models"
)

type CreateSessionInput struct {
	Date           string
	StartTime      string
	EndTime        string
	TeacherID      uuid.UUID
	StudentID      uuid.UUID
	ExpectedAmount *float64
	Notes          *string
}

type SessionListFilter struct {
	TeacherID     *uuid.UUID
	StudentID     *uuid.UUID
	Status        string
	PaymentStatus string
	From          string
	To            string
	Search        string
	Limit         int
	Offset        int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

var sessionColumns = []string{
	"s.id",
	"to_char(s.date, 'YYYY-MM-DD')",
	"to_char(s.start_time, 'HH24:MI')",
	"to_char(s.end_time, 'HH24:MI')",
	"s.teacher_id",
	"tu.name",
	"s.student_id",
	"st.name",
	"s.status",
	"s.attendance_confirmed",
	"s.teacher_attendance_confirmed",
	"s.payment_status",
	"s.payment_confirmed_by_teacher",
	"s.expected_amount::float8",
	"s.cancelled_by",
	"s.cancel_reason",
	"to_char(s.reschedule_date, 'YYYY-MM-DD')",
	"s.makeup_session_id",
	"s.notes",
	"s.version",
	"s.created_at",
	"s.updated_at",
}

func sessionSelect() sq.SelectBuilder {
	return psql.Select(sessionColumns...).
		From("sessions s").
		Join("users tu ON tu.id = s.teacher_id").
		Join("students st ON st.id = s.student_id")
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		session       models.Session
		status        string
		paymentStatus string
		cancelledBy   *string
	)
	if err := row.Scan(
		&session.ID,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.TeacherID,
		&session.TeacherName,
		&session.StudentID,
		&session.StudentName,
		&status,
		&session.AttendanceConfirmed,
		&session.TeacherAttendanceConfirmed,
		&paymentStatus,
		&session.PaymentConfirmedByTeacher,
		&session.ExpectedAmount,
		&cancelledBy,
		&session.CancelReason,
		&session.RescheduleDate,
		&session.MakeupSessionID,
		&session.Notes,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatus(status)
	session.PaymentStatus = models.PaymentStatus(paymentStatus)
	if cancelledBy != nil {
		party := models.CancelParty(*cancelledBy)
		session.CancelledBy = &party
	}
	return &session, nil
}

func (r *SessionRepository) getOne(ctx context.Context, builder sq.SelectBuilder) (*models.Session, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return scanSession(r.db.QueryRow(ctx, query, args...))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return r.getOne(ctx, sessionSelect().Where(sq.Eq{"s.id": sessionID.String()}))
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return r.getOne(ctx, sessionSelect().Where(sq.Eq{"s.id": sessionID.String()}).Suffix("FOR UPDATE OF s"))
}

func applySessionFilter(builder sq.SelectBuilder, filter SessionListFilter) sq.SelectBuilder {
	if filter.TeacherID != nil {
		builder = builder.Where(sq.Eq{"s.teacher_id": filter.TeacherID.String()})
	}
	if filter.StudentID != nil {
		builder = builder.Where(sq.Eq{"s.student_id": filter.StudentID.String()})
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		builder = builder.Where(sq.Eq{"s.status": status})
	}
	if paymentStatus := strings.TrimSpace(filter.PaymentStatus); paymentStatus != "" {
		builder = builder.Where(sq.Eq{"s.payment_status": paymentStatus})
	}
	if filter.From != "" {
		builder = builder.Where(sq.GtOrEq{"s.date": filter.From})
	}
	if filter.To != "" {
		builder = builder.Where(sq.LtOrEq{"s.date": filter.To})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"tu.name": pattern},
			sq.ILike{"st.name": pattern},
			sq.Expr("to_char(s.date, 'YYYY-MM-DD') LIKE ?", pattern),
		})
	}
	return builder
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	builder := applySessionFilter(sessionSelect(), filter).
		OrderBy("s.date DESC", "s.start_time DESC", "s.id ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
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

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) Count(ctx context.Context, filter SessionListFilter) (int, error) {
	builder := applySessionFilter(
		psql.Select("COUNT(*)").
			From("sessions s").
			Join("users tu ON tu.id = s.teacher_id").
			Join("students st ON st.id = s.student_id"),
		filter,
	)
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (date, start_time, end_time, teacher_id, student_id, expected_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(
		ctx,
		query,
		input.Date,
		input.StartTime,
		input.EndTime,
		input.TeacherID,
		input.StudentID,
		input.ExpectedAmount,
		input.Notes,
	).Scan(&id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateIfVersion writes every mutable column of session when the stored
// version still equals session.Version, and bumps the version. It returns
// pgx.ErrNoRows when the row is gone or was changed in between.
func (r *SessionRepository) UpdateIfVersion(ctx context.Context, session *models.Session) (*models.Session, error) {
	var cancelledBy *string
	if session.CancelledBy != nil {
		party := string(*session.CancelledBy)
		cancelledBy = &party
	}

	query := `
		UPDATE sessions
		SET date = $3,
		    start_time = $4,
		    end_time = $5,
		    teacher_id = $6,
		    student_id = $7,
		    status = $8,
		    attendance_confirmed = $9,
		    teacher_attendance_confirmed = $10,
		    payment_status = $11,
		    payment_confirmed_by_teacher = $12,
		    expected_amount = $13,
		    cancelled_by = $14,
		    cancel_reason = $15,
		    reschedule_date = $16,
		    makeup_session_id = $17,
		    notes = $18,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.Version,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.TeacherID,
		session.StudentID,
		string(session.Status),
		session.AttendanceConfirmed,
		session.TeacherAttendanceConfirmed,
		string(session.PaymentStatus),
		session.PaymentConfirmedByTeacher,
		session.ExpectedAmount,
		cancelledBy,
		session.CancelReason,
		session.RescheduleDate,
		session.MakeupSessionID,
		session.Notes,
	).Scan(&id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *SessionRepository) UpdatePaymentStatus(
	ctx context.Context,
	sessionID uuid.UUID,
	status models.PaymentStatus,
) error {
	query := `
		UPDATE sessions
		SET payment_status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, sessionID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
