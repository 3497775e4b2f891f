package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/models"
)

type CreatePaymentInput struct {
	SessionID     uuid.UUID
	Date          string
	Amount        float64
	Method        models.PaymentMethod
	ProofImageURL *string
	Notes         *string
	AdminFee      float64
	TeacherFee    float64
}

type PaymentListFilter struct {
	TeacherID *uuid.UUID
	SessionID *uuid.UUID
	Method    string
	From      string
	To        string
	// Search matches teacher name, student name or the payment date.
	Search    string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var paymentColumns = []string{
	"p.id",
	"p.session_id",
	"tu.name",
	"st.name",
	"to_char(p.date, 'YYYY-MM-DD')",
	"p.amount::float8",
	"p.method",
	"p.proof_image_url",
	"p.notes",
	"p.admin_fee::float8",
	"p.teacher_fee::float8",
	"p.confirmed_by_teacher",
	"p.created_at",
}

func paymentSelect() sq.SelectBuilder {
	return psql.Select(paymentColumns...).
		From("payments p").
		Join("sessions s ON s.id = p.session_id").
		Join("users tu ON tu.id = s.teacher_id").
		Join("students st ON st.id = s.student_id")
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		payment models.Payment
		method  string
	)
	if err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.TeacherName,
		&payment.StudentName,
		&payment.Date,
		&payment.Amount,
		&method,
		&payment.ProofImageURL,
		&payment.Notes,
		&payment.AdminFee,
		&payment.TeacherFee,
		&payment.ConfirmedByTeacher,
		&payment.CreatedAt,
	); err != nil {
		return nil, err
	}
	payment.Method = models.PaymentMethod(method)
	return &payment, nil
}

func (r *PaymentRepository) queryPayments(ctx context.Context, builder sq.SelectBuilder) ([]models.Payment, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (session_id, date, amount, method, proof_image_url, notes, admin_fee, teacher_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.Date,
		input.Amount,
		string(input.Method),
		input.ProofImageURL,
		input.Notes,
		input.AdminFee,
		input.TeacherFee,
	).Scan(&id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	query, args, err := paymentSelect().
		Where(sq.Eq{"p.id": paymentID.String()}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanPayment(r.db.QueryRow(ctx, query, args...))
}

func (r *PaymentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Payment, error) {
	return r.queryPayments(ctx, paymentSelect().
		Where(sq.Eq{"p.session_id": sessionID.String()}).
		OrderBy("p.date ASC", "p.created_at ASC"))
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentListFilter) ([]models.Payment, error) {
	builder := paymentSelect().
		OrderBy("p.date DESC", "p.created_at DESC")
	if filter.TeacherID != nil {
		builder = builder.Where(sq.Eq{"s.teacher_id": filter.TeacherID.String()})
	}
	if filter.SessionID != nil {
		builder = builder.Where(sq.Eq{"p.session_id": filter.SessionID.String()})
	}
	if filter.Method != "" {
		builder = builder.Where(sq.Eq{"p.method": filter.Method})
	}
	if filter.From != "" {
		builder = builder.Where(sq.GtOrEq{"p.date": filter.From})
	}
	if filter.To != "" {
		builder = builder.Where(sq.LtOrEq{"p.date": filter.To})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"tu.name": pattern},
			sq.ILike{"st.name": pattern},
			sq.Expr("to_char(p.date, 'YYYY-MM-DD') LIKE ?", pattern),
		})
	}
	return r.queryPayments(ctx, builder)
}

func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET date = $2,
		    amount = $3,
		    method = $4,
		    proof_image_url = $5,
		    notes = $6,
		    admin_fee = $7,
		    teacher_fee = $8
		WHERE id = $1
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.Date,
		payment.Amount,
		string(payment.Method),
		payment.ProofImageURL,
		payment.Notes,
		payment.AdminFee,
		payment.TeacherFee,
	).Scan(&id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) Delete(ctx context.Context, paymentID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PaymentRepository) MarkConfirmedByTeacher(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET confirmed_by_teacher = TRUE
		WHERE session_id = $1 AND confirmed_by_teacher = FALSE
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
