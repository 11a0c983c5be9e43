package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-portal-api/internal/models"
)

const paymentColumns = `id, student_id, course_id, amount, fee_kind, status, gateway_order_id, gateway_payment_id, gateway_signature, currency, receipt, notes, created_at, completed_at, updated_at`

// PaymentCompletedConstraint guards against two completed payments for the same fee.
const PaymentCompletedConstraint = "payments_completed_once"

// PaymentRepository handles persistence of fee payments. Rows are never deleted.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a pending payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	if payment.Notes == nil {
		payment.Notes = models.PaymentNotes{}
	}
	const query = `INSERT INTO payments (id, student_id, course_id, amount, fee_kind, status, gateway_order_id, currency, receipt, notes, created_at, updated_at)
VALUES (:id, :student_id, :course_id, :amount, :fee_kind, :status, :gateway_order_id, :currency, :receipt, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID fetches a payment with student and course names.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	query := `SELECT ` + prefixed("p", paymentColumns) + `, s.name AS student_name, c.name AS course_name
FROM payments p
JOIN students s ON s.id = p.student_id
JOIN courses c ON c.id = p.course_id
WHERE p.id = $1`
	var payment models.PaymentDetail
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &payment, nil
}

// FindByOrderID fetches a payment by its gateway order id.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by order id: %w", err)
	}
	return &payment, nil
}

// HasCompleted reports whether the fee has already been paid.
func (r *PaymentRepository) HasCompleted(ctx context.Context, studentID, courseID string, kind models.FeeKind) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM payments WHERE student_id = $1 AND course_id = $2 AND fee_kind = $3 AND status = 'completed')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, kind); err != nil {
		return false, fmt.Errorf("check completed payment: %w", err)
	}
	return exists, nil
}

// Complete moves a pending payment to completed. It returns sql.ErrNoRows when
// no pending payment carries orderID, and a unique violation on
// PaymentCompletedConstraint when the fee was completed by another order.
func (r *PaymentRepository) Complete(ctx context.Context, orderID, gatewayPaymentID, signature string, completedAt time.Time) (*models.Payment, error) {
	query := `UPDATE payments
SET status = 'completed', gateway_payment_id = $2, gateway_signature = $3, completed_at = $4, updated_at = $4
WHERE gateway_order_id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID, gatewayPaymentID, signature, completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("complete payment: %w", err)
	}
	return &payment, nil
}

// MarkFailed moves a pending payment to failed. It returns sql.ErrNoRows when
// no pending payment carries orderID.
func (r *PaymentRepository) MarkFailed(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `UPDATE payments SET status = 'failed', updated_at = $2
WHERE gateway_order_id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark payment failed: %w", err)
	}
	return &payment, nil
}

// List returns payments matching filter, newest first, with total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	base := `FROM payments p
JOIN students s ON s.id = p.student_id
JOIN courses c ON c.id = p.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("p.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.FeeKind != "" {
		conditions = append(conditions, fmt.Sprintf("p.fee_kind = $%d", len(args)+1))
		args = append(args, filter.FeeKind)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s, s.name AS student_name, c.name AS course_name %s%s ORDER BY p.created_at DESC LIMIT %d OFFSET %d",
		prefixed("p", paymentColumns), base, clause, pageSize, offset)
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// ListCompletedByStudent returns the student's completed payments, most recent completion first.
func (r *PaymentRepository) ListCompletedByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	query := `SELECT ` + prefixed("p", paymentColumns) + `, s.name AS student_name, c.name AS course_name
FROM payments p
JOIN students s ON s.id = p.student_id
JOIN courses c ON c.id = p.course_id
WHERE p.student_id = $1 AND p.status = 'completed'
ORDER BY p.completed_at DESC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed payments: %w", err)
	}
	return payments, nil
}

// ListRegisteredCourses returns courses whose registration fee the student has paid.
func (r *PaymentRepository) ListRegisteredCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.department_id, c.category_id, c.registration_fee, c.full_fee, c.form_url, c.created_at, c.updated_at,
d.name AS department_name, cat.name AS category_name
FROM payments p
JOIN courses c ON c.id = p.course_id
JOIN departments d ON d.id = c.department_id
JOIN categories cat ON cat.id = c.category_id
WHERE p.student_id = $1 AND p.fee_kind = 'registration' AND p.status = 'completed'
ORDER BY p.completed_at DESC`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list registered courses: %w", err)
	}
	return courses, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
