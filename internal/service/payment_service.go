package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/internal/repository"
	"github.com/noah-isme/college-portal-api/pkg/database"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/export"
	"github.com/noah-isme/college-portal-api/pkg/gateway"
	applog "github.com/noah-isme/college-portal-api/pkg/logger"
)

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	HasCompleted(ctx context.Context, studentID, courseID string, kind models.FeeKind) (bool, error)
	Complete(ctx context.Context, orderID, gatewayPaymentID, signature string, completedAt time.Time) (*models.Payment, error)
	MarkFailed(ctx context.Context, orderID string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	ListCompletedByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
	ListRegisteredCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	AddCourse(ctx context.Context, studentID, courseID string) (bool, error)
	ListCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	KeyID() string
}

type signatureChecker interface {
	Verify(orderID, paymentID, signature string) bool
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt) ([]byte, error)
}

type notifier interface {
	Notify(ctx context.Context, recipients []models.Contact, subject, message string, channels ...models.Channel) (int, error)
	NotifyAdmins(ctx context.Context, subject, message string, channels ...models.Channel) (int, error)
}

// PaymentService drives fee payments from gateway order to completion.
type PaymentService struct {
	payments  paymentStore
	courses   courseReader
	students  enrollmentStore
	gateway   orderCreator
	verifier  signatureChecker
	notifier  notifier
	receipts  receiptRenderer
	metrics   *MetricsService
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment lifecycle service.
func NewPaymentService(
	payments paymentStore,
	courses courseReader,
	students enrollmentStore,
	orders orderCreator,
	verifier signatureChecker,
	notify notifier,
	receipts receiptRenderer,
	metrics *MetricsService,
	currency string,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		payments:  payments,
		courses:   courses,
		students:  students,
		gateway:   orders,
		verifier:  verifier,
		notifier:  notify,
		receipts:  receipts,
		metrics:   metrics,
		currency:  currency,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateIntent opens a gateway order for the fee and records a pending payment.
func (s *PaymentService) CreateIntent(ctx context.Context, studentID string, req dto.CreatePaymentRequest) (*dto.PaymentIntent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	paid, err := s.payments.HasCompleted(ctx, studentID, course.ID, req.FeeKind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check payments")
	}
	if paid {
		s.metrics.RecordPayment(string(req.FeeKind), "duplicate")
		return nil, appErrors.Clone(appErrors.ErrDuplicatePayment, req.FeeKind.Label()+" already paid for this course")
	}

	amount := course.FeeFor(req.FeeKind)
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course has no fee configured")
	}
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())
	notes := models.PaymentNotes{"studentId": studentID, "courseId": course.ID, "type": string(req.FeeKind)}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: amount * 100,
		Currency:    s.currency,
		Receipt:     receipt,
		Notes:       notes,
	})
	if err != nil {
		s.metrics.RecordPayment(string(req.FeeKind), "gateway_error")
		return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "failed to create gateway order")
	}

	payment := &models.Payment{
		StudentID:      studentID,
		CourseID:       course.ID,
		Amount:         amount,
		FeeKind:        req.FeeKind,
		Status:         models.PaymentStatusPending,
		GatewayOrderID: order.ID,
		Currency:       s.currency,
		Receipt:        receipt,
		Notes:          notes,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.metrics.RecordPayment(string(req.FeeKind), "intent")
	applog.WithContext(ctx, s.logger).Info("payment intent created",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("fee_kind", string(req.FeeKind)),
	)

	return &dto.PaymentIntent{
		PaymentID: payment.ID,
		Amount:    amount,
		OrderID:   order.ID,
		Currency:  s.currency,
		Receipt:   receipt,
		Key:       s.gateway.KeyID(),
	}, nil
}

// Verify checks the gateway signature and completes the pending payment.
// Replaying an already verified callback returns the stored payment.
func (s *PaymentService) Verify(ctx context.Context, req dto.VerifyPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid verification payload")
	}
	if !s.verifier.Verify(req.OrderID, req.PaymentID, req.Signature) {
		s.metrics.RecordPayment("unknown", "invalid_signature")
		s.logger.Warn("payment signature mismatch", zap.String("order_id", req.OrderID))
		return nil, appErrors.Clone(appErrors.ErrInvalidSignature, "")
	}

	payment, err := s.payments.Complete(ctx, req.OrderID, req.PaymentID, req.Signature, s.now())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return s.resolveFinalized(ctx, req)
		case database.IsUniqueViolation(err, repository.PaymentCompletedConstraint):
			s.metrics.RecordPayment("unknown", "duplicate")
			return nil, appErrors.Clone(appErrors.ErrDuplicatePayment, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete payment")
		}
	}

	s.metrics.RecordPayment(string(payment.FeeKind), "completed")
	applog.WithContext(ctx, s.logger).Info("payment completed",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.GatewayOrderID),
		zap.String("fee_kind", string(payment.FeeKind)),
	)
	s.afterCompletion(ctx, payment)
	return payment, nil
}

func (s *PaymentService) resolveFinalized(ctx context.Context, req dto.VerifyPaymentRequest) (*models.Payment, error) {
	existing, err := s.payments.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPaymentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if existing.Status == models.PaymentStatusCompleted && existing.GatewayPaymentID != nil && *existing.GatewayPaymentID == req.PaymentID {
		s.metrics.RecordPayment(string(existing.FeeKind), "replay")
		return existing, nil
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "payment already finalized")
}

// afterCompletion runs the enrollment and notification cascade. Failures are
// logged and never undo the completed payment.
func (s *PaymentService) afterCompletion(ctx context.Context, payment *models.Payment) {
	log := s.logger.With(zap.String("payment_id", payment.ID))

	if payment.FeeKind == models.FeeKindFull {
		added, err := s.students.AddCourse(ctx, payment.StudentID, payment.CourseID)
		if err != nil {
			log.Error("failed to enroll student after payment", zap.Error(err))
		} else if added {
			log.Info("student enrolled", zap.String("course_id", payment.CourseID))
		}
	}

	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		log.Error("failed to load payer for notification", zap.Error(err))
		return
	}
	courseName := payment.CourseID
	if course, err := s.courses.FindByID(ctx, payment.CourseID); err == nil {
		courseName = course.Name
	} else {
		log.Warn("failed to load course for notification", zap.Error(err))
	}

	gatewayID := ""
	if payment.GatewayPaymentID != nil {
		gatewayID = *payment.GatewayPaymentID
	}
	payer := []models.Contact{{ID: student.ID, Name: student.Name, Email: student.Email, Kind: models.RecipientStudent}}
	if _, err := s.notifier.Notify(ctx, payer, "Payment Successful",
		fmt.Sprintf("Payment of ₹%d for %s completed. Receipt: %s", payment.Amount, courseName, gatewayID),
		models.ChannelEmail); err != nil {
		log.Error("failed to queue payment email", zap.Error(err))
	}
	if _, err := s.notifier.Notify(ctx, payer, "Payment Successful",
		fmt.Sprintf("Payment of ₹%d completed for %s", payment.Amount, courseName),
		models.ChannelInApp); err != nil {
		log.Error("failed to queue payment notification", zap.Error(err))
	}

	if payment.FeeKind != models.FeeKindRegistration {
		return
	}
	if _, err := s.notifier.NotifyAdmins(ctx, "New Registration Payment",
		fmt.Sprintf("Student %s has paid the registration fee for %s.", student.Name, courseName),
		models.ChannelEmail); err != nil {
		log.Error("failed to queue admin payment email", zap.Error(err))
	}
	if _, err := s.notifier.NotifyAdmins(ctx, "New Registration Payment",
		fmt.Sprintf("%s has paid registration fee for %s", student.Name, courseName),
		models.ChannelInApp); err != nil {
		log.Error("failed to queue admin payment notification", zap.Error(err))
	}
}

// MarkFailed moves a pending payment to failed.
func (s *PaymentService) MarkFailed(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.payments.MarkFailed(ctx, orderID)
	if err == nil {
		s.metrics.RecordPayment(string(payment.FeeKind), "failed")
		applog.WithContext(ctx, s.logger).Info("payment marked failed", zap.String("order_id", orderID))
		return payment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	if _, findErr := s.payments.FindByOrderID(ctx, orderID); findErr != nil {
		if errors.Is(findErr, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPaymentNotFound, "")
		}
		return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "payment already finalized")
}

// History returns the caller's completed payments.
func (s *PaymentService) History(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	items, err := s.payments.ListCompletedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}
	return items, nil
}

// List returns payments for administrators.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	items, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Receipt renders a PDF receipt for a completed payment owned by studentID.
func (s *PaymentService) Receipt(ctx context.Context, paymentID, studentID string) ([]byte, string, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrPaymentNotFound, "")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.StudentID != studentID {
		return nil, "", appErrors.Clone(appErrors.ErrPaymentNotFound, "")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "receipt is only available for completed payments")
	}

	lines := []export.ReceiptLine{
		{Label: "Receipt", Value: payment.Receipt},
		{Label: "Order ID", Value: payment.GatewayOrderID},
	}
	if payment.GatewayPaymentID != nil {
		lines = append(lines, export.ReceiptLine{Label: "Payment ID", Value: *payment.GatewayPaymentID})
	}
	lines = append(lines,
		export.ReceiptLine{Label: "Student", Value: payment.StudentName},
		export.ReceiptLine{Label: "Course", Value: payment.CourseName},
		export.ReceiptLine{Label: "Fee", Value: payment.FeeKind.Label()},
		export.ReceiptLine{Label: "Amount", Value: fmt.Sprintf("%s %d", payment.Currency, payment.Amount)},
	)
	if payment.CompletedAt != nil {
		lines = append(lines, export.ReceiptLine{Label: "Paid on", Value: payment.CompletedAt.Format("02 Jan 2006 15:04 MST")})
	}

	data, err := s.receipts.RenderReceipt(export.Receipt{
		Title:    "Payment Receipt",
		Subtitle: "College Portal",
		Lines:    lines,
		Footer:   "This is a computer generated receipt.",
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, fmt.Sprintf("%s.pdf", payment.Receipt), nil
}

// StudentCourses lists courses the student is enrolled in.
func (s *PaymentService) StudentCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	items, err := s.students.ListCourses(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	return items, nil
}

// RegisteredCourses lists courses whose registration fee the student has paid.
func (s *PaymentService) RegisteredCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	items, err := s.payments.ListRegisteredCourses(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registered courses")
	}
	return items, nil
}
