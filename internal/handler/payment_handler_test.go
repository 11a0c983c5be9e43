package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type paymentServiceMock struct {
	studentID string
	intentReq dto.CreatePaymentRequest
	verifyErr error
	filter    models.PaymentFilter
	failedID  string
}

func (m *paymentServiceMock) CreateIntent(ctx context.Context, studentID string, req dto.CreatePaymentRequest) (*dto.PaymentIntent, error) {
	m.studentID = studentID
	m.intentReq = req
	return &dto.PaymentIntent{PaymentID: "pay-1", OrderID: "order_1", Amount: 50000, Currency: "INR"}, nil
}

func (m *paymentServiceMock) Verify(ctx context.Context, req dto.VerifyPaymentRequest) (*models.Payment, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return &models.Payment{ID: "pay-1", GatewayOrderID: req.OrderID, Status: models.PaymentStatusCompleted}, nil
}

func (m *paymentServiceMock) MarkFailed(ctx context.Context, orderID string) (*models.Payment, error) {
	m.failedID = orderID
	return &models.Payment{ID: "pay-1", GatewayOrderID: orderID, Status: models.PaymentStatusFailed}, nil
}

func (m *paymentServiceMock) History(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	m.studentID = studentID
	return []models.PaymentDetail{}, nil
}

func (m *paymentServiceMock) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	m.filter = filter
	return []models.PaymentDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *paymentServiceMock) Receipt(ctx context.Context, paymentID, studentID string) ([]byte, string, error) {
	if studentID != "stu-1" {
		return nil, "", appErrors.ErrPaymentNotFound
	}
	return []byte("%PDF-1.3"), "rcpt_1.pdf", nil
}

func (m *paymentServiceMock) StudentCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	return []models.EnrolledCourse{}, nil
}

func (m *paymentServiceMock) RegisteredCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	return []models.CourseDetail{}, nil
}

func TestPaymentHandlerCreateIntentUsesCaller(t *testing.T) {
	svc := &paymentServiceMock{}
	body := jsonBody(t, dto.CreatePaymentRequest{CourseID: "5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a01", FeeKind: models.FeeKindRegistration})
	c, w := newContext(http.MethodPost, "/student/payments/intent", body, studentClaims())

	NewPaymentHandler(svc).CreateIntent(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", svc.studentID)
	assert.Equal(t, models.FeeKindRegistration, svc.intentReq.FeeKind)
	assert.Contains(t, w.Body.String(), `"order_id":"order_1"`)
}

func TestPaymentHandlerCreateIntentRequiresClaims(t *testing.T) {
	c, w := newContext(http.MethodPost, "/student/payments/intent", jsonBody(t, dto.CreatePaymentRequest{}), nil)
	NewPaymentHandler(&paymentServiceMock{}).CreateIntent(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandlerVerifyInvalidSignature(t *testing.T) {
	svc := &paymentServiceMock{verifyErr: appErrors.ErrInvalidSignature}
	body := jsonBody(t, dto.VerifyPaymentRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "bad"})
	c, w := newContext(http.MethodPost, "/student/payments/verify", body, studentClaims())

	NewPaymentHandler(svc).Verify(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Invalid payment signature", env.Error.Message)
}

func TestPaymentHandlerReceiptStreamsPDF(t *testing.T) {
	c, w := newContext(http.MethodGet, "/student/payments/pay-1/receipt", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}

	NewPaymentHandler(&paymentServiceMock{}).Receipt(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=rcpt_1.pdf", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestPaymentHandlerListParsesFilters(t *testing.T) {
	svc := &paymentServiceMock{}
	c, w := newContext(http.MethodGet, "/admin/payments?status=completed&fee_kind=fullFee&page=2&page_size=5", nil, adminClaims())

	NewPaymentHandler(svc).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentStatusCompleted, svc.filter.Status)
	assert.Equal(t, models.FeeKindFull, svc.filter.FeeKind)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.PageSize)
}

func TestPaymentHandlerMarkFailed(t *testing.T) {
	svc := &paymentServiceMock{}
	c, w := newContext(http.MethodPost, "/admin/payments/order_1/fail", nil, adminClaims())
	c.Params = gin.Params{{Key: "orderId", Value: "order_1"}}

	NewPaymentHandler(svc).MarkFailed(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order_1", svc.failedID)
}
