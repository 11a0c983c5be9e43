package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestErrorHidesInternalCause(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Len(t, c.Errors, 1)
}

func TestErrorKeepsDomainStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.ErrDuplicatePayment)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"DUPLICATE_PAYMENT"`)
	assert.Empty(t, c.Errors)
}

func TestFileQuotesUnsafeNames(t *testing.T) {
	c, w := newContext()
	File(c, "results sem 1.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, `attachment; filename="results sem 1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	c, w = newContext()
	File(c, "rcpt_1.pdf", "application/pdf", []byte("%PDF"))
	assert.Equal(t, "attachment; filename=rcpt_1.pdf", w.Header().Get("Content-Disposition"))
}
