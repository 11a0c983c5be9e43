package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/middleware"
	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/pkg/response"
)

func newContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func multipartContext(t *testing.T, target, field, filename string, content []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	c, w := newContext(http.MethodPost, target, &buf, claims)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, Email: "asha@example.com", FullName: "Asha"}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin, Email: "admin@example.com", FullName: "Admin"}
}
