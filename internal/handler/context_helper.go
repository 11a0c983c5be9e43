package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-portal-api/internal/middleware"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

// readUpload reads the named multipart file, rejecting bodies over limit bytes.
func readUpload(c *gin.Context, field string, limit int64) ([]byte, *multipart.FileHeader, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1024*1024)
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file too large")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "No file uploaded")
	}
	if header.Size > limit {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file too large")
	}
	src, err := header.Open()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file")
	}
	if int64(len(data)) > limit {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file too large")
	}
	return data, header, nil
}
