package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "college-portal", nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "courses:all", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "courses:all", []string{"x"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "courses:*"))
	assert.Error(t, repo.PingContext(ctx))
	assert.Equal(t, "college-portal:courses:all", repo.key("courses:all"))
}

func TestCacheRepositoryWithoutPrefix(t *testing.T) {
	assert.Equal(t, "courses:all", NewCacheRepository(nil, "", nil).key("courses:all"))
}
