package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

func TestDisabledCacheIsAlwaysEmpty(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	assert.NoError(t, repo.Set(ctx, "department:data-science", []string{"x"}, time.Minute))

	var out []string
	err := repo.Get(ctx, "department:data-science", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
