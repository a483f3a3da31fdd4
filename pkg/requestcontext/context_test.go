package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"badgeissuer/pkg/domain"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Caller(ctx).IsNil())
	assert.Nil(t, Proofs(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, Device(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestInjectedValues(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	caller := domain.NewAccountAddress()
	owner := domain.NewResourceAddress()

	ctx := WithTime(context.Background(), fixed)
	ctx = WithCaller(ctx, caller, []domain.ResourceAddress{owner})
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8.0", "curl on Unknown")

	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, caller, Caller(ctx))
	assert.Equal(t, []domain.ResourceAddress{owner}, Proofs(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "curl on Unknown", Device(ctx))
}
