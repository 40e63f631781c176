//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationValkey(t *testing.T) Cache {
	t.Helper()

	valkeyURL := os.Getenv("VALKEY_URL")
	if valkeyURL == "" {
		t.Skip("VALKEY_URL not set")
	}

	c, err := NewValkeyCache(valkeyURL, "maxtrack-test:"+uuid.NewString()+":")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestValkeyCache_Integration(t *testing.T) {
	ctx := context.Background()
	c := newIntegrationValkey(t)

	value, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, c.Set(ctx, "key", []byte(`{"id":"1"}`), time.Minute))
	value, err = c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(value))

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "key"))
	exists, err = c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMultiLevelCache_Integration(t *testing.T) {
	ctx := context.Background()
	l2 := newIntegrationValkey(t)
	c := NewMultiLevelCache(l2, 10, time.Minute)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Minute))

	// A second front over the same backend sees the value
	other := NewMultiLevelCache(l2, 10, time.Minute)
	value, err := other.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))
}
