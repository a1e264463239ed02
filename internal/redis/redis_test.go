package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := Options(Config{URL: "redis://cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3, opts.MaxRetries)
}

func TestOptions_Overrides(t *testing.T) {
	opts, err := Options(Config{URL: "redis://cache:6380/2", Password: "s3cret", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 4, opts.DB)
}

func TestOptions_Errors(t *testing.T) {
	_, err := Options(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Options(Config{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Connect(context.Background(), Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer Close(c)

	require.NoError(t, c.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), Config{URL: "redis://" + addr})
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	assert.NotPanics(t, func() { Close(nil) })
}
