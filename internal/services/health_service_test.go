package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthService_Readiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	hs := NewHealthService("1.0.0", map[string]Pinger{"store": ok, "cache": ok, "events": nil}, quietLogger())
	status := hs.ReadinessCheck(context.Background())
	assert.True(t, status.Ready())
	assert.Len(t, status.Services, 2, "nil pingers are skipped")
	assert.Equal(t, "ready", status.Services["store"].Status)

	hs = NewHealthService("1.0.0", map[string]Pinger{"store": ok, "cache": down}, quietLogger())
	status = hs.ReadinessCheck(context.Background())
	assert.False(t, status.Ready())
	assert.Equal(t, "not_ready", status.Services["cache"].Status)
	assert.Equal(t, "connection refused", status.Services["cache"].Message)
}

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, quietLogger())
	status := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Contains(t, status.Runtime, "goroutines")
	assert.Equal(t, "1.2.3", hs.Version()["version"])
}
