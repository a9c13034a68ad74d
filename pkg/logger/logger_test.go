package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: &buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithSubject(ctx, "user_2abc")
	ctx = log.WithCartSession(ctx, "cart-1")
	log.Error(ctx, "checkout failed", errors.New("card declined"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"subject":"user_2abc"`)
	assert.Contains(t, out, `"cart_session":"cart-1"`)
	assert.Contains(t, out, `"error":"card declined"`)
	assert.Contains(t, out, `"service":"api"`)
	assert.Contains(t, out, `"stack"`)
}

func TestFieldsDoNotLeakIntoParentContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Output: &buf})

	parent := log.WithField(context.Background(), "route", "/api/v1/cart")
	_ = log.WithField(parent, "product_id", "p1")
	log.Info(parent, "cart.read")

	assert.Contains(t, buf.String(), `"route":"/api/v1/cart"`)
	assert.NotContains(t, buf.String(), "product_id")
}

func TestWarnStackToggle(t *testing.T) {
	var buf bytes.Buffer
	New(Options{ServiceName: "api", Output: &buf, WarnStack: true}).Warn(context.Background(), "slow query")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	New(Options{ServiceName: "api", Output: &buf}).Warn(context.Background(), "slow query")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Options{ServiceName: "api", Format: "console", Output: &buf}).Info(context.Background(), "listening")
	assert.Contains(t, buf.String(), "listening")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNilAndNopLoggersAreSilent(t *testing.T) {
	var log *Logger
	ctx := log.WithField(context.Background(), "k", "v")
	assert.NotPanics(t, func() {
		log.Info(ctx, "dropped")
		log.Error(ctx, "dropped", errors.New("x"))
		Nop().Warn(Nop().WithField(ctx, "k", "v"), "dropped")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
