package cart

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
)

// StorageFactory binds storage to a session id.
type StorageFactory func(session string) Storage

// Sessions opens hydrated carts for HTTP requests.
type Sessions struct {
	storage StorageFactory
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewSessions wires cart session dependencies.
func NewSessions(storage StorageFactory, logg *logger.Logger, cartMetrics *metrics.CartMetrics) (*Sessions, error) {
	if storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart storage factory required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Sessions{storage: storage, logg: logg, metrics: cartMetrics}, nil
}

// Open returns the cart stored for session.
func (s *Sessions) Open(ctx context.Context, session string) (*Cart, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	c, err := New(s.storage(session), s.logg, s.metrics)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
