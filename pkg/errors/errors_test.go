package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStatuses(t *testing.T) {
	tests := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range tests {
		meta := MetadataFor(code)
		assert.Equal(t, status, meta.HTTPStatus, code)
		assert.Equal(t, status < 500, meta.ClientFault(), code)
	}
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestPublicViewExposesOnlyClientFacingParts(t *testing.T) {
	view := PublicView(NotFound("school"))
	assert.Equal(t, http.StatusNotFound, view.Status)
	assert.Equal(t, "school not found", view.Message)

	view = PublicView(New(CodeStateConflict, "product is out of stock").WithDetails(map[string]any{"product_id": "p1"}))
	assert.Equal(t, "product is out of stock", view.Message)
	assert.Equal(t, map[string]any{"product_id": "p1"}, view.Details)

	view = PublicView(Wrap(CodeInternal, stdErrors.New("dial tcp: refused"), "load orders").WithDetails("secret"))
	assert.Equal(t, "internal server error", view.Message)
	assert.Nil(t, view.Details)

	view = PublicView(stdErrors.New("boom"))
	assert.Equal(t, CodeInternal, view.Code)
	assert.Equal(t, "internal server error", view.Message)
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	wrapped := Wrap(CodeDependency, cause, "publish change")
	assert.Equal(t, "DEPENDENCY_ERROR: publish change: connection reset", wrapped.Error())
	assert.True(t, stdErrors.Is(wrapped, cause))
	assert.Equal(t, "NOT_FOUND: todo not found", NotFound("todo").Error())
}

func TestHasCodeFollowsWrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("remove category: %w", NotFound("category"))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeForbidden))
	assert.False(t, HasCode(nil, CodeNotFound))
	assert.Nil(t, As(nil))
}

func TestLogFieldsIncludesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "schools_slug_key", TableName: "schools"}
	fields := LogFields(Wrap(CodeConflict, pgErr, "insert school"))
	assert.Equal(t, "CONFLICT", fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "schools_slug_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_column")
	require.Len(t, fields["error_chain"], 2)

	fields = LogFields(fmt.Errorf("seed: %w", &pq.Error{Code: "23503", Table: "products"}))
	assert.Equal(t, "INTERNAL_ERROR", fields["error_code"])
	assert.Equal(t, "23503", fields["pg_code"])
	assert.Equal(t, "products", fields["pg_table"])

	assert.Empty(t, LogFields(nil))
}
