package apperr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode string
	}{
		{"no rows", sql.ErrNoRows, KindNotFound, ""},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), KindNotFound, ""},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "customers_request_token_key"}, KindConflict, "customers_request_token_key"},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "warranties_duration_check"}, KindValidation, "warranties_duration_check"},
		{"deadline", context.DeadlineExceeded, KindNetwork, ""},
		{"other", errors.New("boom"), KindServer, ""},
		{"already classified", NotFound("inner", "customer_not_found"), KindNotFound, "customer_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Backend("storage.Op", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "storage.Op")
		})
	}

	assert.NoError(t, Backend("storage.Op", nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"network substring", errors.New("Failed to fetch"), KindNetwork},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), KindNetwork},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("x")}, KindNetwork},
		{"context deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindNetwork},
		{"auth substring", errors.New("Invalid login credentials"), KindAuth},
		{"email not confirmed", errors.New("Email not confirmed"), KindAuth},
		{"validation substring", errors.New("field name is required"), KindValidation},
		{"server substring", errors.New("database is locked"), KindServer},
		{"unknown", errors.New("something odd"), KindUnknown},
		{"typed refinement folds", &Error{Kind: KindRateLimited}, KindAuth},
		{"typed not found folds", &Error{Kind: KindNotFound}, KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
	assert.Equal(t, Kind(""), Classify(nil))
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Kind{
		400: KindValidation,
		401: KindAuth,
		403: KindAuth,
		404: KindUnknown,
		408: KindNetwork,
		409: KindValidation,
		422: KindValidation,
		429: KindAuth,
		500: KindServer,
		503: KindNetwork,
	}
	for code, want := range cases {
		assert.Equal(t, want, ClassifyStatus(code), "status %d", code)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := Validation("period.EndDate", "months", "invalid_period")
	assert.Equal(t, "period.EndDate: invalid_period", err.Error())
	assert.Equal(t, "months", FieldOf(err))
	assert.True(t, Is(err, KindValidation))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, "invalid_period", CodeOf(wrapped))
	assert.Equal(t, KindValidation, KindOf(wrapped))

	assert.Nil(t, Wrap(KindServer, "op", nil))
}
