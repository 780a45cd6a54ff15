// Package apperr defines the error taxonomy shared by the service layers and
// the Go client. Every error that crosses a package boundary is either an
// *Error or is classified on demand by Classify.
package apperr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the category of a failure.
type Kind string

// Taxonomy kinds.
const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// Refinements used by the HTTP layer. Category folds them into the taxonomy.
const (
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindForbidden   Kind = "forbidden"
	KindRateLimited Kind = "rate_limited"
)

// PostgreSQL error codes the storage layer reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Error carries a kind, the operation that failed, an optional message code
// (translated by the i18n package) and the underlying cause.
type Error struct {
	Kind  Kind
	Op    string
	Code  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Code != "":
		b.WriteString(e.Code)
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, op, code string) *Error {
	return &Error{Kind: kind, Op: op, Code: code}
}

// Wrap attaches kind and op to err. A nil err gives nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation reports an invalid input field.
func Validation(op, field, code string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Code: code}
}

// Validationf reports an invalid input with a formatted cause.
func Validationf(op, field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(op, code string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Code: code}
}

// Backend wraps a storage failure. sql.ErrNoRows becomes not_found, unique
// violations become conflict, cancelled contexts become network and every
// other cause is a server error.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Op: op, Code: ae.Code, Field: ae.Field, Err: err}
	}

	kind := KindServer
	code := ""
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindNetwork
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case pgUniqueViolation:
			kind, code = KindConflict, pgErr.ConstraintName
		case pgForeignKeyViolation, pgCheckViolation:
			kind, code = KindValidation, pgErr.ConstraintName
		}
	}
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

// KindOf returns the kind of err, classifying foreign errors by Classify.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Classify(err)
}

// CodeOf returns the first non-empty message code in the chain of err.
func CodeOf(err error) string {
	for err != nil {
		var ae *Error
		if !errors.As(err, &ae) {
			return ""
		}
		if ae.Code != "" {
			return ae.Code
		}
		err = ae.Err
	}
	return ""
}

// FieldOf returns the input field an error refers to, if any.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field
	}
	return ""
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Category folds the refinement kinds into the five taxonomy kinds.
func Category(k Kind) Kind {
	switch k {
	case KindNotFound:
		return KindServer
	case KindConflict:
		return KindValidation
	case KindForbidden, KindRateLimited:
		return KindAuth
	case KindNetwork, KindAuth, KindValidation, KindServer:
		return k
	default:
		return KindUnknown
	}
}

var (
	networkPatterns = []string{
		"network", "failed to fetch", "connection refused", "connection reset",
		"econnreset", "econnrefused", "no such host", "i/o timeout", "timeout",
		"offline", "broken pipe", "eof",
	}
	authPatterns = []string{
		"invalid login credentials", "invalid credentials", "email not confirmed",
		"too many requests", "unauthorized", "forbidden", "jwt", "token",
		"session", "not authenticated", "account inactive",
	}
	validationPatterns = []string{
		"validation", "invalid input", "is required", "required field",
		"must be", "malformed",
	}
	serverPatterns = []string{
		"internal server", "database", "sql", "server error", "service unavailable",
	}
)

// Classify maps an arbitrary error to a taxonomy kind by type and by matching
// well-known substrings of its message.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return Category(ae.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage applies the substring rules only.
func ClassifyMessage(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case containsAny(m, authPatterns):
		return KindAuth
	case containsAny(m, networkPatterns):
		return KindNetwork
	case containsAny(m, validationPatterns):
		return KindValidation
	case containsAny(m, serverPatterns):
		return KindServer
	default:
		return KindUnknown
	}
}

// ClassifyStatus maps an HTTP status code to a taxonomy kind.
func ClassifyStatus(code int) Kind {
	switch {
	case code == 401 || code == 403 || code == 429:
		return KindAuth
	case code == 408 || code == 502 || code == 503 || code == 504:
		return KindNetwork
	case code == 400 || code == 409 || code == 422:
		return KindValidation
	case code >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
