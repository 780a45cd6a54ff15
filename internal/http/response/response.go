// Package response builds the JSON envelope returned by every handler and
// maps service errors to HTTP statuses and localized messages.
package response

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	Field  string `json:"field,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse documents failures in the swagger annotations.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"تعذر قراءة الطلب"`
	Code   string `json:"code,omitempty" example:"invalid_request_body"`
	Field  string `json:"field,omitempty"`
	Kind   string `json:"kind,omitempty" example:"validation"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// OK returns an empty success envelope.
func OK() Response {
	return Response{Status: StatusOK}
}

// OKWithData returns a success envelope carrying data.
func OKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// OKWithMessage returns a success envelope with a localized confirmation.
func OKWithMessage(ctx context.Context, code string, data any) Response {
	payload := map[string]any{"message": i18n.Message(i18n.FromContext(ctx), code)}
	if data != nil {
		payload["result"] = data
	}
	return Response{Status: StatusOK, Code: code, Data: payload}
}

// Error returns an error envelope with msg as is.
func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// Localized returns an error envelope with the message of code in the
// language of ctx.
func Localized(ctx context.Context, kind apperr.Kind, code string) Response {
	return Response{
		Status: StatusError,
		Error:  i18n.Message(i18n.FromContext(ctx), code),
		Code:   code,
		Kind:   string(apperr.Category(kind)),
	}
}

// StatusOf returns the HTTP status of an error kind.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func defaultCode(kind apperr.Kind) string {
	switch kind {
	case apperr.KindValidation:
		return i18n.CodeValidation
	case apperr.KindAuth:
		return i18n.CodeUnauthorized
	case apperr.KindForbidden:
		return i18n.CodeForbidden
	case apperr.KindConflict:
		return i18n.CodeDuplicateRequest
	case apperr.KindRateLimited:
		return i18n.CodeTooManyRequests
	case apperr.KindNetwork:
		return i18n.CodeNetwork
	case apperr.KindNotFound, apperr.KindServer:
		return i18n.CodeServer
	default:
		return i18n.CodeUnknown
	}
}

// FromError converts err into a status and an envelope. Codes without a
// catalogue entry, like raw constraint names, fall back to the generic
// message of the kind. Server errors never expose their cause.
func FromError(ctx context.Context, err error) (int, Response) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ValidationError(ctx, ve)
	}

	kind := apperr.KindOf(err)
	code := apperr.CodeOf(err)
	if !i18n.Known(code) {
		code = defaultCode(kind)
	}
	resp := Localized(ctx, kind, code)
	resp.Field = apperr.FieldOf(err)
	return StatusOf(kind), resp
}

// WriteError renders err with the status FromError picks.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := FromError(r.Context(), err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// BadRequest renders the localized "request could not be read" error.
func BadRequest(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Localized(r.Context(), apperr.KindValidation, i18n.CodeInvalidRequestBody))
}

func fieldCode(err validator.FieldError) string {
	switch {
	case err.ActualTag() == "phone":
		return i18n.CodePhoneInvalid
	case err.ActualTag() == "email", err.Field() == "email":
		return i18n.CodeInvalidEmail
	case err.ActualTag() == "uuid":
		return i18n.CodeInvalidIdentifier
	case err.Field() == "warranty_duration_months":
		return i18n.CodeInvalidPeriod
	case err.Field() == "product_ids":
		return i18n.CodeProductsRequired
	case err.Field() == "invoice_number":
		return i18n.CodeInvoiceRequired
	case err.Field() == "customer_name" && err.ActualTag() == "min":
		return i18n.CodeNameTooShort
	case err.Field() == "role":
		return i18n.CodeRoleInvalid
	case err.Field() == "password" && err.ActualTag() == "required":
		return i18n.CodePasswordRequired
	case err.Field() == "password":
		return i18n.CodeWeakPassword
	default:
		return i18n.CodeValidation
	}
}

// ValidationError builds a localized envelope from validator errors. The
// first failing field gives the code; the messages of all distinct codes are
// joined.
func ValidationError(ctx context.Context, errs validator.ValidationErrors) Response {
	lang := i18n.FromContext(ctx)

	var msgs []string
	seen := make(map[string]bool)
	resp := Response{Status: StatusError, Kind: string(apperr.KindValidation)}
	for i, err := range errs {
		code := fieldCode(err)
		if i == 0 {
			resp.Code = code
			resp.Field = err.Field()
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		msgs = append(msgs, i18n.Message(lang, code))
	}
	resp.Error = strings.Join(msgs, "، ")
	return resp
}
