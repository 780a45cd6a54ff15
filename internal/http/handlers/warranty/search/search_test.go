package search

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Search(ctx context.Context, params models.SearchParams) ([]models.CustomerGroup, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CustomerGroup), args.Error(1)
}

func TestSearchHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("by invoice and phone", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Search", mock.Anything, models.SearchParams{InvoiceNumber: "INV-1", PhoneNumber: "0512345678"}).
			Return([]models.CustomerGroup{{Customer: models.Customer{Name: "Ali"}}}, nil).Once()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/warranties/search?invoice=+INV-1+&phone=0512345678", nil)
		New(logger, svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Ali"`)
		svc.AssertExpectations(t)
	})

	t.Run("no key", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Search", mock.Anything, models.SearchParams{}).
			Return(nil, apperr.Validation("op", "", i18n.CodeSearchKeyRequired)).Once()

		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/warranties/search", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"search_key_required"`)
	})
}
