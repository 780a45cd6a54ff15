package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Stats(ctx context.Context) (models.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Stats), args.Error(1)
}

func TestStatsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("counters", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Stats", mock.Anything).Return(models.Stats{TotalUsers: 3, ActiveUsers: 2, Admins: 1, TotalWarranties: 10}, nil).Once()

		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_users":3`)
		assert.Contains(t, rec.Body.String(), `"total_warranties":10`)
	})

	t.Run("failure", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Stats", mock.Anything).Return(models.Stats{}, apperr.Backend("op", errors.New("boom"))).Once()

		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "boom")
	})
}
