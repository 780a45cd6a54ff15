package list

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/warranty-service/internal/lib/listing"
	services "github.com/magabrotheeeer/warranty-service/internal/services/warranty"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context, c listing.Criteria) (services.ListResult, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(services.ListResult), args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		url        string
		setupMock  func(*ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name: "defaults",
			url:  "/api/v1/warranties",
			setupMock: func(m *ServiceMock) {
				m.On("List", mock.Anything, listing.Criteria{Status: "all", DateRange: listing.RangeAll, Product: "all"}).
					Return(services.ListResult{Total: 0}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"total":0`,
		},
		{
			name: "all filters",
			url:  "/api/v1/warranties?search=%D8%A3%D8%AD%D9%85%D8%AF&status=expiring_soon&date=week&product=Samsung",
			setupMock: func(m *ServiceMock) {
				m.On("List", mock.Anything, listing.Criteria{
					Search: "أحمد", Status: "expiring_soon", DateRange: listing.RangeWeek, Product: "Samsung",
				}).Return(services.ListResult{Total: 2}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"total":2`,
		},
		{
			name:       "unknown status",
			url:        "/api/v1/warranties?status=lost",
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"code":"invalid_filter"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
