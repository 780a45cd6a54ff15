package remove

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) DeleteWarranty(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func TestRemoveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()
	id := uuid.New()

	tests := []struct {
		name       string
		id         string
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "deleted",
			id:   id.String(),
			setupMock: func(m *MockService) {
				m.On("DeleteWarranty", mock.Anything, userID, id).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   "تم حذف شهادة الضمان بنجاح",
		},
		{
			name:       "invalid id",
			id:         "123",
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"code":"invalid_id"`,
		},
		{
			name: "not found",
			id:   id.String(),
			setupMock: func(m *MockService) {
				m.On("DeleteWarranty", mock.Anything, userID, id).Return(apperr.NotFound("op", i18n.CodeWarrantyNotFound)).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"code":"warranty_not_found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/warranties/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(middlewarectx.WithPrincipal(ctx, models.Principal{UserID: userID}))
			rec := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
