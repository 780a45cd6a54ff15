package userremove

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

func (m *MockService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	return m.Called(ctx, actorID, id).Error(0)
}

func TestUserRemoveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adminID := uuid.New()
	id := uuid.New()

	tests := []struct {
		name       string
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "deleted",
			setupMock: func(m *MockService) {
				m.On("DeleteUser", mock.Anything, adminID, id).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"code":"user_deleted"`,
		},
		{
			name: "unknown",
			setupMock: func(m *MockService) {
				m.On("DeleteUser", mock.Anything, adminID, id).Return(apperr.NotFound("op", i18n.CodeUserNotFound)).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"code":"user_not_found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+id.String(), nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", id.String())
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(middlewarectx.WithPrincipal(ctx, models.Principal{UserID: adminID, Role: models.RoleAdmin}))
			rec := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
