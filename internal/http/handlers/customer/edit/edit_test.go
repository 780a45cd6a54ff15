package edit

import (
	"bytes"
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

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) EditCertificate(ctx context.Context, userID, customerID uuid.UUID, req models.EditRequest) (models.EditResult, error) {
	args := m.Called(ctx, userID, customerID, req)
	return args.Get(0).(models.EditResult), args.Error(1)
}

func TestEditHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New().String()
	body := `{"customer_name":"أحمد","phone_number":"0512345678","invoice_number":"INV-2",` +
		`"product_ids":["` + productID + `"],"warranty_duration_months":6}`

	tests := []struct {
		name       string
		body       string
		setupMock  func(*ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name: "edited",
			body: body,
			setupMock: func(m *ServiceMock) {
				m.On("EditCertificate", mock.Anything, userID, customerID, mock.MatchedBy(func(req models.EditRequest) bool {
					return req.InvoiceNumber == "INV-2" && req.DurationMonths == 6
				})).Return(models.EditResult{CustomerID: customerID, Created: []uuid.UUID{uuid.New()}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   customerID.String(),
		},
		{
			name:       "no products",
			body:       `{"customer_name":"أحمد","phone_number":"0512345678","invoice_number":"INV-2","product_ids":[],"warranty_duration_months":6}`,
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"code":"products_required"`,
		},
		{
			name: "customer gone",
			body: body,
			setupMock: func(m *ServiceMock) {
				m.On("EditCertificate", mock.Anything, userID, customerID, mock.Anything).
					Return(models.EditResult{}, apperr.NotFound("op", i18n.CodeCustomerNotFound)).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"code":"customer_not_found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/customers/"+customerID.String()+"/certificate", bytes.NewBufferString(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", customerID.String())
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
