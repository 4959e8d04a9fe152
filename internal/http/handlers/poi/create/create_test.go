package create

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, actor *models.User, req models.DummyPOI) (*models.POI, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.POI), args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	actor := &models.User{ID: "u1", Email: "alice@example.com", Role: models.RoleUser, Plan: "free"}

	tests := []struct {
		name           string
		requestBody    interface{}
		actor          *models.User
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное создание точки",
			requestBody: models.DummyPOI{
				Lat:   55.7558,
				Lng:   37.6173,
				Title: "Red Square",
			},
			actor: actor,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, actor, mock.AnythingOfType("models.DummyPOI")).
					Return(&models.POI{ID: "poi-1", Title: "Red Square"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"poi-1"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			actor:          actor,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка валидации",
			requestBody: models.DummyPOI{
				Lat:   200,
				Lng:   37.6173,
				Title: "",
			},
			actor:          actor,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "отсутствует авторизация",
			requestBody: models.DummyPOI{
				Lat:   55.7558,
				Lng:   37.6173,
				Title: "Red Square",
			},
			actor:          nil,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name: "квота исчерпана",
			requestBody: models.DummyPOI{
				Lat:   55.7558,
				Lng:   37.6173,
				Title: "Red Square",
			},
			actor: actor,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, actor, mock.AnythingOfType("models.DummyPOI")).
					Return(nil, &errs.QuotaError{
						Quota:   errs.QuotaTotalPOIs,
						Plan:    "free",
						Current: 100,
						Limit:   100,
					})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/pois", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := req.Context()
			if tt.actor != nil {
				ctx = context.WithValue(ctx, middlewarectx.Actor, tt.actor)
			}
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
