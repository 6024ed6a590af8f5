package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func newTestRouter() (*gin.Engine, AuthConfig) {
	gin.SetMode(gin.TestMode)

	config := AuthConfig{JWTSecretKey: "test-secret", AccessTokenExpireDays: 1}
	sessions := func() RepositorySession {
		return &fakeSession{store: newFakeStore()}
	}
	handler := NewStoreHandler(sessions, config, otel.Tracer("test"))

	r := gin.New()
	r.GET("/health", handler.HealthCheck)
	r.POST("/api/auth/signup", handler.SignUp)
	r.POST("/api/auth/token", handler.IssueToken)
	r.POST("/api/orders", handler.PlaceOrder)
	r.GET("/api/orders", handler.ListOrders)
	return r, config
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestPlaceOrderRequiresBearerToken(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodPost, "/api/orders", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderRejectsInvalidToken(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodPost, "/api/orders", "not-a-token", `{}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderRejectsMissingOrderID(t *testing.T) {
	r, config := newTestRouter()
	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	body := `{"order_items": [{"product_id": "p1", "quantity": 1}]}`
	w := doRequest(r, http.MethodPost, "/api/orders", token, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderRejectsMalformedOrderID(t *testing.T) {
	r, config := newTestRouter()
	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	body := `{"order_id": "not-a-uuid", "order_items": [{"product_id": "p1", "quantity": 1}]}`
	w := doRequest(r, http.MethodPost, "/api/orders", token, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderRejectsEmptyItems(t *testing.T) {
	r, config := newTestRouter()
	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	body := `{"order_id": "77b320b4-9e78-4ae9-ba13-bf3ba4ef24c6", "order_items": []}`
	w := doRequest(r, http.MethodPost, "/api/orders", token, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderRejectsNonPositiveQuantity(t *testing.T) {
	r, config := newTestRouter()
	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	body := `{"order_id": "77b320b4-9e78-4ae9-ba13-bf3ba4ef24c6", "order_items": [{"product_id": "p1", "quantity": 0}]}`
	w := doRequest(r, http.MethodPost, "/api/orders", token, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderRejectsDuplicatedProductIDs(t *testing.T) {
	r, config := newTestRouter()
	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	body := `{"order_id": "77b320b4-9e78-4ae9-ba13-bf3ba4ef24c6", "order_items": [` +
		`{"product_id": "p1", "quantity": 1}, {"product_id": "p1", "quantity": 2}]}`
	w := doRequest(r, http.MethodPost, "/api/orders", token, body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "duplicated product id")
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodPost, "/api/auth/signup", "", `{"username": "alice", "password": "short"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueTokenRejectsMissingFields(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodPost, "/api/auth/token", "", `{"username": "alice"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrdersRequiresBearerToken(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodGet, "/api/orders", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
