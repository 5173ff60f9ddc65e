package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/hms/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("ping", "/ping").
		GET("", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	NewRouter(engine).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	t.Run("unknown route uses the envelope", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/nowhere")
		require.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := serve(engine, http.MethodDelete, "/api/v1/ping")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestDomainGroup(t *testing.T) {
	var order []string
	mw := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	group := NewDomainGroup("bookings", "/bookings").Use(mw("group")).
		GET("/:id", ok).
		PATCH("/:id", ok)
	group.Group("bills", "/:id/bills").Use(mw("sub")).
		POST("/extend", ok)

	engine := gin.New()
	NewRouter(engine).Register(group).Setup()

	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodPatch, "/api/v1/bookings/1").Code)
	assert.Equal(t, []string{"group"}, order)

	order = nil
	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodPost, "/api/v1/bookings/1/bills/extend").Code)
	assert.Equal(t, []string{"group", "sub"}, order)

	assert.Equal(t, "bookings", group.Name())
	assert.Equal(t, "/bookings", group.Prefix())
	assert.ElementsMatch(t, []Route{
		{Method: http.MethodGet, Path: "/api/v1/bookings/:id"},
		{Method: http.MethodPatch, Path: "/api/v1/bookings/:id"},
		{Method: http.MethodPost, Path: "/api/v1/bookings/:id/bills/extend"},
	}, group.Routes("/api/v1"))
}

func TestBillingRoutes(t *testing.T) {
	groups := BillingRoutes(BillingHandlers{
		Bookings: handler.NewBookingHandler(nil, nil, nil),
		Payments: handler.NewPaymentHandler(nil),
		Ledger:   handler.NewLedgerHandler(nil),
	})

	var routes []Route
	for _, g := range groups {
		routes = append(routes, g.Routes("/api/v1")...)
	}

	assert.ElementsMatch(t, []Route{
		{http.MethodPost, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/bookings/:id"},
		{http.MethodPut, "/api/v1/bookings/:id"},
		{http.MethodDelete, "/api/v1/bookings/:id"},
		{http.MethodPost, "/api/v1/bookings/:id/checkout"},
		{http.MethodPost, "/api/v1/bookings/:id/bills/extend"},
		{http.MethodGet, "/api/v1/bookings/:id/bills"},
		{http.MethodGet, "/api/v1/bookings/:id/payments"},
		{http.MethodPost, "/api/v1/bookings/:id/payments/simulate"},
		{http.MethodGet, "/api/v1/bookings/:id/deposit"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodGet, "/api/v1/payments/:id"},
		{http.MethodPut, "/api/v1/payments/:id"},
		{http.MethodDelete, "/api/v1/payments/:id"},
		{http.MethodPatch, "/api/v1/deposits/:id/status"},
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodDelete, "/api/v1/transactions/:id"},
	}, routes)

	engine := gin.New()
	r := NewRouter(engine)
	for _, g := range groups {
		r.Register(g)
	}
	require.NotPanics(t, r.Setup)
	assert.Len(t, engine.Routes(), len(routes))

	t.Run("path ids are checked before the service is called", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/bookings/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterHealth(t *testing.T) {
	engine := gin.New()
	RegisterHealth(engine, handler.NewHealthHandler("test", "UTC"))

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/ready").Code)
}
