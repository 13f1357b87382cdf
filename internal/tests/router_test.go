package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/app"
	"carpool/internal/handler"
	"carpool/internal/middleware"
)

const testJWTSecret = "test-secret"

// newRouter builds the full HTTP surface over the mock-backed services.
func newRouter(t *testing.T, e *env, devTokens bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	return app.NewRouter(app.RouterDeps{
		UserHandler:    handler.NewUserHandler(e.userService, testJWTSecret),
		RideHandler:    handler.NewRideHandler(e.rideService, e.searchService, e.bookingService),
		RequestHandler: handler.NewRequestHandler(e.requestService),
		BookingHandler: handler.NewBookingHandler(e.bookingService),
		JWTSecret:      testJWTSecret,
		DevTokens:      devTokens,
	})
}

func doRequest(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.GenerateToken(testJWTSecret, userID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func TestTokenEndpoint_DisabledByDefault(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addPassenger("passenger-1")
	router := newRouter(t, e, false)

	w := doRequest(router, http.MethodPost, "/v1/auth/token", "", `{"email":"passenger-1@example.com"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 with dev tokens off, got %d", w.Code)
	}
}

func TestTokenEndpoint_DevModeMintsUsableToken(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addPassenger("passenger-1")
	router := newRouter(t, e, true)

	w := doRequest(router, http.MethodPost, "/v1/auth/token", "", `{"email":"passenger-1@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	me := doRequest(router, http.MethodGet, "/v1/me", resp.Token, "")
	if me.Code != http.StatusOK {
		t.Errorf("minted token rejected: %d %s", me.Code, me.Body.String())
	}
}

func TestStateChangeEndpoints_AcceptEmptyBody(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	e.addPendingRequest("req-1", ride, "passenger-1", 1)

	router := newRouter(t, e, false)
	driverToken := userToken(t, "driver-1")

	// A bare POST with no body declines the request.
	w := doRequest(router, http.MethodPost, "/v1/requests/req-1/decline", driverToken, "")
	if w.Code != http.StatusOK {
		t.Errorf("bare decline: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Same for cancelling a ride.
	w = doRequest(router, http.MethodPost, "/v1/rides/ride-1/cancel", driverToken, "")
	if w.Code != http.StatusOK {
		t.Errorf("bare ride cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStateChangeEndpoints_RequireAuth(t *testing.T) {
	t.Parallel()

	e := newEnv()
	router := newRouter(t, e, false)

	w := doRequest(router, http.MethodPost, "/v1/requests/req-1/decline", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
}
