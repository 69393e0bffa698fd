package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/config"
	"github.com/huddle-app/huddle-backend/internal/handlers"
	"github.com/huddle-app/huddle-backend/internal/metrics"
	chatws "github.com/huddle-app/huddle-backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func newRoutesTestApp() *fiber.App {
	app := fiber.New()
	mountRoutes(app, &config.Config{JWTSecret: "secret"}, routeHandlers{
		auth:      handlers.NewAuthHandler(nil, nil, "secret"),
		chat:      handlers.NewChatHandler(nil, chatws.NewHub(nil, nil), "secret"),
		directory: handlers.NewDirectoryHandler(nil),
		profile:   handlers.NewProfileHandler(nil),
	})
	return app
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	app := newRoutesTestApp()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/inbox"},
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/conversations/u1_u2/messages"},
		{http.MethodGet, "/api/v1/coaches"},
		{http.MethodGet, "/api/v1/teams"},
		{http.MethodGet, "/api/v1/leagues"},
		{http.MethodGet, "/api/v1/profile"},
		{http.MethodPut, "/api/v1/profile"},
		{http.MethodGet, "/api/v1/profiles/c1"},
		{http.MethodGet, "/api/auth/me"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	app := newRoutesTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=abc", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestMetricsRouteExposesChatMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)
	chatMetrics.IncMessagesSent()

	app := fiber.New()
	registerMetricsRoute(app, registry)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "messages_sent_total 1") {
		t.Fatalf("unexpected metrics response %d: %s", resp.StatusCode, body)
	}
}

func TestRegisterRoutesRequiresDatabase(t *testing.T) {
	err := RegisterRoutes(context.Background(), fiber.New(), &config.Config{JWTSecret: "secret"}, Dependencies{})
	if err == nil {
		t.Fatal("expected an error without a database pool")
	}
}
