package routes

import (
	"context"
	"errors"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/huddle-app/huddle-backend/internal/config"
	"github.com/huddle-app/huddle-backend/internal/handlers"
	"github.com/huddle-app/huddle-backend/internal/logger"
	"github.com/huddle-app/huddle-backend/internal/metrics"
	"github.com/huddle-app/huddle-backend/internal/middleware"
	"github.com/huddle-app/huddle-backend/internal/ratelimit"
	"github.com/huddle-app/huddle-backend/internal/repository"
	"github.com/huddle-app/huddle-backend/internal/services"
	chatws "github.com/huddle-app/huddle-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the long-lived resources owned by main.
type Dependencies struct {
	DB       *pgxpool.Pool
	Limiter  *ratelimit.Limiter
	Registry *prometheus.Registry
	Log      *logger.Logger
}

type routeHandlers struct {
	auth      *handlers.AuthHandler
	chat      *handlers.ChatHandler
	directory *handlers.DirectoryHandler
	profile   *handlers.ProfileHandler
}

// RegisterRoutes wires the API onto app and starts the background chat
// workers, which stop when ctx ends.
func RegisterRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, deps Dependencies) error {
	if deps.DB == nil {
		return errors.New("database pool is required")
	}

	credentialRepo := repository.NewCredentialRepository(deps.DB)
	documentRepo := repository.NewDocumentRepository(deps.DB)
	messageRepo := repository.NewMessageRepository(deps.DB)

	var registerer prometheus.Registerer
	if deps.Registry != nil {
		registerer = deps.Registry
	}
	chatMetrics := metrics.NewChatMetrics(registerer)

	profileService := services.NewProfileService(documentRepo)
	directoryService := services.NewDirectoryService(documentRepo)
	chatService := services.NewChatService(messageRepo, documentRepo, deps.Limiter, chatMetrics, deps.Log)

	feed := services.NewInboxFeed(chatService, chatMetrics, deps.Log)
	chatHub := chatws.NewHub(feed, deps.Log)
	go chatHub.Run(ctx)
	go func() {
		if err := feed.Listen(ctx, repository.NewMessageListener(deps.DB)); err != nil && !errors.Is(err, context.Canceled) {
			deps.Log.Error(ctx, "inbox feed stopped", err)
		}
	}()

	if deps.Registry != nil {
		registerMetricsRoute(app, deps.Registry)
	}

	mountRoutes(app, cfg, routeHandlers{
		auth:      handlers.NewAuthHandler(credentialRepo, profileService, cfg.JWTSecret),
		chat:      handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret),
		directory: handlers.NewDirectoryHandler(directoryService),
		profile:   handlers.NewProfileHandler(profileService),
	})
	return nil
}

func registerMetricsRoute(app *fiber.App, registry *prometheus.Registry) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

func mountRoutes(app *fiber.App, cfg *config.Config, h routeHandlers) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.auth.Register)
	auth.Post("/login", h.auth.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), h.auth.Me)

	// The websocket authenticates from the query string, so it is mounted
	// before the bearer-protected group claims the /v1 prefix.
	api.Use("/v1/ws", h.chat.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(h.chat.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	authProtected.Get("/inbox", h.chat.GetInbox)
	authProtected.Post("/messages", h.chat.SendMessage)
	authProtected.Get("/conversations/:id/messages", h.chat.GetMessages)

	authProtected.Get("/coaches", h.directory.ListCoaches)
	authProtected.Get("/teams", h.directory.ListTeams)
	authProtected.Get("/leagues", h.directory.ListLeagues)

	authProtected.Get("/profile", h.profile.GetOwnProfile)
	authProtected.Put("/profile", h.profile.UpdateProfile)
	authProtected.Get("/profiles/:id", h.profile.GetProfile)
}
