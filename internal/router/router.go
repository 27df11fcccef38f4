package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/handlers"
	"github.com/anonto42/songoftheday/backend/internal/middleware"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/internal/views"
	"github.com/anonto42/songoftheday/backend/pkg/spotify"
	"github.com/anonto42/songoftheday/backend/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	SQL *gorm.DB
	// Mongo, when set, stores direct messages instead of SQL.
	Mongo *mongo.Database

	Sessions     *session.Manager
	Calendar     *calendar.Calendar
	AlbumArt     handlers.AlbumArtLookup
	FirebaseAuth handlers.IDTokenVerifier

	UploadDir string
	// UploadMaxSize caps every request body, e.g. "32M".
	UploadMaxSize string
	// SecureCookies marks the session and CSRF cookies Secure.
	SecureCookies bool
	// LoginRateLimit is requests per second per client on login and register; 0 disables it.
	LoginRateLimit float64
}

// New builds the echo server with renderer, validator, middleware and routes.
func New(deps Dependencies) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.JSONSerializer = JSONSerializer{}
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	if deps.AlbumArt == nil {
		deps.AlbumArt = spotify.NewClient(spotify.Config{})
	}

	SetupMiddleware(e, deps)
	if err := SetupRoutes(e, deps); err != nil {
		return nil, err
	}
	return e, nil
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, deps Dependencies) {
	bodyLimit := deps.UploadMaxSize
	if bodyLimit == "" {
		bodyLimit = "32M"
	}

	e.Use(eMiddleware.RequestIDWithConfig(eMiddleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.BodyLimit(bodyLimit))
	e.Use(middleware.SessionMiddleware(deps.Sessions))
	e.Use(eMiddleware.CSRFWithConfig(eMiddleware.CSRFConfig{
		TokenLookup:    "form:csrf_token",
		ContextKey:     views.CSRFContextKey,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   deps.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "Invalid or missing form token. Reload the page and try again.").SetInternal(err)
		},
	}))
	log.Debug().Msg("Global middleware configured.")
}

// SetupRoutes migrates the schema and registers every route with its dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) error {
	if err := models.AutoMigrate(deps.SQL); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info().Msg("Auto-migrations completed for all models.")

	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.SQL)
	followRepo := repositories.NewPostgresFollowRepository(deps.SQL)
	songRepo := repositories.NewPostgresDailySongRepository(deps.SQL)
	var messageRepo repositories.MessageRepository = repositories.NewPostgresMessageRepository(deps.SQL)
	if deps.Mongo != nil {
		messageRepo = repositories.NewMongoMessageRepository(deps.Mongo)
		log.Info().Str("database", deps.Mongo.Name()).Msg("Direct messages stored in MongoDB.")
	}

	requireLogin := middleware.RequireLogin()

	// --- Public routes ---
	authHandler := handlers.NewAuthHandler(userRepo, deps.Sessions, deps.FirebaseAuth)
	authHandler.RegisterAuthRoutes(e, loginLimiter(deps.LoginRateLimit), requireLogin)

	feedHandler := handlers.NewFeedHandler(songRepo)
	feedHandler.RegisterFeedRoutes(e)

	albumArtHandler := handlers.NewAlbumArtHandler(deps.AlbumArt)
	albumArtHandler.RegisterAlbumArtRoutes(e)

	// --- Routes requiring a signed-in account ---
	member := e.Group("", requireLogin)

	handlers.NewDailySongHandler(songRepo, userRepo, deps.Calendar, deps.Sessions).RegisterDailySongRoutes(member)
	handlers.NewFollowHandler(followRepo, userRepo).RegisterFollowRoutes(member)
	handlers.NewUserHandler(userRepo, followRepo, songRepo).RegisterProfileRoutes(member)
	handlers.NewMessageHandler(messageRepo, userRepo).RegisterMessageRoutes(member)

	handlers.NewUploadHandler(deps.UploadDir).RegisterUploadRoutes(member)

	log.Info().Msg("All routes configured.")
	return nil
}

func loginLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(perSecond * 5)
	if burst < 5 {
		burst = 5
	}
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
