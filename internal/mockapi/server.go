// Package mockapi is a local stand-in for the admin backend: it serves
// the generic auth endpoints (sign-in, sign-up, current-user, update,
// refresh) and simulates the identity provider's challenge-response
// handshake, so the whole client stack can run end to end without any
// hosted services.
package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/authgate-dev/authgate/internal/config"
)

// Server represents the mock auth API server
type Server struct {
	router     *gin.Engine
	db         *gorm.DB
	cfg        *config.MockAPIConfig
	logger     zerolog.Logger
	tokens     *TokenIssuer
	challenges *challengeStore
}

// New creates a new server instance
func New(cfg *config.MockAPIConfig, zlog zerolog.Logger) (*Server, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	server := &Server{
		db:         db,
		cfg:        cfg,
		logger:     zlog,
		tokens:     NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute),
		challenges: newChallengeStore(),
	}
	server.setupRouter()

	return server, nil
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.ExposeHeaders = append(corsConfig.ExposeHeaders, "New-Access-Token")
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	{
		api.POST("/auth/sign-in", s.signIn)
		api.POST("/auth/sign-up", s.signUp)

		authed := api.Group("/auth", s.authRequired())
		{
			authed.GET("/user", s.getUser)
			authed.PUT("/user", s.updateUser)
			authed.POST("/refresh", s.refresh)
		}

		api.POST("/idp/initiate", s.idpInitiate)
		api.POST("/idp/challenge", s.idpChallenge)
	}

	s.router = router
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// DB exposes the database handle for tests and seeding.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("Mock auth API listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	s.logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
