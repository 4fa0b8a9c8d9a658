package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"membership_site/internal/config"
	"membership_site/internal/handler"
	"membership_site/internal/middleware"
	"membership_site/internal/repository"
	"membership_site/internal/service"
	"membership_site/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}

	// --- Configuration ---
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("Failed to load DB config: %v", err)
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatalf("SESSION_SECRET not set in environment")
	}

	sessionTTL := 10 * time.Minute
	if ttlStr := os.Getenv("SESSION_TTL_MINUTES"); ttlStr != "" {
		ttlMinutes, err := strconv.ParseInt(ttlStr, 10, 64)
		if err != nil || ttlMinutes <= 0 {
			log.Printf("Invalid SESSION_TTL_MINUTES %q, defaulting to 10", ttlStr)
		} else {
			sessionTTL = time.Duration(ttlMinutes) * time.Minute
		}
	}

	bcryptCost := bcrypt.DefaultCost
	if costStr := os.Getenv("BCRYPT_COST"); costStr != "" {
		cost, err := strconv.Atoi(costStr)
		if err != nil {
			log.Printf("Invalid BCRYPT_COST %q, defaulting to %d", costStr, bcrypt.DefaultCost)
		} else {
			bcryptCost = cost
		}
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080" // Default port
	}

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(dbPool); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	// --- Initialize Utilities ---
	signer := utils.NewCookieSigner(sessionSecret)

	// --- Initialize Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)

	// --- Initialize Services ---
	sessionService := service.NewSessionService(sessionRepo, sessionTTL)
	authService := service.NewAuthService(userRepo, sessionService, bcryptCost)

	// --- Initialize Handlers ---
	pageHandler := handler.NewPageHandler()
	authHandler := handler.NewAuthHandler(authService, sessionService, signer)
	adminHandler := handler.NewAdminHandler(authService)

	// --- Setup Gin Router ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default()
	router.LoadHTMLGlob("web/templates/*.html")
	router.Static("/public", "./public")

	// --- Initialize Middlewares ---
	middleware.RegisterMetrics()
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SessionMiddleware(signer, sessionService))
	requireAuth := middleware.RequireAuth()
	requireAdmin := middleware.RequireAdmin()

	// --- Register Routes ---
	pageHandler.RegisterPageRoutes(router, requireAuth)
	authHandler.RegisterAuthRoutes(router)
	adminHandler.RegisterAdminRoutes(router, requireAdmin)

	router.GET("/metrics", middleware.MetricsHandler())

	// Health check endpoint
	router.GET("/healthz", func(c *gin.Context) {
		if err := dbPool.Ping(context.Background()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	// --- Expired Session Sweep ---
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(sessionTTL)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := sessionService.PurgeExpired(sweepCtx)
				if err != nil {
					log.Printf("Failed to purge expired sessions: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("Purged %d expired sessions", n)
				}
			}
		}
	}()

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + serverPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
