package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaints-service/config"
	"complaints-service/database"
	"complaints-service/email"
	"complaints-service/handlers"
	"complaints-service/middleware"
	"complaints-service/service"
	"complaints-service/storage"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
)

func main() {
	cfg := config.Load()

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer db.Close()

	if err := database.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	store := database.NewComplaintService(db)
	audit := database.NewAuditWriter(db)
	storageClient := storage.NewClient(cfg)

	dispatcher := email.NewDispatcher(cfg)
	dispatcher.Start()

	lifecycle := service.NewLifecycleService(store, audit, dispatcher, storageClient)
	handler := handlers.NewComplaintsHandler(lifecycle, store, audit, storageClient)

	router := setupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop the dispatcher after the server so in-flight requests can still
	// enqueue their notifications.
	dispatcher.Stop()

	log.Info("Server exited")
}

// buildDSN builds the MySQL connection string. clientFoundRows makes
// rows-affected count matched rows rather than changed rows; the store's
// zero-rows checks (not found, lost conditional write, assignee guard)
// depend on that, since a same-value update within the same TIMESTAMP
// second changes nothing and would otherwise report zero.
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func setupDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	waitInterval := 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break
		} else {
			log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		}
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return db, nil
}

func setupRouter(cfg *config.Config, h *handlers.ComplaintsHandler) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api/v3")

	// Anonymous surface: submission and token tracking.
	api.POST("/complaints", h.SubmitComplaint)
	api.POST("/uploads", h.CreateUpload)
	api.GET("/track/:token", h.TrackComplaint)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	admin := authed.Group("")
	admin.Use(middleware.RequireRole("admin"))
	admin.GET("/complaints", h.ListComplaints)
	admin.GET("/complaints/:id", h.GetComplaint)
	admin.GET("/complaints/:id/photos", h.GetPhotoURLs)
	admin.PATCH("/complaints/:id", h.UpdateComplaint)
	admin.POST("/bulk", h.BulkAction)
	admin.POST("/complaints/:id/assign", h.AssignComplaint)
	admin.GET("/complaints/:id/reports", h.ListComplaintReports)
	admin.GET("/reports/pending", h.ListPendingReports)
	admin.POST("/complaints/:id/verify", h.VerifyComplaint)
	admin.POST("/complaints/:id/reject", h.RejectComplaint)
	admin.POST("/complaints/:id/portal", h.QueueForPortal)
	admin.GET("/complaints/:id/audit", h.ListAuditLog)

	worker := authed.Group("")
	worker.Use(middleware.RequireRole("worker"))
	worker.POST("/complaints/:id/report", h.SubmitReport)
	worker.GET("/workers/me/complaints", h.ListMyComplaints)

	return router
}
