package api

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/TFMV/fabrica/report"
	"github.com/TFMV/fabrica/version"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ServerOptions configures the status server.
type ServerOptions struct {
	Port string

	// ReportPath is where the last run report JSON lives.
	ReportPath string
}

// Server holds the Fiber app instance
type Server struct {
	app  *fiber.App
	opts ServerOptions
}

// NewServer initializes a new Fiber instance exposing run status endpoints.
func NewServer(opts ServerOptions) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:  10 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Middleware
	app.Use(recover.New()) // Auto-recovers from panics
	app.Use(logger.New())  // Logs all requests

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Fabrica API",
			"version": version.Version,
			"build":   version.BuildDate,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/report", func(c *fiber.Ctx) error {
		rep, err := loadReport(opts)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(rep)
	})

	app.Get("/watermarks", func(c *fiber.Ctx) error {
		rep, err := loadReport(opts)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		marks := fiber.Map{}
		for _, d := range rep.Datasets {
			marks[d.Dataset] = fiber.Map{
				"before": d.WatermarkBefore,
				"after":  d.WatermarkAfter,
			}
		}
		return c.JSON(marks)
	})

	return &Server{app: app, opts: opts}
}

// loadReport reads the last run report from the configured path.
func loadReport(opts ServerOptions) (*report.RunReport, error) {
	if opts.ReportPath == "" {
		return nil, errors.New("no report path configured")
	}
	return report.FromFile(opts.ReportPath)
}

// Start runs the Fiber server and handles graceful shutdown
func (s *Server) Start() error {
	port := s.opts.Port
	if port == "" {
		port = "3000" // Default port
	}

	// Channel to listen for OS termination signals (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	// Start server in a goroutine
	go func() {
		log.Printf("Fabrica API is running on port %s\n", port)
		if err := s.app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-quit
	log.Println("Received shutdown signal, stopping server...")

	// Create a timeout context for the shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		log.Fatalf("Error shutting down: %v", err)
	}

	log.Println("Server shutdown successfully")
	return nil
}

// Shutdown stops the server immediately.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
