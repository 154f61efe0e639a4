// Package backend serves generated process tables over HTTP.
package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/connectors/processstore"
	"go-process-table-ui/internal/generator"
	"go-process-table-ui/internal/process"
)

// Generator draws a new process table.
type Generator interface {
	Generate() ([]process.Record, generator.InputParams)
}

// Store persists the latest table.
type Store interface {
	Replace(ctx context.Context, records []process.Record, params generator.InputParams, at time.Time) error
	Latest(ctx context.Context) (*processstore.Snapshot, error)
	ServiceStats(ctx context.Context) (*processstore.ServiceStats, error)
}

// Handler implements the backend routes.
type Handler struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	// genMu serializes generations; Generator is not safe for concurrent use.
	genMu sync.Mutex
	gen   Generator
}

func NewHandler(store Store, gen Generator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, gen: gen, logger: logger, now: time.Now}
}

// NewApp wires the routes onto a fiber app.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Use(recover.New())
	app.Use(h.accessLog)

	app.Get(processapi.ProcessesPath, h.Processes)
	app.Get(processapi.InputDataPath, h.InputData)
	app.Post(processapi.GeneratePath, h.Generate)
	app.Get("/health", h.Health)
	return app
}

// Processes serves the latest table as whitespace-separated text.
func (h *Handler) Processes(c *fiber.Ctx) error {
	snap, err := h.store.Latest(c.UserContext())
	if err != nil {
		return err
	}
	c.Type("txt", "utf-8")
	return c.SendString(process.Format(snap.Records))
}

// InputData serves the parameter summary of the latest generation.
func (h *Handler) InputData(c *fiber.Ctx) error {
	snap, err := h.store.Latest(c.UserContext())
	if err != nil {
		return err
	}
	c.Type("txt", "utf-8")
	return c.SendString(snap.Params.String())
}

// Generate draws and stores a new table.
func (h *Handler) Generate(c *fiber.Ctx) error {
	h.genMu.Lock()
	records, params := h.gen.Generate()
	h.genMu.Unlock()

	if err := h.store.Replace(c.UserContext(), records, params, h.now()); err != nil {
		h.logger.Error("store generation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}

	h.logger.Info("processes generated",
		zap.Int("processes", params.Count),
		zap.Float64("lambda_priority", params.LambdaPriority))
	return c.JSON(fiber.Map{"status": "success"})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	stats, err := h.store.ServiceStats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "store": stats})
}

func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.Is(err, processstore.ErrNotGenerated):
		code = fiber.StatusNotFound
	case errors.As(err, &fe):
		code = fe.Code
	default:
		h.logger.Error("backend request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	c.Type("txt", "utf-8")
	return c.Status(code).SendString(err.Error())
}

func (h *Handler) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			status = fe.Code
		case errors.Is(err, processstore.ErrNotGenerated):
			status = fiber.StatusNotFound
		default:
			status = fiber.StatusInternalServerError
		}
	}
	h.logger.Info("backend request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))
	return err
}

// Serve runs app on addr until ctx is done.
func Serve(ctx context.Context, app *fiber.App, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
