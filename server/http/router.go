package http

import (
	// Go Internal Packages
	"time"

	// Local Packages
	batches "masspay/services/batches"

	// External Packages
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Router struct {
	App     *fiber.App
	Batches *batches.BatchService
	Logger  *zap.Logger
}

func NewRouter(batchService *batches.BatchService, logger *zap.Logger) *Router {
	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		BodyLimit:             2 * 1024 * 1024, // CSV uploads stay small
		DisableStartupMessage: true,
	})

	return &Router{
		App:     app,
		Batches: batchService,
		Logger:  logger,
	}
}

func (r *Router) RegisterRoutes() {
	r.App.Get("/health", r.HealthCheck)

	r.App.Post("/mass-payments", r.UploadBatch)
	r.App.Get("/mass-payments", r.ListBatches)
	r.App.Get("/mass-payments/template", r.DownloadTemplate)
	r.App.Get("/mass-payments/:id", r.GetBatch)
	r.App.Post("/mass-payments/:id/execute", r.ExecuteBatch)

	r.App.Post("/qr/decode", r.DecodeQR)
	r.App.Post("/qr/encode", r.EncodeQR)
}

func (r *Router) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Service is running",
	})
}
