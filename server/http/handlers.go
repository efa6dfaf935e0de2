package http

import (
	// Go Internal Packages
	"io"
	"time"

	// Local Packages
	csvparse "masspay/csvparse"
	errors "masspay/errors"
	models "masspay/models"
	qrcodec "masspay/qrcodec"
	batches "masspay/services/batches"

	// External Packages
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// requesterHeader carries the caller identity. Authentication itself lives
// in front of this service; the id is passed through opaquely.
const requesterHeader = "X-Requester-Id"

// UploadBatch accepts a multipart CSV upload and creates a pending batch.
// Skipped rows are returned beside the batch so the caller can show a
// partial accept.
func (r *Router) UploadBatch(c *fiber.Ctx) error {
	requesterID := c.Get(requesterHeader)
	if requesterID == "" {
		return r.fail(c, errors.EmptyParamErr(requesterHeader))
	}

	fileHeader, err := c.FormFile("csvFile")
	if err != nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}

	batch, skipped, err := r.Batches.CreateFromCSV(c.Context(), requesterID, fileHeader.Filename, raw)
	if err != nil {
		return r.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"batch":   batch,
		"skipped": skipped,
	})
}

func (r *Router) ListBatches(c *fiber.Ctx) error {
	requesterID := c.Get(requesterHeader)
	if requesterID == "" {
		return r.fail(c, errors.EmptyParamErr(requesterHeader))
	}

	list, err := r.Batches.List(c.Context(), requesterID)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(list)
}

func (r *Router) GetBatch(c *fiber.Ctx) error {
	batch, err := r.Batches.Get(c.Context(), c.Params("id"))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(batch)
}

func (r *Router) ExecuteBatch(c *fiber.Ctx) error {
	batchID := c.Params("id")
	if err := r.Batches.Execute(c.Context(), batchID); err != nil {
		return r.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"batchId": batchID,
		"status":  models.StatusProcessing,
	})
}

func (r *Router) DownloadTemplate(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="mass_payment_template.csv"`)
	return c.SendString(csvparse.Template())
}

type decodeRequest struct {
	Data string `json:"data"`
}

// DecodeQR decodes scanned text into a typed payload. Always 200: decode is
// total and malformed input degrades to the address fallback.
func (r *Router) DecodeQR(c *fiber.Ctx) error {
	var req decodeRequest
	if err := c.BodyParser(&req); err != nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}

	payload := qrcodec.Decode(req.Data)
	return c.JSON(fiber.Map{
		"type":    payload.PayloadType(),
		"payload": payload,
	})
}

// EncodeQR takes a typed envelope and returns its JSON form plus a PNG data
// URI rendering. Invoices without a number get one generated.
func (r *Router) EncodeQR(c *fiber.Ctx) error {
	var env map[string]any
	if err := json.Unmarshal(c.Body(), &env); err != nil || env == nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}

	tag, _ := env["type"].(string)
	if models.PayloadType(tag) == models.PayloadInvoice {
		if num, _ := env["invoiceNumber"].(string); num == "" {
			env["invoiceNumber"] = batches.NewInvoiceNumber(time.Now())
		}
	}

	normalized, err := json.Marshal(env)
	if err != nil {
		return r.fail(c, errors.InvalidBodyErr(err))
	}

	payload := qrcodec.Decode(string(normalized))
	if payload.PayloadType() != models.PayloadType(tag) {
		return r.fail(c, errors.E(errors.Invalid, "unrecognized or incomplete payload", nil))
	}

	data, err := qrcodec.EncodeString(payload)
	if err != nil {
		return r.fail(c, err)
	}
	image, err := qrcodec.Encode(payload)
	if err != nil {
		return r.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  data,
		"image": image,
	})
}

// fail maps error kinds to HTTP statuses.
func (r *Router) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.Invalid:
		status = fiber.StatusBadRequest
	case errors.NotFound:
		status = fiber.StatusNotFound
	case errors.Conflict:
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		r.Logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
