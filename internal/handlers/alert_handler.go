package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/services"
	"github.com/valyala/fasthttp"
)

type AlertHandler struct {
	alerts *services.AlertService
	feeds  *services.FeedService
	images *services.ImageService
}

func NewAlertHandler(alerts *services.AlertService, feeds *services.FeedService, images *services.ImageService) *AlertHandler {
	return &AlertHandler{alerts: alerts, feeds: feeds, images: images}
}

// List is the public feed: verified alerts only.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	q := services.PublicQuery{
		Severity: models.Severity(c.Query("severity")),
		Limit:    c.QueryInt("limit", services.DefaultFeedLimit),
		Offset:   c.QueryInt("offset", 0),
	}
	for _, raw := range strings.Split(c.Query("category"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			q.Categories = append(q.Categories, models.Category(raw))
		}
	}

	alerts, err := h.feeds.Public(c.UserContext(), q)
	if err != nil {
		return serviceError(c, err, "Failed to load alerts")
	}

	return c.JSON(dto.AlertListResponse{
		Alerts: alerts,
		Limit:  services.ClampLimit(q.Limit),
		Offset: max(q.Offset, 0),
	})
}

// Create accepts JSON or a multipart form with an optional "image" file.
// Anonymous submissions are allowed.
func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	upload, err := h.readImage(c)
	if err != nil {
		return serviceError(c, err, "Failed to read image")
	}

	alert, err := h.alerts.Create(c.UserContext(), identity.OptionalUserID(c), &req, upload)
	if err != nil {
		return serviceError(c, err, "Failed to submit alert")
	}

	return c.Status(fiber.StatusCreated).JSON(alert)
}

func (h *AlertHandler) readImage(c *fiber.Ctx) (*services.Upload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	if limit := h.images.MaxBytes(); limit > 0 && fh.Size > limit {
		return nil, services.ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.Upload{Filename: fh.Filename, Data: data}, nil
}

// Get applies the visibility rule: hidden alerts look like missing ones.
func (h *AlertHandler) Get(c *fiber.Ctx) error {
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	alert, err := h.alerts.GetVisible(c.UserContext(), id, identity.ViewerOf(c))
	if err != nil {
		return serviceError(c, err, "Failed to load alert")
	}
	return c.JSON(alert)
}

// Update is the staff edit of descriptive fields.
func (h *AlertHandler) Update(c *fiber.Ctx) error {
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	var req dto.UpdateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	alert, err := h.alerts.Update(c.UserContext(), id, &req)
	if err != nil {
		return serviceError(c, err, "Failed to update alert")
	}
	return c.JSON(alert)
}

// Mine returns the caller's submissions in status tabs.
func (h *AlertHandler) Mine(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	tabs, err := h.feeds.Personal(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to load your alerts")
	}
	return c.JSON(tabs)
}
