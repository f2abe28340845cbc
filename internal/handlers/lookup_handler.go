package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nagaralert/alerthub/internal/analysis"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/geocoding"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/services"
)

// Geocoder is the subset of the Nominatim client the handlers use.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocoding.Place, error)
	Reverse(ctx context.Context, lat, lng float64) (*geocoding.Place, error)
}

type GeocodeHandler struct {
	geocoder Geocoder
}

func NewGeocodeHandler(geocoder Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

func (h *GeocodeHandler) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Query parameter q is required")
	}

	place, err := h.geocoder.Search(c.UserContext(), q)
	if err != nil {
		if errors.Is(err, geocoding.ErrNoResults) {
			return errorJSON(c, fiber.StatusNotFound, "No matching location found")
		}
		slog.Warn("geocode search failed", "error", err)
		return errorJSON(c, fiber.StatusBadGateway, "Location search is unavailable right now")
	}

	return c.JSON(dto.GeocodeResponse{
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		DisplayName: place.DisplayName,
	})
}

// Reverse never fails once the coordinates parse: lookup problems degrade to a
// coordinate label marked as a fallback.
func (h *GeocodeHandler) Reverse(c *fiber.Ctx) error {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errorJSON(c, fiber.StatusBadRequest, "Valid lat and lng query parameters are required")
	}

	place, err := h.geocoder.Reverse(c.UserContext(), lat, lng)
	if err != nil {
		slog.Warn("reverse geocode failed, using coordinates", "error", err)
		return c.JSON(dto.GeocodeResponse{
			Latitude:    lat,
			Longitude:   lng,
			DisplayName: geocoding.FallbackName(lat, lng),
			Fallback:    true,
		})
	}

	return c.JSON(dto.GeocodeResponse{
		Latitude:    lat,
		Longitude:   lng,
		DisplayName: place.DisplayName,
		Address:     place.Address,
	})
}

const analysisFailed = "AI analysis failed. Please continue with manual entry."

// RecentAlerts supplies the comparison set for duplicate checks.
type RecentAlerts interface {
	List(ctx context.Context, f services.AlertFilter) ([]models.Alert, error)
}

type AnalysisHandler struct {
	analyzer analysis.Analyzer
	recent   RecentAlerts
	timeout  time.Duration
}

func NewAnalysisHandler(analyzer analysis.Analyzer, recent RecentAlerts, timeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, recent: recent, timeout: timeout}
}

func (h *AnalysisHandler) AnalyzeAlert(c *fiber.Ctx) error {
	var req dto.AnalyzeAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	title, description := strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)
	if title == "" && description == "" && req.ImageURL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Provide a title, description or image to analyze")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	var (
		result *analysis.Result
		err    error
	)
	if title != "" || description != "" {
		result, err = h.analyzer.AnalyzeText(ctx, title, description)
	} else {
		result, err = h.analyzer.AnalyzeImage(ctx, req.ImageURL)
	}
	if err != nil {
		slog.Warn("alert analysis failed", "error", err)
		return errorJSON(c, fiber.StatusBadGateway, analysisFailed)
	}

	duplicate, err := h.checkDuplicate(ctx, analysis.Candidate{
		Title:       title,
		Description: description,
		Lat:         req.LocationLat,
		Lng:         req.LocationLng,
	})
	if err != nil {
		slog.Warn("duplicate check failed", "error", err)
		return errorJSON(c, fiber.StatusBadGateway, analysisFailed)
	}

	return c.JSON(dto.AnalyzeAlertResponse{
		Category:        string(result.Category),
		Severity:        string(result.Severity),
		Confidence:      result.Confidence,
		Recommendations: result.Recommendations,
		IsDuplicate:     duplicate,
	})
}

// checkDuplicate compares against recent open alerts. An unavailable comparison
// set is not a reason to fail the analysis.
func (h *AnalysisHandler) checkDuplicate(ctx context.Context, candidate analysis.Candidate) (bool, error) {
	var recent []models.Alert
	if h.recent != nil {
		alerts, err := h.recent.List(ctx, services.AlertFilter{
			Statuses: []models.Status{models.StatusPending, models.StatusVerified},
			Limit:    20,
		})
		if err != nil {
			slog.Warn("could not load recent alerts for duplicate check", "error", err)
		} else {
			recent = alerts
		}
	}
	return h.analyzer.CheckDuplicate(ctx, candidate, recent)
}
