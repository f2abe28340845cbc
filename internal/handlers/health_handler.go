package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nagaralert/alerthub/internal/database"
	"github.com/nagaralert/alerthub/internal/dto"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db       *gorm.DB
	realtime string
}

// NewHealthHandler reports the realtime backend name alongside database reachability.
func NewHealthHandler(db *gorm.DB, realtimeBackend string) *HealthHandler {
	return &HealthHandler{db: db, realtime: realtimeBackend}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(h.db); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Realtime:  h.realtime,
	})
}
