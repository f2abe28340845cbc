package models

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryRoadBlock       Category = "road_block"
	CategoryWaterDisruption Category = "water_disruption"
	CategoryPowerOutage     Category = "power_outage"
	CategoryTrafficJam      Category = "traffic_jam"
	CategoryPublicEvent     Category = "public_event"
	CategorySafetyConcern   Category = "safety_concern"
	CategoryInfrastructure  Category = "infrastructure"
	CategoryOther           Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRoadBlock,
	CategoryWaterDisruption,
	CategoryPowerOutage,
	CategoryTrafficJam,
	CategoryPublicEvent,
	CategorySafetyConcern,
	CategoryInfrastructure,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusResolved Status = "resolved"
)

// Statuses is also the fixed tab order of the personal and admin feeds.
var Statuses = []Status{StatusPending, StatusVerified, StatusRejected, StatusResolved}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Public reports whether alerts in this status are readable without ownership or a staff role.
func (s Status) Public() bool {
	return s == StatusVerified || s == StatusResolved
}

// Alert is one community report of a local disruption.
type Alert struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Category        Category   `gorm:"size:32;not null;index" json:"category"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	LocationLat     float64    `gorm:"type:decimal(10,8);not null" json:"location_lat"`
	LocationLng     float64    `gorm:"type:decimal(11,8);not null" json:"location_lng"`
	LocationAddress string     `gorm:"size:500" json:"location_address,omitempty"`
	Severity        Severity   `gorm:"size:16;not null;default:'medium';index" json:"severity"`
	Status          Status     `gorm:"size:16;not null;default:'pending';index" json:"status"`
	ImageURL        string     `gorm:"size:1000" json:"image_url,omitempty"`
	Upvotes         int        `gorm:"not null;default:0" json:"upvotes"`
	Downvotes       int        `gorm:"not null;default:0" json:"downvotes"`
	VerifiedBy      *uuid.UUID `gorm:"type:uuid" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OwnedBy reports whether userID submitted the alert. Anonymous alerts have no owner.
func (a *Alert) OwnedBy(userID uuid.UUID) bool {
	return a.UserID != nil && *a.UserID == userID
}
