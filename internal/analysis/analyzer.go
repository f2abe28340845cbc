// Package analysis suggests a category and severity for a draft alert.
package analysis

import (
	"context"

	"github.com/nagaralert/alerthub/internal/models"
)

type Result struct {
	Category        models.Category `json:"category"`
	Severity        models.Severity `json:"severity"`
	Confidence      float64         `json:"confidence"`
	Recommendations []string        `json:"recommendations"`
}

// Candidate is the draft being checked for duplicates.
type Candidate struct {
	Title       string
	Description string
	Lat, Lng    *float64
}

// Analyzer is the pluggable analysis collaborator. Callers bound each call with ctx.
type Analyzer interface {
	AnalyzeText(ctx context.Context, title, description string) (*Result, error)
	AnalyzeImage(ctx context.Context, imageURL string) (*Result, error)
	CheckDuplicate(ctx context.Context, candidate Candidate, recent []models.Alert) (bool, error)
}

// normalize coerces model output into the closed enums and clamps confidence.
func normalize(r *Result) *Result {
	if !r.Category.Valid() {
		r.Category = models.CategoryOther
	}
	if !r.Severity.Valid() {
		r.Severity = models.SeverityMedium
	}
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	return r
}
