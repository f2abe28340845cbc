package analysis

import (
	"context"

	"github.com/nagaralert/alerthub/internal/models"
)

// Stub returns fixed low-confidence defaults and never reports duplicates.
type Stub struct{}

var _ Analyzer = Stub{}

func defaultResult() *Result {
	return &Result{
		Category:   models.CategoryOther,
		Severity:   models.SeverityMedium,
		Confidence: 0.5,
		Recommendations: []string{
			"Add a clear photo of the issue",
			"Include a nearby landmark in the address",
		},
	}
}

func (Stub) AnalyzeText(ctx context.Context, _, _ string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return defaultResult(), nil
}

func (Stub) AnalyzeImage(ctx context.Context, _ string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return defaultResult(), nil
}

func (Stub) CheckDuplicate(ctx context.Context, _ Candidate, _ []models.Alert) (bool, error) {
	return false, ctx.Err()
}
