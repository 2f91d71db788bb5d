package enrollment

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"keytrace-go/internal/metrics"
	"keytrace-go/internal/models"
)

// BuildTemplate aggregates a full enrollment corpus into a persistable
// template. A positive minTotal re-enforces the global minimum, so direct
// API enrollments (without the wizard) get the same guarantee; wizard
// sessions pass 0 because their state machine already gated the corpus.
func BuildTemplate(userID string, events []models.KeystrokeEvent, minTotal int) (*models.EnrollmentTemplate, error) {
	if len(events) < minTotal {
		return nil, fmt.Errorf("%w: got %d keystrokes, need %d", ErrInsufficientData, len(events), minTotal)
	}

	features := metrics.Extract(events)

	digraphs, err := json.Marshal(features.Digraphs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode digraph map: %w", err)
	}

	return &models.EnrollmentTemplate{
		UserID:          userID,
		ModelID:         uuid.NewString(),
		TotalKeystrokes: len(events),
		Features:        pq.Float64Array(features.Vector()),
		Digraphs:        digraphs,
	}, nil
}
