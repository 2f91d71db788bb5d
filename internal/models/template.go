package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Feature vector layout for EnrollmentTemplate.Features. The vector is stored
// as a Postgres float8[] so identification can load every template in one
// query without unpacking JSON.
const (
	FeatMeanDwell = iota
	FeatStdDwell
	FeatMeanFlight
	FeatStdFlight
	FeatTypingSpeed
	FeatRhythmVariability
	FeatureVectorLen
)

// EnrollmentTemplate is the stored per-user typing profile built from the
// enrollment exercise corpus. Owned by exactly one user; immutable once
// persisted. Re-enrollment replaces the row after an explicit confirmation.
type EnrollmentTemplate struct {
	ID              int             `gorm:"primaryKey"`
	UserID          string          `gorm:"uniqueIndex;not null"`
	ModelID         string          `gorm:"not null"`
	TotalKeystrokes int             `gorm:"not null"`
	Features        pq.Float64Array `gorm:"type:float8[]"`
	Digraphs        datatypes.JSON  // key-pair -> mean flight latency (ms)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
