package recorder

import (
	"time"

	"LevelSentinel/internal/model"
)

// RunSummary is one stored analysis run with its nearest levels.
type RunSummary struct {
	ID                string
	Timestamp         time.Time
	Symbol            string
	Interval          string
	Bars              int
	CurrentPrice      float64
	SupportCount      int
	ResistanceCount   int
	NearestSupport    float64 // 0 when none below price
	NearestResistance float64 // 0 when none above price
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAnalysis(a *model.Analysis) error
	RecentRuns(symbol string, limit int) ([]RunSummary, error)
	Close() error
}
