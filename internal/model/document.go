package model

import (
	"time"

	"github.com/google/uuid"
)

// Metadata holds the document information dictionary fields exposed
// over the API. Nil pointers mean "leave unchanged" on write.
type Metadata struct {
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	Subject  *string `json:"subject,omitempty"`
	Keywords *string `json:"keywords,omitempty"`
	Creator  *string `json:"creator,omitempty"`
}

// Stats describes input/output byte sizes of a transformation.
type Stats struct {
	InputBytes  int64 `json:"input_bytes"`
	OutputBytes int64 `json:"output_bytes"`
}

// Ratio returns output size as a fraction of input size.
func (s Stats) Ratio() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return float64(s.OutputBytes) / float64(s.InputBytes)
}

// Event represents a completed PDF operation that will be sent to the queue.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Operation   string    `json:"operation"`
	Filename    string    `json:"filename"`
	InputBytes  int64     `json:"input_bytes"`
	OutputBytes int64     `json:"output_bytes"`
	Duration    int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
