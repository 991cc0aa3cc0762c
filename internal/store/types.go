// Package store provides SQLite-based project storage for mosaicedit.
package store

import (
	"errors"
	"time"

	"mosaicedit/internal/editor"
)

var (
	// ErrProjectNotFound is returned when no project has the given id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrRegionNotFound is returned when a project has no region with the given id.
	ErrRegionNotFound = errors.New("region not found")
)

// Project is a saved editing session: the video it applies to, the display
// size its region coordinates are relative to, and its regions in z-order.
type Project struct {
	ID        string
	Name      string
	VideoPath string
	Duration  float64

	NativeWidth   int
	NativeHeight  int
	DisplayWidth  float64
	DisplayHeight float64

	CreatedAt time.Time
	UpdatedAt time.Time

	Regions []editor.Region

	// Skipped lists regions LoadProject dropped because they failed
	// validation. It is never persisted.
	Skipped []string
}

// ProjectSummary is a project listing entry.
type ProjectSummary struct {
	ID          string
	Name        string
	VideoPath   string
	Duration    float64
	RegionCount int
	UpdatedAt   time.Time
}

// FromState builds a project from an editor snapshot.
func FromState(id, name, videoPath string, st editor.EditorState) *Project {
	return &Project{
		ID:            id,
		Name:          name,
		VideoPath:     videoPath,
		Duration:      st.Duration,
		NativeWidth:   st.NativeWidth,
		NativeHeight:  st.NativeHeight,
		DisplayWidth:  st.DisplayWidth,
		DisplayHeight: st.DisplayHeight,
		Regions:       st.Regions,
	}
}
