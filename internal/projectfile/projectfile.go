// Package projectfile reads and writes JSON project files. Files are
// checked against an embedded JSON Schema and every region is validated
// before anything reaches the editor.
package projectfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/store"
)

// Version is the file format version written by Encode.
const Version = 1

const schemaURL = "https://mosaicedit.local/schema/project-v1.schema.json"

//go:embed project-v1.schema.json
var schemaJSON []byte

// ErrInvalid is returned for files that fail schema or region validation.
var ErrInvalid = errors.New("invalid project file")

// File is the on-disk project representation.
type File struct {
	Version int             `json:"version"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Video   Video           `json:"video"`
	Display Display         `json:"display"`
	Regions []editor.Region `json:"regions"`
}

// Video describes the source the regions apply to.
type Video struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
}

// Display is the rendered size region coordinates are relative to.
type Display struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// FromProject converts a stored project.
func FromProject(p *store.Project) *File {
	regions := p.Regions
	if regions == nil {
		regions = []editor.Region{}
	}
	return &File{
		Version: Version,
		ID:      p.ID,
		Name:    p.Name,
		Video: Video{
			Path:     p.VideoPath,
			Duration: p.Duration,
			Width:    p.NativeWidth,
			Height:   p.NativeHeight,
		},
		Display: Display{Width: p.DisplayWidth, Height: p.DisplayHeight},
		Regions: regions,
	}
}

// Project converts the file into a project ready to save.
func (f *File) Project() *store.Project {
	return &store.Project{
		ID:            f.ID,
		Name:          f.Name,
		VideoPath:     f.Video.Path,
		Duration:      f.Video.Duration,
		NativeWidth:   f.Video.Width,
		NativeHeight:  f.Video.Height,
		DisplayWidth:  f.Display.Width,
		DisplayHeight: f.Display.Height,
		Regions:       f.Regions,
	}
}

// Encode writes f as indented JSON.
func Encode(w io.Writer, f *File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return nil
}

// Write saves f to path.
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}

// Decode reads and validates a project file.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s, err := compiled()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Read loads and validates the project file at path.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Validate checks every region against the video duration and rejects
// duplicate ids.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Regions))
	for _, r := range f.Regions {
		if err := r.Validate(f.Video.Duration); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate region id %s", ErrInvalid, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
