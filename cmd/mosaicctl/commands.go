package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/image/draw"

	"mosaicedit/internal/compositor"
	"mosaicedit/internal/editor"
	"mosaicedit/internal/frame"
	"mosaicedit/internal/metrics"
	"mosaicedit/internal/playback"
	"mosaicedit/internal/projectfile"
	"mosaicedit/internal/store"
	"mosaicedit/internal/video"
)

func (c *cli) projects() error {
	list, err := c.db.ListProjects()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No projects saved.")
		return nil
	}

	fmt.Fprintf(c.out, "%-36s  %-20s  %8s  %7s  %s\n", "ID", "Name", "Duration", "Regions", "Updated")
	fmt.Fprintln(c.out, strings.Repeat("-", 96))
	for _, p := range list {
		fmt.Fprintf(c.out, "%-36s  %-20s  %7.1fs  %7d  %s\n",
			p.ID, truncate(p.Name, 20), p.Duration, p.RegionCount, p.UpdatedAt.Format(time.DateTime))
	}
	return nil
}

func (c *cli) newProject(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	src, err := video.Open(abs, c.videoOptions())
	if err != nil {
		return err
	}
	defer src.Close()

	w, h := src.NativeSize()
	p := &store.Project{
		Name:          name,
		VideoPath:     abs,
		Duration:      src.Duration(),
		NativeWidth:   w,
		NativeHeight:  h,
		DisplayWidth:  float64(w),
		DisplayHeight: float64(h),
	}
	if err := c.db.SaveProject(p); err != nil {
		return err
	}
	c.log.Info("project created", "project_id", p.ID, "video", abs)
	fmt.Fprintf(c.out, "Created project %s (%dx%d, %.1fs)\n", p.ID, w, h, p.Duration)
	return nil
}

func (c *cli) show(id string) error {
	p, err := c.db.LoadProject(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Project:  %s\n", p.Name)
	fmt.Fprintf(c.out, "ID:       %s\n", p.ID)
	fmt.Fprintf(c.out, "Video:    %s\n", p.VideoPath)
	fmt.Fprintf(c.out, "Native:   %dx%d\n", p.NativeWidth, p.NativeHeight)
	fmt.Fprintf(c.out, "Display:  %gx%g\n", p.DisplayWidth, p.DisplayHeight)
	fmt.Fprintf(c.out, "Duration: %.2fs\n", p.Duration)
	if len(p.Skipped) > 0 {
		fmt.Fprintf(c.out, "Skipped:  %s (invalid)\n", strings.Join(p.Skipped, ", "))
	}
	fmt.Fprintln(c.out)

	if len(p.Regions) == 0 {
		fmt.Fprintln(c.out, "No regions.")
		return nil
	}
	fmt.Fprintf(c.out, "%-4s %-36s %8s %8s %8s %8s %8s %8s\n", "#", "Region", "X", "Y", "W", "H", "Start", "End")
	for i, r := range p.Regions {
		fmt.Fprintf(c.out, "%-4d %-36s %8.1f %8.1f %8.1f %8.1f %8.2f %8.2f\n",
			i, r.ID, r.X, r.Y, r.Width, r.Height, r.Start, r.End)
	}
	return nil
}

func (c *cli) add(projectID string, args []string) error {
	vals, err := parseFloats(args)
	if err != nil {
		return err
	}
	p, err := c.db.LoadProject(projectID)
	if err != nil {
		return err
	}

	r := editor.Region{
		ID:     uuid.NewString(),
		Rect:   editor.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]},
		Window: editor.Window{Start: vals[4], End: vals[5]},
	}
	if err := r.Validate(p.Duration); err != nil {
		return err
	}
	r, err = c.db.AppendRegion(p.ID, r)
	if err != nil {
		return err
	}
	c.log.Info("region added", "project_id", p.ID, "region_id", r.ID)
	fmt.Fprintf(c.out, "Added region %s\n", r.ID)
	return nil
}

func (c *cli) deleteRegion(projectID, regionID string) error {
	if err := c.db.DeleteRegion(projectID, regionID); err != nil {
		return err
	}
	c.log.Info("region deleted", "project_id", projectID, "region_id", regionID)
	fmt.Fprintf(c.out, "Deleted region %s\n", regionID)
	return nil
}

func (c *cli) remove(projectID string) error {
	if err := c.db.DeleteProject(projectID); err != nil {
		return err
	}
	c.log.Info("project deleted", "project_id", projectID)
	fmt.Fprintf(c.out, "Deleted project %s\n", projectID)
	return nil
}

// session is a headless editor: a store loaded from a project, the video
// source and a compositor sharing one scheduler.
type session struct {
	project *store.Project
	src     video.Source
	es      *editor.Store
	comp    *compositor.Compositor
	reg     *prometheus.Registry
	interp  draw.Interpolator
}

func (c *cli) openSession(projectID, videoPath string, sched frame.Scheduler) (*session, error) {
	p, err := c.db.LoadProject(projectID)
	if err != nil {
		return nil, err
	}
	if videoPath == "" {
		videoPath = p.VideoPath
	}
	src, err := video.Open(videoPath, c.videoOptions())
	if err != nil {
		return nil, err
	}

	es := editor.NewStore()
	es.SetDuration(src.Duration())
	es.SetNativeSize(src.NativeSize())
	es.SetDisplaySize(p.DisplayWidth, p.DisplayHeight)
	es.Load(p.Regions)

	reg := prometheus.NewRegistry()
	interp := video.Interpolators[c.cfg.Render.Resample]
	comp := compositor.New(es, sched, nil, compositor.Config{
		BlurIntensity: c.cfg.Render.BlurIntensity,
		Interpolator:  interp,
		Logger:        c.log.Logger,
		Metrics:       metrics.NewCompositor(reg),
	})
	return &session{project: p, src: src, es: es, comp: comp, reg: reg, interp: interp}, nil
}

// flatten returns the current source frame with overlay drawn over it.
func (s *session) flatten(overlay *image.RGBA) (*image.RGBA, error) {
	img, err := s.src.Frame()
	if err != nil {
		return nil, err
	}
	return compositor.Flatten(img, overlay, s.interp), nil
}

// render composites the regions active at the given time over the frame at
// that time and saves the flattened picture.
func (c *cli) render(projectID, at, output, videoPath string) error {
	t, err := parseTime(at)
	if err != nil {
		return err
	}
	s, err := c.openSession(projectID, videoPath, frame.NewManual(time.Now()))
	if err != nil {
		return err
	}
	defer s.src.Close()

	s.src.Seek(t)
	s.es.SetCurrentTime(s.src.CurrentTime())
	s.comp.SetSource(s.src)
	s.comp.Stop()

	flat, err := s.flatten(s.comp.Output())
	if err != nil {
		return err
	}
	if err := imaging.Save(flat, output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	active := s.es.ActiveRegions(s.src.CurrentTime())
	fmt.Fprintf(c.out, "Rendered %d active region(s) at %.2fs to %s\n", len(active), s.src.CurrentTime(), output)
	fmt.Fprintln(c.out)
	return metrics.WriteSummary(c.out, s.reg)
}

// frames plays [from, to] in real time at the configured frame rate and
// saves every composited frame. Playback stops at the end of the range or
// of the video.
func (c *cli) frames(projectID, from, to, dir, videoPath string) error {
	start, err := parseTime(from)
	if err != nil {
		return err
	}
	end, err := parseTime(to)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("%w: end %g is not after start %g", errUsage, end, start)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	ticker := frame.NewTicker(c.cfg.Render.FrameRate)
	s, err := c.openSession(projectID, videoPath, ticker)
	if err != nil {
		return err
	}
	defer s.src.Close()

	ctrl := playback.New(s.es, ticker, c.log.Logger)
	ctrl.SetSource(s.src)
	ctrl.Seek(start)

	var (
		mu       sync.Mutex
		n        int
		saveErr  error
		finished = make(chan struct{})
		once     sync.Once
	)
	s.comp.OnFrame(func(out *image.RGBA) {
		mu.Lock()
		defer mu.Unlock()
		t := s.src.CurrentTime()
		if saveErr == nil && t <= end {
			flat, err := s.flatten(out)
			if err == nil {
				err = imaging.Save(flat, filepath.Join(dir, fmt.Sprintf("frame-%05d.png", n)))
			}
			if err != nil {
				saveErr = err
			}
			n++
		}
		if saveErr != nil || t >= end || !s.src.Playing() {
			once.Do(func() { close(finished) })
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration((end-start+5)*float64(time.Second)))
	defer cancel()
	ticker.Start(ctx)
	defer ticker.Stop()

	ctrl.Play()
	s.comp.SetSource(s.src)

	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("frames: %w", ctx.Err())
	}
	s.comp.Stop()
	ctrl.Pause()
	ctrl.Close()

	mu.Lock()
	defer mu.Unlock()
	if saveErr != nil {
		return fmt.Errorf("save frame: %w", saveErr)
	}
	fmt.Fprintf(c.out, "Saved %d frame(s) from %.2fs to %.2fs in %s\n", n, start, end, dir)
	fmt.Fprintln(c.out)
	return metrics.WriteSummary(c.out, s.reg)
}

func (c *cli) export(projectID, output string) error {
	p, err := c.db.LoadProject(projectID)
	if err != nil {
		return err
	}
	if output == "" {
		output = p.ID + ".mosaic.json"
	}
	if err := projectfile.Write(output, projectfile.FromProject(p)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Project exported to: %s\n", output)
	fmt.Fprintf(c.out, "  Regions: %d\n", len(p.Regions))
	return nil
}

func (c *cli) importFile(path string) error {
	f, err := projectfile.Read(path)
	if err != nil {
		return err
	}
	p := f.Project()
	if err := c.db.SaveProject(p); err != nil {
		return err
	}
	c.log.Info("project imported", "project_id", p.ID, "file", path)
	fmt.Fprintf(c.out, "Imported project %s (%d regions)\n", p.ID, len(p.Regions))
	return nil
}

func (c *cli) status() error {
	fmt.Fprintln(c.out, "=== mosaicedit Status ===")
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Database:")
	fmt.Fprintf(c.out, "  Path: %s\n", c.cfg.Storage.Path)
	if info, err := os.Stat(c.cfg.Storage.Path); err == nil {
		fmt.Fprintf(c.out, "  Size: %s\n", formatBytes(info.Size()))
	}
	if err := store.ValidateSchema(c.db.DB()); err != nil {
		fmt.Fprintf(c.out, "  Schema: INVALID (%v)\n", err)
	} else {
		fmt.Fprintln(c.out, "  Schema: OK")
	}

	ms, err := store.GetMigrationStatus(c.db.DB())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  Migrations: %d of %d applied\n", ms.CurrentVersion, ms.LatestVersion)
	for _, m := range ms.Applied {
		fmt.Fprintf(c.out, "    v%d  %s  %s\n", m.Version, m.AppliedAt.Format(time.DateTime), m.Description)
	}
	for _, m := range ms.Pending {
		fmt.Fprintf(c.out, "    v%d  PENDING  %s\n", m.Version, m.Description)
	}

	list, err := c.db.ListProjects()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  Projects: %d\n", len(list))
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Render:")
	fmt.Fprintf(c.out, "  Blur intensity: %g\n", c.cfg.Render.BlurIntensity)
	fmt.Fprintf(c.out, "  Resample: %s\n", c.cfg.Render.Resample)
	return nil
}

func (c *cli) videoOptions() video.Options {
	return video.Options{
		FPS:           c.cfg.Video.FPS,
		CacheFrames:   c.cfg.Video.CacheFrames,
		StillDuration: c.cfg.Video.StillDurationSec,
	}
}

// Helper functions

func parseTime(s string) (float64, error) {
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < 0 {
		return 0, fmt.Errorf("%w: bad time %q", errUsage, s)
	}
	return t, nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", errUsage, a)
		}
		out[i] = v
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
