// Package engine orchestrates a route export end to end: path building,
// background generation, per-frame sampling and composition, and delivery
// into the video sink. One Exporter runs one export at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/ivlev/route2video/internal/background"
	"github.com/ivlev/route2video/internal/config"
	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/path"
	"github.com/ivlev/route2video/internal/playback"
	"github.com/ivlev/route2video/internal/render"
	"github.com/ivlev/route2video/internal/route"
	"github.com/ivlev/route2video/internal/system"
	"github.com/ivlev/route2video/internal/video"
)

// backgroundTimeout caps how long an export waits for the map background.
const backgroundTimeout = 10 * time.Second

// progressStride: a progress update is published every Nth frame (and on
// the final frame) to keep channel traffic negligible.
const progressStride = 10

// regionPadding widens the route's bounding box so the path never touches
// the background edge.
const regionPadding = 0.2

// backgroundOversample renders the background at a multiple of the frame
// size so the camera can pull back without running out of map.
const backgroundOversample = 2

// Phase is the exporter lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRendering
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRendering:
		return "rendering"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of an export run.
type Status struct {
	Phase      Phase
	Progress   float64 // 0..1
	OutputPath string  // set when Phase is PhaseCompleted
	Err        error   // set when Phase is PhaseFailed; wraps the taxonomy
}

// Renderer composes one frame. *render.Compositor is the production
// implementation.
type Renderer interface {
	Render(p render.Params) (*image.RGBA, error)
	Size() (int, int)
}

// Exporter runs route exports. Construct with New, then Start; observe
// via Progress and Done. A second Start while one export is rendering is
// rejected; after a terminal phase the exporter may be started again.
type Exporter struct {
	cfg      config.Export
	renderer Renderer
	bg       background.Generator
	sink     video.Sink

	mu       sync.Mutex
	status   Status
	cancelFn context.CancelFunc

	progressCh chan float64
	doneCh     chan Status
}

// New validates the settings and builds an exporter.
func New(cfg config.Export, r Renderer, gen background.Generator, sink video.Sink) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil || gen == nil || sink == nil {
		return nil, fmt.Errorf("renderer, background generator and sink are all required")
	}
	return &Exporter{
		cfg:        cfg,
		renderer:   r,
		bg:         gen,
		sink:       sink,
		progressCh: make(chan float64, 1),
		doneCh:     make(chan Status, 1),
	}, nil
}

// Status returns the current snapshot.
func (e *Exporter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Progress delivers coarse progress values in [0,1]. Updates are dropped,
// not queued, when the receiver lags; the terminal Status on Done is
// authoritative.
func (e *Exporter) Progress() <-chan float64 {
	return e.progressCh
}

// Done delivers the terminal Status of the current run.
func (e *Exporter) Done() <-chan Status {
	return e.doneCh
}

// Start launches the export in a background goroutine. It returns an
// error immediately if a run is already rendering or the route is
// structurally unusable.
func (e *Exporter) Start(ctx context.Context, r *route.Route) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoute, err)
	}

	e.mu.Lock()
	if e.status.Phase == PhaseRendering {
		e.mu.Unlock()
		return fmt.Errorf("an export is already in progress")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelFn = cancel
	e.status = Status{Phase: PhaseRendering}
	e.mu.Unlock()

	go e.run(runCtx, r)
	return nil
}

// Cancel aborts the in-flight export, if any. The run fails with
// ErrCancelled; already-started frames are discarded by the sink.
func (e *Exporter) Cancel() {
	e.mu.Lock()
	cancel := e.cancelFn
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Exporter) run(ctx context.Context, r *route.Route) {
	out, err := e.export(ctx, r)

	e.mu.Lock()
	if err != nil {
		e.status = Status{Phase: PhaseFailed, Progress: e.status.Progress, Err: err}
	} else {
		e.status = Status{Phase: PhaseCompleted, Progress: 1, OutputPath: out}
	}
	final := e.status
	e.mu.Unlock()

	// Buffered; never blocks even with no listener.
	select {
	case e.doneCh <- final:
	default:
	}
}

func (e *Exporter) export(ctx context.Context, r *route.Route) (string, error) {
	coords := r.UsableCoordinates()

	polyline := path.Smooth(coords)
	if len(polyline) == 0 {
		return "", fmt.Errorf("%w: route produced no path", ErrInvalidRoute)
	}
	metrics := path.Measure(polyline)

	duration := e.cfg.DurationSeconds
	if duration == 0 {
		duration = config.AutoDuration(metrics.Total)
	}
	totalFrames := int(math.Round(duration * config.FrameRate))
	if totalFrames < 1 {
		totalFrames = 1
	}

	frameW, frameH := e.renderer.Size()
	bgW := frameW * backgroundOversample
	bgH := frameH * backgroundOversample

	bgImg, project, err := e.generateBackground(ctx, geo.Bounds(coords), bgW, bgH)
	if err != nil {
		return "", err
	}

	if err := e.sink.Open(e.cfg.OutputPath, frameW, frameH); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoderSetup, err)
	}

	waypoints := r.UsableWaypoints()
	markers := render.MarkersFor(waypoints)

	for i := 0; i < totalFrames; i++ {
		if err := ctx.Err(); err != nil {
			e.sink.Cancel()
			return "", fmt.Errorf("%w: stopped at frame %d/%d", ErrCancelled, i, totalFrames)
		}

		raw := 0.0
		if totalFrames > 1 {
			raw = float64(i) / float64(totalFrames-1)
		}
		eased := playback.Ease(raw)
		st := playback.Sample(raw, eased, polyline, metrics)
		pose := playback.Camera(st, metrics.Total, duration)

		frame, err := e.renderer.Render(render.Params{
			Background: bgImg,
			Project:    project,
			View:       e.viewFor(pose, project, frameW, frameH, bgW, bgH),
			Traveled:   st.Traveled,
			Markers:    markers,
			Vehicle:    render.VehiclePose{Coordinate: st.Coordinate, HeadingDeg: st.HeadingDeg},
			Label:      nearestLabel(waypoints, st.Coordinate, r.Name),
		})
		if err != nil {
			e.sink.Cancel()
			return "", fmt.Errorf("%w: frame %d: %v", ErrFrameComposition, i, err)
		}

		pushErr := e.sink.Push(frame, i)
		system.PutImage(frame)
		if pushErr != nil {
			e.sink.Cancel()
			return "", mapSinkError(pushErr)
		}

		if i%progressStride == 0 || i == totalFrames-1 {
			e.publishProgress(float64(i+1) / float64(totalFrames))
		}
	}

	out, err := e.sink.Finish()
	if err != nil {
		if errors.Is(err, video.ErrCancelled) {
			return "", fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFinalize, err)
	}
	return out, nil
}

func (e *Exporter) generateBackground(ctx context.Context, region geo.Region, w, h int) (image.Image, background.Projector, error) {
	bgCtx, cancel := context.WithTimeout(ctx, backgroundTimeout)
	defer cancel()

	img, project, err := e.bg.Generate(bgCtx, region.Expanded(regionPadding), w, h)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if errors.Is(err, context.DeadlineExceeded) || bgCtx.Err() != nil {
			return nil, nil, fmt.Errorf("%w after %s", ErrBackgroundTimeout, backgroundTimeout)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrBackgroundTimeout, err)
	}
	return img, project, nil
}

// nearestLabel picks the display name of the waypoint closest to the
// vehicle's position. Unnamed waypoints (GPX tracks) fall back to the
// route name so the label band never goes blank mid-run.
func nearestLabel(waypoints []route.Waypoint, at geo.Coordinate, fallback string) string {
	best := ""
	bestDist := math.MaxFloat64
	for _, w := range waypoints {
		if w.Name == "" {
			continue
		}
		if d := geo.Distance(at, w.Coordinate()); d < bestDist {
			bestDist = d
			best = w.Name
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

func mapSinkError(err error) error {
	switch {
	case errors.Is(err, video.ErrBackpressureTimeout):
		return fmt.Errorf("%w: %v", ErrEncoderBackpressure, err)
	case errors.Is(err, video.ErrCancelled):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	default:
		return fmt.Errorf("%w: %v", ErrFrameComposition, err)
	}
}

func (e *Exporter) publishProgress(p float64) {
	e.mu.Lock()
	e.status.Progress = p
	e.mu.Unlock()

	select {
	case e.progressCh <- p:
	default:
		// Drop the stale value so the latest one always fits.
		select {
		case <-e.progressCh:
		default:
		}
		select {
		case e.progressCh <- p:
		default:
		}
	}
}

// View scaling: the camera altitude maps inversely onto background zoom,
// clamped so the oversampled background always covers the frame.
const (
	viewReferenceAltitude = 1200.0
	minViewScale          = 0.5
	maxViewScale          = 2.0
)

func (e *Exporter) viewFor(pose playback.Pose, project background.Projector, frameW, frameH, bgW, bgH int) render.View {
	if e.cfg.FixedCamera {
		s := math.Min(float64(frameW)/float64(bgW), float64(frameH)/float64(bgH))
		return render.View{
			Scale:   s,
			OffsetX: (float64(frameW) - float64(bgW)*s) / 2,
			OffsetY: (float64(frameH) - float64(bgH)*s) / 2,
		}
	}

	s := viewReferenceAltitude / pose.AltitudeMeters
	if s < minViewScale {
		s = minViewScale
	}
	if s > maxViewScale {
		s = maxViewScale
	}

	cx, cy := project(pose.Center)
	return render.View{
		Scale:   s,
		OffsetX: float64(frameW)/2 - cx*s,
		OffsetY: float64(frameH)/2 - cy*s,
	}
}
