package engine

import "errors"

// Failure taxonomy for an export run. Status.Err always wraps exactly one
// of these, so callers can switch on errors.Is without parsing messages.
var (
	// ErrInvalidRoute: fewer than two resolved waypoints, or the path
	// could not be built from them.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrBackgroundTimeout: the map background did not arrive within
	// backgroundTimeout (slow tile server, offline machine).
	ErrBackgroundTimeout = errors.New("background generation timed out")

	// ErrEncoderSetup: the video sink could not be opened.
	ErrEncoderSetup = errors.New("encoder setup failed")

	// ErrEncoderBackpressure: the encoder stopped accepting frames.
	ErrEncoderBackpressure = errors.New("encoder backpressure timeout")

	// ErrFrameComposition: a frame failed to render.
	ErrFrameComposition = errors.New("frame composition failed")

	// ErrCancelled: the export was cancelled by the caller.
	ErrCancelled = errors.New("export cancelled")

	// ErrFinalize: all frames were delivered but the container could not
	// be finalized.
	ErrFinalize = errors.New("finalization failed")
)
