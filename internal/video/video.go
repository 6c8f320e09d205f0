// Package video streams composed frames into a video file. The primary
// sink pipes raw RGBA into an ffmpeg child process; a pure-Go MJPEG sink
// covers machines without ffmpeg.
package video

import (
	"errors"
	"fmt"
	"image"
	"os"
)

// Sentinel errors callers match with errors.Is.
var (
	// ErrBackpressureTimeout: the encoder did not accept a frame within
	// pushTimeout. The export must treat this as fatal, not retry.
	ErrBackpressureTimeout = errors.New("encoder backpressure timeout")

	// ErrCancelled: the sink was cancelled; no further frames are accepted
	// and finalization is refused.
	ErrCancelled = errors.New("encoding cancelled")
)

// FrameRate is the fixed output frame rate. Presentation time of frame i
// is i/FrameRate seconds, which the sinks guarantee by requiring frames
// in contiguous index order.
const FrameRate = 24

// Sink receives composed frames in order and produces the output file.
//
// The contract: Open once, then Push frames with contiguous indices
// starting at zero, then exactly one of Finish or Cancel. Cancel may also
// race Push from another goroutine; after it, Push and Finish fail with
// ErrCancelled. Finish returns the final output path.
type Sink interface {
	Open(path string, width, height int) error
	Push(frame *image.RGBA, index int) error
	Finish() (string, error)
	Cancel()
}

// PTS returns the presentation timestamp in seconds for a frame index.
func PTS(index int) float64 {
	return float64(index) / FrameRate
}

// removeStale deletes a leftover output file from a previous run so a
// failed export can never be mistaken for a fresh one.
func removeStale(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale output %s: %w", path, err)
	}
	return nil
}

// checkIndex enforces the contiguous ordering that makes pts=index/fps
// hold. got is the index the caller pushed, want the next expected one.
func checkIndex(got, want int) error {
	if got != want {
		return fmt.Errorf("frame index %d out of order, expected %d", got, want)
	}
	return nil
}
