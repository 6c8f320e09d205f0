package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"

	"github.com/icza/mjpeg"
)

// MJPEGSink writes a Motion-JPEG AVI without external tools. Used when no
// ffmpeg binary is found; the files are larger and the caller should name
// them .avi.
type MJPEGSink struct {
	writer  mjpeg.AviWriter
	path    string
	quality int

	next      int
	cancelled atomic.Bool
	cancel    sync.Once
	mu        sync.Mutex
}

// NewMJPEGSink creates the fallback sink. quality is the JPEG quality
// (1-100); zero selects a sensible default.
func NewMJPEGSink(quality int) *MJPEGSink {
	if quality <= 0 {
		quality = 85
	}
	return &MJPEGSink{quality: quality}
}

// Open removes any stale output and creates the AVI container. A sink may
// be re-opened after Finish or Cancel for a fresh run.
func (s *MJPEGSink) Open(path string, width, height int) error {
	s.mu.Lock()
	s.next = 0
	s.cancelled.Store(false)
	s.cancel = sync.Once{}
	s.mu.Unlock()

	if err := removeStale(path); err != nil {
		return err
	}
	w, err := mjpeg.New(path, int32(width), int32(height), FrameRate)
	if err != nil {
		return fmt.Errorf("failed to create MJPEG writer: %w", err)
	}
	s.writer = w
	s.path = path
	return nil
}

// Push encodes the frame to JPEG and appends it. Encoding is synchronous,
// so there is no backpressure window to time out on.
func (s *MJPEGSink) Push(frame *image.RGBA, index int) error {
	if s.cancelled.Load() {
		return ErrCancelled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIndex(index, s.next); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", index, err)
	}
	if s.cancelled.Load() {
		return ErrCancelled
	}
	if err := s.writer.AddFrame(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append frame %d: %w", index, err)
	}
	s.next++
	return nil
}

// Finish closes the container. Fails after Cancel.
func (s *MJPEGSink) Finish() (string, error) {
	if s.cancelled.Load() {
		return "", fmt.Errorf("cannot finalize: %w", ErrCancelled)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize AVI: %w", err)
	}
	if s.cancelled.Load() {
		return "", fmt.Errorf("cannot finalize: %w", ErrCancelled)
	}
	return s.path, nil
}

// Cancel aborts the write and removes the partial file. Idempotent.
func (s *MJPEGSink) Cancel() {
	s.cancel.Do(func() {
		s.cancelled.Store(true)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.writer != nil {
			s.writer.Close()
		}
		if s.path != "" {
			removeStale(s.path)
		}
	})
}
