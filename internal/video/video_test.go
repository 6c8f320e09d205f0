package video

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPTS(t *testing.T) {
	tests := []struct {
		index int
		want  float64
	}{
		{0, 0},
		{24, 1.0},
		{12, 0.5},
		{287, 287.0 / 24.0},
	}

	for _, tt := range tests {
		if got := PTS(tt.index); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("PTS(%d) = %f, want %f", tt.index, got, tt.want)
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	s := NewFFmpegSink("/usr/bin/ffmpeg", "libx264")
	args := s.buildArgs("/tmp/out.mp4", 1280, 720)

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-f rawvideo",
		"-pixel_format rgba",
		"-video_size 1280x720",
		"-framerate 24",
		"-c:v libx264",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("Args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("Output path must be the last argument, got %q", args[len(args)-1])
	}
}

func TestFFmpegArgsPerEncoder(t *testing.T) {
	vt := strings.Join(NewFFmpegSink("ffmpeg", "h264_videotoolbox").buildArgs("o.mp4", 64, 64), " ")
	if !strings.Contains(vt, "-b:v") {
		t.Error("videotoolbox should be rate-controlled by bitrate")
	}

	nv := strings.Join(NewFFmpegSink("ffmpeg", "h264_nvenc").buildArgs("o.mp4", 64, 64), " ")
	if !strings.Contains(nv, "-cq") {
		t.Error("nvenc should be rate-controlled by -cq")
	}
}

func frame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestMJPEGRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	s := NewMJPEGSink(0)

	if err := s.Open(path, 64, 48); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	f := frame(64, 48)
	for i := 0; i < 10; i++ {
		if err := s.Push(f, i); err != nil {
			t.Fatalf("Push(%d) failed: %v", i, err)
		}
	}

	got, err := s.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if got != path {
		t.Errorf("Finish returned %q, want %q", got, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Output file is empty")
	}
}

func TestMJPEGIndexOrder(t *testing.T) {
	s := NewMJPEGSink(0)
	if err := s.Open(filepath.Join(t.TempDir(), "out.avi"), 32, 32); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Cancel()

	f := frame(32, 32)
	if err := s.Push(f, 0); err != nil {
		t.Fatalf("Push(0) failed: %v", err)
	}
	if err := s.Push(f, 2); err == nil {
		t.Error("Expected error for a skipped frame index")
	}
}

func TestMJPEGCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	s := NewMJPEGSink(0)
	if err := s.Open(path, 32, 32); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	f := frame(32, 32)
	if err := s.Push(f, 0); err != nil {
		t.Fatalf("Push(0) failed: %v", err)
	}

	s.Cancel()
	s.Cancel() // idempotent

	if err := s.Push(f, 1); !errors.Is(err, ErrCancelled) {
		t.Errorf("Push after cancel: got %v, want ErrCancelled", err)
	}
	if _, err := s.Finish(); !errors.Is(err, ErrCancelled) {
		t.Errorf("Finish after cancel: got %v, want ErrCancelled", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Cancel should remove the partial output file")
	}
}

func TestMJPEGReuseAfterCancel(t *testing.T) {
	dir := t.TempDir()
	s := NewMJPEGSink(0)
	f := frame(32, 32)

	if err := s.Open(filepath.Join(dir, "first.avi"), 32, 32); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Push(f, 0); err != nil {
		t.Fatalf("Push(0) failed: %v", err)
	}
	s.Cancel()

	// A cancelled sink must accept a fresh run after re-Open.
	path := filepath.Join(dir, "second.avi")
	if err := s.Open(path, 32, 32); err != nil {
		t.Fatalf("Re-open failed: %v", err)
	}
	if err := s.Push(f, 0); err != nil {
		t.Fatalf("Push(0) after re-open failed: %v", err)
	}
	if _, err := s.Finish(); err != nil {
		t.Fatalf("Finish after re-open failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Second run produced no output: %v", err)
	}

	// Cancel still works on the new run.
	if err := s.Open(filepath.Join(dir, "third.avi"), 32, 32); err != nil {
		t.Fatalf("Third open failed: %v", err)
	}
	s.Cancel()
	if err := s.Push(f, 0); !errors.Is(err, ErrCancelled) {
		t.Errorf("Push after second cancel: got %v, want ErrCancelled", err)
	}
}

func TestMJPEGReuseAfterFinish(t *testing.T) {
	dir := t.TempDir()
	s := NewMJPEGSink(0)
	f := frame(32, 32)

	if err := s.Open(filepath.Join(dir, "first.avi"), 32, 32); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Push(f, i); err != nil {
			t.Fatalf("Push(%d) failed: %v", i, err)
		}
	}
	if _, err := s.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	// The frame index restarts from zero on the next run.
	if err := s.Open(filepath.Join(dir, "second.avi"), 32, 32); err != nil {
		t.Fatalf("Re-open failed: %v", err)
	}
	if err := s.Push(f, 0); err != nil {
		t.Fatalf("Push(0) after finished run failed: %v", err)
	}
	if _, err := s.Finish(); err != nil {
		t.Fatalf("Finish after re-open failed: %v", err)
	}
}

func TestFFmpegSinkResetBetweenRuns(t *testing.T) {
	s := NewFFmpegSink("ffmpeg", "libx264")

	// Leave the state a finished-then-cancelled run would leave.
	s.next = 42
	s.werr = errors.New("stale")
	s.cancelled.Store(true)
	s.Cancel()

	s.resetRun()

	if s.next != 0 {
		t.Errorf("next = %d after reset, want 0", s.next)
	}
	if s.werr != nil {
		t.Errorf("werr = %v after reset, want nil", s.werr)
	}
	if s.cancelled.Load() {
		t.Error("Sink still cancelled after reset")
	}
	ran := false
	s.cancel.Do(func() { ran = true })
	if !ran {
		t.Error("Cancel guard was not rearmed; a second run could not be cancelled")
	}
}

func TestRemoveStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.mp4")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := removeStale(path); err != nil {
		t.Fatalf("removeStale failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Stale file still present")
	}

	// Missing file is not an error.
	if err := removeStale(filepath.Join(dir, "never-existed.mp4")); err != nil {
		t.Errorf("removeStale on missing file: %v", err)
	}
}
