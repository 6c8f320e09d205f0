package video

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// pushTimeout bounds how long Push waits for the encoder to drain.
	// A healthy ffmpeg consumes frames far faster than we compose them;
	// hitting this means the encoder is wedged and the export must die
	// rather than stall forever.
	pushTimeout = 5 * time.Second

	// queueDepth decouples composition from encoding without letting
	// frames pile up unbounded (each queued frame is a full RGBA copy).
	queueDepth = 8
)

// FFmpegSink encodes by piping raw RGBA frames into an ffmpeg child
// process. Frames are copied into an internal queue so the caller may
// recycle its buffer as soon as Push returns.
type FFmpegSink struct {
	ffmpegPath  string
	encoderName string

	path  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	queue chan []byte
	quit  chan struct{} // closed by Cancel
	done  chan struct{} // closed when the writer goroutine exits
	werr  error         // writer goroutine's error, valid after done

	next      int
	cancelled atomic.Bool
	cancel    sync.Once

	bufPool sync.Pool
}

// NewFFmpegSink creates a sink using the given ffmpeg binary and encoder
// (see system.BestH264Encoder).
func NewFFmpegSink(ffmpegPath, encoderName string) *FFmpegSink {
	return &FFmpegSink{
		ffmpegPath:  ffmpegPath,
		encoderName: encoderName,
	}
}

// Open removes any stale output at path and starts the encoder process.
// A sink may be re-opened after Finish or Cancel for a fresh run.
func (s *FFmpegSink) Open(path string, width, height int) error {
	s.resetRun()

	if err := removeStale(path); err != nil {
		return err
	}

	cmd := exec.Command(s.ffmpegPath, s.buildArgs(path, width, height)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.path = path
	s.cmd = cmd
	s.stdin = stdin
	s.queue = make(chan []byte, queueDepth)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})

	go s.writeLoop()

	return nil
}

// resetRun clears the state left behind by a previous run so the index
// check starts from zero and an old Cancel does not poison the new run.
func (s *FFmpegSink) resetRun() {
	s.next = 0
	s.werr = nil
	s.cancelled.Store(false)
	s.cancel = sync.Once{}
}

func (s *FFmpegSink) buildArgs(path string, width, height int) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", FrameRate),
		"-i", "-",
		"-c:v", s.encoderName,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}

	switch s.encoderName {
	case "h264_videotoolbox":
		args = append(args, "-b:v", "8000k")
	case "h264_nvenc":
		args = append(args, "-cq", "23")
	default: // libx264
		args = append(args, "-crf", "23", "-preset", "medium")
	}

	return append(args, path)
}

// writeLoop drains the queue into ffmpeg's stdin until the queue is
// closed (Finish) or quit fires (Cancel). It keeps consuming after a
// write error so Push never deadlocks on a full queue.
func (s *FFmpegSink) writeLoop() {
	defer close(s.done)
	for {
		select {
		case buf, ok := <-s.queue:
			if !ok {
				return
			}
			if s.werr == nil {
				if _, err := s.stdin.Write(buf); err != nil {
					s.werr = fmt.Errorf("ffmpeg pipe write failed: %w", err)
				}
			}
			s.bufPool.Put(buf) //nolint:staticcheck // slice reuse, not pointer identity
		case <-s.quit:
			return
		}
	}
}

// Push queues one frame. It blocks at most pushTimeout when the encoder
// falls behind, then fails with ErrBackpressureTimeout. Safe to call
// concurrently with Cancel.
func (s *FFmpegSink) Push(frame *image.RGBA, index int) error {
	if s.cancelled.Load() {
		return ErrCancelled
	}
	if err := checkIndex(index, s.next); err != nil {
		return err
	}

	buf := s.copyFrame(frame)

	timer := time.NewTimer(pushTimeout)
	defer timer.Stop()

	select {
	case s.queue <- buf:
		s.next++
		return nil
	case <-s.quit:
		return ErrCancelled
	case <-s.done:
		if s.werr != nil {
			return s.werr
		}
		return ErrCancelled
	case <-timer.C:
		return fmt.Errorf("frame %d not accepted within %s: %w", index, pushTimeout, ErrBackpressureTimeout)
	}
}

func (s *FFmpegSink) copyFrame(frame *image.RGBA) []byte {
	need := len(frame.Pix)
	buf, _ := s.bufPool.Get().([]byte)
	if cap(buf) < need {
		buf = make([]byte, need)
	}
	buf = buf[:need]
	copy(buf, frame.Pix)
	return buf
}

// Finish flushes the queue, closes the pipe and waits for ffmpeg to write
// the container trailer. Fails after Cancel: a cancelled export must not
// leave a playable file behind.
func (s *FFmpegSink) Finish() (string, error) {
	if s.cancelled.Load() {
		return "", fmt.Errorf("cannot finalize: %w", ErrCancelled)
	}

	close(s.queue)
	<-s.done

	if err := s.stdin.Close(); err != nil && s.werr == nil {
		s.werr = err
	}
	if err := s.cmd.Wait(); err != nil {
		return "", fmt.Errorf("ffmpeg exited with error: %w", err)
	}
	if s.werr != nil {
		return "", s.werr
	}
	if s.cancelled.Load() {
		// Cancel raced the flush; the output is not trustworthy.
		return "", fmt.Errorf("cannot finalize: %w", ErrCancelled)
	}
	return s.path, nil
}

// Cancel aborts the encode and removes the partial output. Idempotent and
// safe to call from any goroutine, including concurrently with Push.
func (s *FFmpegSink) Cancel() {
	s.cancel.Do(func() {
		s.cancelled.Store(true)
		if s.quit != nil {
			close(s.quit)
			<-s.done
		}
		if s.stdin != nil {
			s.stdin.Close()
		}
		if s.cmd != nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
			go s.cmd.Wait()
		}
		if s.path != "" {
			removeStale(s.path)
		}
	})
}
