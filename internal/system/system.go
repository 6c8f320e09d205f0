package system

import (
	"log"
	"os/exec"
	"strings"
	"syscall"
)

// InitResourceLimits raises the open-file limit (macOS/Linux). Tile caches
// and the encoder pipe can exhaust the conservative defaults.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Failed to read file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Failed to raise file limit: %v", err)
	}
}

// FindFFmpeg locates the ffmpeg binary on PATH. The second return value is
// false when no binary is available; callers fall back to the MJPEG sink.
func FindFFmpeg() (string, bool) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", false
	}
	return path, true
}

// BestH264Encoder probes ffmpeg for a hardware H.264 encoder and falls
// back to libx264.
//
// Priority: VideoToolbox (macOS), NVENC (NVIDIA), then software.
func BestH264Encoder(ffmpegPath string) string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	out, err := exec.Command(ffmpegPath, "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}

	for _, name := range candidates {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}
