package system

import (
	"image"
	"sync"
)

// Frame buffers are large (a 1080x1080 RGBA frame is ~4.5 MB) and one is
// produced per frame, so recycling them keeps the garbage collector out
// of the render loop. All frames of an export share one size; buffers are
// pooled per size and only zero-origin rectangles are pooled, which is
// the only shape the compositor produces.

type framePools struct {
	mu     sync.Mutex
	bySize map[image.Point]*sync.Pool
}

var frames = framePools{bySize: make(map[image.Point]*sync.Pool)}

func (f *framePools) pool(size image.Point) *sync.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.bySize[size]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		f.bySize[size] = p
	}
	return p
}

// GetImage returns an *image.RGBA of the given size, recycled when one is
// available. The contents are undefined; callers must overwrite the full
// frame (the compositor's background draw does).
func GetImage(rect image.Rectangle) *image.RGBA {
	if rect.Min != (image.Point{}) {
		// Offset rectangles are not pooled; nothing in the frame pipeline
		// produces them.
		return image.NewRGBA(rect)
	}
	return frames.pool(rect.Size()).Get().(*image.RGBA)
}

// PutImage hands a frame buffer back for reuse once its bytes have been
// delivered to the encoder. The caller must not touch the image after.
func PutImage(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	frames.pool(img.Rect.Size()).Put(img)
}
