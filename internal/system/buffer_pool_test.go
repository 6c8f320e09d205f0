package system

import (
	"image"
	"testing"
)

func TestGetImageSize(t *testing.T) {
	rect := image.Rect(0, 0, 64, 48)

	img := GetImage(rect)
	if img.Bounds() != rect {
		t.Fatalf("Got bounds %v, want %v", img.Bounds(), rect)
	}
	PutImage(img)

	// A recycled buffer keeps the right size.
	again := GetImage(rect)
	if again.Bounds() != rect {
		t.Errorf("Recycled bounds %v, want %v", again.Bounds(), rect)
	}
	PutImage(again)
}

func TestGetImageDistinctSizes(t *testing.T) {
	a := GetImage(image.Rect(0, 0, 64, 64))
	b := GetImage(image.Rect(0, 0, 32, 32))

	if a.Bounds() == b.Bounds() {
		t.Error("Different sizes must not share buffers")
	}
	PutImage(a)
	PutImage(b)
}

func TestGetImageOffsetRect(t *testing.T) {
	rect := image.Rect(10, 10, 74, 74)

	img := GetImage(rect)
	if img.Bounds() != rect {
		t.Errorf("Got bounds %v, want %v", img.Bounds(), rect)
	}
	// Must be a no-op, not a corrupted pool entry.
	PutImage(img)

	clean := GetImage(image.Rect(0, 0, 64, 64))
	if clean.Bounds().Min != (image.Point{}) {
		t.Errorf("Pool returned an offset buffer: %v", clean.Bounds())
	}
	PutImage(clean)
}

func TestPutImageNil(t *testing.T) {
	PutImage(nil) // must not panic
}
