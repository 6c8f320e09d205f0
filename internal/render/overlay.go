package render

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// shareQR renders the share-link QR code once at compositor construction.
func shareQR(url string, size int) (image.Image, error) {
	if size < 64 {
		size = 64
	}
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build share QR code: %w", err)
	}
	return q.Image(size), nil
}
