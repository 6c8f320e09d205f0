// Package background renders the static map image an export animates over,
// together with the projector that maps geographic coordinates into that
// image's pixel space. The background is generated once per export; the
// compositor must never re-derive the projection, or the overlay would
// drift against the map.
package background

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/route2video/internal/geo"
)

// Projector maps a geographic coordinate to pixel coordinates in the
// background image it was issued with.
type Projector func(geo.Coordinate) (x, y float64)

// Generator produces a background image covering a region at the given
// pixel size, plus the projector valid for exactly that image.
type Generator interface {
	Generate(ctx context.Context, region geo.Region, width, height int) (image.Image, Projector, error)
}

// maxZoom caps tile detail; beyond this OSM servers thin out anyway.
const maxZoom = 17

// fetchConcurrency bounds parallel tile downloads.
const fetchConcurrency = 8

// TileGenerator composes web-mercator map tiles into the background.
type TileGenerator struct {
	fetcher *tileFetcher
}

// NewTileGenerator creates a generator for the named style (see Styles).
// Tiles are cached under cacheDir.
func NewTileGenerator(styleName, cacheDir string) (*TileGenerator, error) {
	style, ok := Styles[styleName]
	if !ok {
		return nil, fmt.Errorf("unknown map style %q", styleName)
	}
	return &TileGenerator{fetcher: newTileFetcher(style, cacheDir)}, nil
}

// Generate picks the highest zoom at which the region fits into
// width x height, fetches the covering tiles concurrently and stitches
// them into one image. The returned projector is anchored to the image's
// top-left corner.
func (g *TileGenerator) Generate(ctx context.Context, region geo.Region, width, height int) (image.Image, Projector, error) {
	zoom := fitZoom(region, width, height)

	// World-pixel rect centered on the region.
	cx, cy := mercator(region.Center(), zoom)
	cx *= tileSize
	cy *= tileSize
	originX := cx - float64(width)/2
	originY := cy - float64(height)/2

	txMin := int(math.Floor(originX / tileSize))
	tyMin := int(math.Floor(originY / tileSize))
	txMax := int(math.Floor((originX + float64(width)) / tileSize))
	tyMax := int(math.Floor((originY + float64(height)) / tileSize))

	type placed struct {
		img  image.Image
		x, y int
	}
	var mu sync.Mutex
	var tiles []placed

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for tx := txMin; tx <= txMax; tx++ {
		for ty := tyMin; ty <= tyMax; ty++ {
			tx, ty := tx, ty
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				img, err := g.fetcher.Fetch(zoom, tx, ty)
				if err != nil {
					return err
				}
				mu.Lock()
				tiles = append(tiles, placed{
					img: img,
					x:   tx*tileSize - int(originX),
					y:   ty*tileSize - int(originY),
				})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, t := range tiles {
		b := t.img.Bounds()
		draw.Draw(canvas, image.Rect(t.x, t.y, t.x+b.Dx(), t.y+b.Dy()), t.img, b.Min, draw.Src)
	}

	project := func(c geo.Coordinate) (float64, float64) {
		wx, wy := mercator(c, zoom)
		return wx*tileSize - originX, wy*tileSize - originY
	}
	return canvas, project, nil
}

// fitZoom returns the highest zoom level at which the region's pixel span
// still fits into width x height.
func fitZoom(region geo.Region, width, height int) int {
	for zoom := maxZoom; zoom > 1; zoom-- {
		x1, y1 := mercator(geo.Coordinate{Lat: region.MaxLat, Lon: region.MinLon}, zoom)
		x2, y2 := mercator(geo.Coordinate{Lat: region.MinLat, Lon: region.MaxLon}, zoom)
		spanX := (x2 - x1) * tileSize
		spanY := (y2 - y1) * tileSize
		if spanX <= float64(width) && spanY <= float64(height) {
			return zoom
		}
	}
	return 1
}

// mercator converts a coordinate to web-mercator tile units at a zoom level.
func mercator(c geo.Coordinate, zoom int) (x, y float64) {
	latRad := c.Lat * math.Pi / 180
	n := math.Pow(2, float64(zoom))
	x = (c.Lon + 180) / 360 * n
	y = (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return x, y
}

// SolidGenerator renders a flat single-color background with an
// equirectangular projection. Useful offline and in tests.
type SolidGenerator struct {
	Color color.RGBA
}

// Generate fills width x height with the generator's color and returns a
// projector that letterboxes the region into the image.
func (g *SolidGenerator) Generate(_ context.Context, region geo.Region, width, height int) (image.Image, Projector, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := g.Color
	if fill == (color.RGBA{}) {
		fill = color.RGBA{R: 0x2b, G: 0x33, B: 0x3d, A: 0xff}
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	latSpan := region.MaxLat - region.MinLat
	lonSpan := region.MaxLon - region.MinLon
	if latSpan <= 0 {
		latSpan = 1e-6
	}
	if lonSpan <= 0 {
		lonSpan = 1e-6
	}
	scale := math.Min(float64(width)/lonSpan, float64(height)/latSpan)
	offX := (float64(width) - lonSpan*scale) / 2
	offY := (float64(height) - latSpan*scale) / 2

	project := func(c geo.Coordinate) (float64, float64) {
		x := offX + (c.Lon-region.MinLon)*scale
		y := offY + (region.MaxLat-c.Lat)*scale
		return x, y
	}
	return canvas, project, nil
}
