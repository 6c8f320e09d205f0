package background

import (
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "image/jpeg"

	"github.com/ivlev/route2video/internal/system"
)

const tileSize = 256

// Style is a named tile server template with optional request headers.
type Style struct {
	Name    string
	URL     string
	Headers map[string]string
}

// Styles maps the selectable map styles to their tile servers.
var Styles = map[string]Style{
	"default":  {Name: "default", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
	"positron": {Name: "positron", URL: "https://d.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png"},
	"cyclosm":  {Name: "cyclosm", URL: "https://c.tile-cyclosm.openstreetmap.fr/cyclosm/{z}/{x}/{y}.png"},
}

// tileFetcher downloads map tiles with an on-disk cache and a bounded
// in-memory cache sized from available system memory.
type tileFetcher struct {
	style    Style
	cacheDir string
	client   *http.Client

	mu       sync.Mutex
	memCache map[string]image.Image
	memLimit int
}

func newTileFetcher(style Style, cacheDir string) *tileFetcher {
	return &tileFetcher{
		style:    style,
		cacheDir: cacheDir,
		client:   http.DefaultClient,
		memCache: make(map[string]image.Image),
		memLimit: system.TileCacheBudget(tileSize * tileSize * 4),
	}
}

// Fetch returns the tile at z/x/y, consulting memory, then disk, then the
// tile server. Downloaded tiles are written back to the disk cache.
func (f *tileFetcher) Fetch(z, x, y int) (image.Image, error) {
	key := fmt.Sprintf("%s/%d/%d/%d", f.style.Name, z, x, y)

	f.mu.Lock()
	img, ok := f.memCache[key]
	f.mu.Unlock()
	if ok {
		return img, nil
	}

	tilePath := filepath.Join(f.cacheDir, f.style.Name, strconv.Itoa(z), strconv.Itoa(x), fmt.Sprintf("%d.png", y))

	if file, err := os.Open(tilePath); err == nil {
		img, _, err := image.Decode(file)
		file.Close()
		if err == nil {
			f.remember(key, img)
			return img, nil
		}
		// Corrupt cache entry: fall through and re-download.
	}

	img, err := f.download(z, x, y)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(tilePath), 0755); err == nil {
		if out, err := os.Create(tilePath); err == nil {
			png.Encode(out, img)
			out.Close()
		}
	}

	f.remember(key, img)
	return img, nil
}

func (f *tileFetcher) download(z, x, y int) (image.Image, error) {
	url := strings.Replace(f.style.URL, "{z}", strconv.Itoa(z), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(x), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(y), 1)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "route2video/1.0")
	for k, v := range f.style.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download tile %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile server returned %d for %s", resp.StatusCode, url)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", url, err)
	}
	return img, nil
}

func (f *tileFetcher) remember(key string, img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.memCache) >= f.memLimit {
		// Cheap eviction: drop everything. Exports walk the route once,
		// so re-fetches after a flush are rare and served from disk.
		f.memCache = make(map[string]image.Image, f.memLimit)
	}
	f.memCache[key] = img
}
