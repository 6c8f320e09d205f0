package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ivlev/route2video/internal/background"
	"github.com/ivlev/route2video/internal/config"
	"github.com/ivlev/route2video/internal/engine"
	"github.com/ivlev/route2video/internal/geocode"
	"github.com/ivlev/route2video/internal/render"
	"github.com/ivlev/route2video/internal/route"
	"github.com/ivlev/route2video/internal/store"
	"github.com/ivlev/route2video/internal/system"
	"github.com/ivlev/route2video/internal/video"
)

func main() {
	system.InitResourceLimits()

	routePtr := flag.String("route", "", "Path to a route file (.yaml or .gpx)")
	namePtr := flag.String("name", "", "Name of a stored route to load (requires -db)")
	outputPtr := flag.String("output", "", "Output video path (auto-generated in output/ when empty)")
	presetPtr := flag.String("preset", "horizontal", "Output format: square (1:1), vertical (9:16), horizontal (16:9)")
	durationPtr := flag.Float64("duration", 0, "Video duration in seconds, 3-60 (0 = derive from route length)")
	vehiclePtr := flag.String("vehicle", "car", "Vehicle glyph: car, plane, train, ship, bike, walk")
	vehicleScalePtr := flag.Float64("vehicle-scale", 1.0, "Vehicle glyph scale, 0.2-1.5")
	stylePtr := flag.String("style", "default", "Map style: default, positron, cyclosm, or none for a flat background")
	sharePtr := flag.String("share-url", "", "URL to embed as a QR code overlay")
	dbPtr := flag.String("db", "", "Path to the route database (enables -name, -save, -list)")
	savePtr := flag.Bool("save", false, "Save the loaded route to the database after geocoding")
	listPtr := flag.Bool("list", false, "List stored routes and exit")
	geocodePtr := flag.Bool("geocode", true, "Resolve waypoints that have no coordinates via Nominatim")
	fixedPtr := flag.Bool("fixed-camera", false, "Static full-route framing instead of the follow camera")
	cacheDirPtr := flag.String("tile-cache", "", "Tile cache directory (default: ~/.cache/route2video/tiles)")

	flag.Parse()

	var db *store.Store
	if *dbPtr != "" {
		var err error
		db, err = store.Open(*dbPtr)
		if err != nil {
			log.Fatalf("[-] Failed to open route database: %v", err)
		}
		defer db.Close()
	}

	if *listPtr {
		if db == nil {
			log.Fatalf("[-] -list requires -db")
		}
		names, err := db.List()
		if err != nil {
			log.Fatalf("[-] Failed to list routes: %v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	r := loadRoute(*routePtr, *namePtr, db)

	if *geocodePtr {
		resolveWaypoints(r)
	}

	if err := r.Validate(); err != nil {
		log.Fatalf("[-] Route is not usable: %v", err)
	}

	if *savePtr {
		if db == nil {
			log.Fatalf("[-] -save requires -db")
		}
		if err := db.Save(r); err != nil {
			log.Fatalf("[-] Failed to save route: %v", err)
		}
		fmt.Printf("[*] Route %q saved\n", r.Name)
	}

	cfg := config.Default()
	cfg.Aspect = config.AspectRatio(*presetPtr)
	cfg.DurationSeconds = *durationPtr
	cfg.Vehicle = config.Vehicle(*vehiclePtr)
	cfg.VehicleScale = *vehicleScalePtr
	cfg.Style = *stylePtr
	cfg.ShareURL = *sharePtr
	cfg.FixedCamera = *fixedPtr
	cfg.OutputPath = *outputPtr
	if cfg.OutputPath == "" {
		cfg.OutputPath = defaultOutputPath(r.Name)
	}

	sink := pickSink(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Invalid settings: %v", err)
	}

	gen := pickBackground(cfg.Style, *cacheDirPtr)

	comp, err := render.New(cfg, render.DefaultTheme())
	if err != nil {
		log.Fatalf("[-] Failed to set up the compositor: %v", err)
	}

	exp, err := engine.New(cfg, comp, gen, sink)
	if err != nil {
		log.Fatalf("[-] Failed to set up the exporter: %v", err)
	}

	w, h := cfg.Aspect.Dimensions()
	fmt.Println("--- [ROUTE EXPORT] ---")
	fmt.Printf("[*] Route: %s | Waypoints: %d\n", r.Name, len(r.UsableWaypoints()))
	fmt.Printf("[*] Output: %s | %dx%d @ %d FPS\n", cfg.OutputPath, w, h, config.FrameRate)
	fmt.Println("----------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := exp.Start(ctx, r); err != nil {
		log.Fatalf("[-] Failed to start export: %v", err)
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for {
		select {
		case p := <-exp.Progress():
			bar.Set(int(p * 100))
		case st := <-exp.Done():
			bar.Finish()
			if st.Err != nil {
				log.Fatalf("[-] Export failed: %v", st.Err)
			}
			fmt.Printf("[+++] Done! Result: %s\n", st.OutputPath)
			return
		}
	}
}

func loadRoute(path, name string, db *store.Store) *route.Route {
	switch {
	case path != "":
		if strings.HasSuffix(strings.ToLower(path), ".gpx") {
			r, err := route.FromGPX(path, route.DefaultGPXWaypoints)
			if err != nil {
				log.Fatalf("[-] Failed to read GPX track: %v", err)
			}
			return r
		}
		r, err := route.ReadFile(path)
		if err != nil {
			log.Fatalf("[-] Failed to read route file: %v", err)
		}
		return r
	case name != "":
		if db == nil {
			log.Fatalf("[-] -name requires -db")
		}
		r, err := db.Get(name)
		if err != nil {
			log.Fatalf("[-] Failed to load stored route: %v", err)
		}
		return r
	default:
		log.Fatalf("[-] Provide a route with -route or -name")
		return nil
	}
}

func resolveWaypoints(r *route.Route) {
	needsCoords := false
	for _, w := range r.Waypoints {
		if !w.Resolved() {
			needsCoords = true
			break
		}
	}
	needsNames := len(r.Waypoints) > 0 &&
		((r.Waypoints[0].Name == "" && r.Waypoints[0].Resolved()) ||
			(r.Waypoints[len(r.Waypoints)-1].Name == "" && r.Waypoints[len(r.Waypoints)-1].Resolved()))

	if !needsCoords && !needsNames {
		return
	}

	fmt.Println("[*] Resolving waypoint names...")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := geocode.NewNominatim("")
	if needsCoords {
		unresolved, err := geocode.ResolveRoute(ctx, client, r)
		if err != nil {
			log.Fatalf("[-] Geocoding failed: %v", err)
		}
		for _, name := range unresolved {
			fmt.Printf("[!] Could not resolve %q, skipping it\n", name)
		}
	}

	// GPX tracks carry coordinates but no names; name the endpoints so the
	// label overlay has something to show.
	geocode.NameEndpoints(ctx, client, r)
}

// pickSink selects ffmpeg when available and falls back to the pure-Go
// MJPEG writer, switching the output extension to match the container.
func pickSink(cfg *config.Export) video.Sink {
	ffmpegPath, ok := system.FindFFmpeg()
	if !ok {
		fmt.Println("[!] ffmpeg not found, falling back to MJPEG (larger files)")
		cfg.OutputPath = strings.TrimSuffix(cfg.OutputPath, filepath.Ext(cfg.OutputPath)) + ".avi"
		return video.NewMJPEGSink(0)
	}

	encoder := system.BestH264Encoder(ffmpegPath)
	if encoder != "libx264" {
		fmt.Printf("[*] Hardware acceleration detected: %s\n", encoder)
	}
	return video.NewFFmpegSink(ffmpegPath, encoder)
}

func pickBackground(style, cacheDir string) background.Generator {
	if style == "none" {
		return &background.SolidGenerator{}
	}

	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cacheDir = filepath.Join(home, ".cache", "route2video", "tiles")
	}

	gen, err := background.NewTileGenerator(style, cacheDir)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	return gen
}

func defaultOutputPath(routeName string) string {
	os.MkdirAll("output", 0755)
	clean := strings.ReplaceAll(routeName, " ", "_")
	if clean == "" {
		clean = "route"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", clean, timestamp))
}
