package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"time"

	"labelbrush/internal/logx"
	"labelbrush/internal/models"
	"labelbrush/pkg/config"
	"labelbrush/pkg/labelmap"
	"labelbrush/pkg/tool"
	"labelbrush/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "YAML configuration file (defaults are used when empty)")
	initConfig := flag.String("init-config", "", "Write a default configuration file to this path and exit")
	scriptPath := flag.String("script", "", "YAML script of pointer and render events (a demo stroke is used when empty)")
	rows := flag.Int("rows", 128, "Rows of the demo stack")
	cols := flag.Int("cols", 128, "Columns of the demo stack")
	frames := flag.Int("frames", 8, "Slices of the demo stack")
	outDir := flag.String("out", "", "Directory for rendered frames (overrides output.frameDir)")
	extractSlices := flag.Bool("extract-slices", false, "Save overlay debug images along all axes after the script")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *initConfig != "" {
		if err := config.CreateDefaultConfigFile(*initConfig); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *initConfig)
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if *outDir != "" {
		cfg.Output.FrameDir = *outDir
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sess, err := config.NewSession(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	script := DemoScript(*rows, *cols, *frames)
	if *scriptPath != "" {
		if script, err = LoadScript(*scriptPath); err != nil {
			log.Fatalf("Failed to load script: %v", err)
		}
	}

	fmt.Println("================================")
	fmt.Println("LABELBRUSH HEADLESS SEGMENTATION SESSION")
	fmt.Println("================================")
	fmt.Printf("Stack %q: %dx%d, %d slices\n", script.Stack.ID, script.Stack.Columns, script.Stack.Rows, script.Stack.Frames)
	fmt.Printf("Brush radius %.1f, label %d, erase mode %s\n", sess.Radius, sess.ActiveLabel, cfg.Brush.EraseMode)

	info := models.ImageInfo{Rows: script.Stack.Rows, Columns: script.Stack.Columns}
	bounds := image.Rect(0, 0, script.Canvas.Width, script.Canvas.Height)
	host := newHeadlessHost(bounds, info, script.viewport())

	brush := tool.New(sess, host)
	defer brush.Close()

	const element = models.Element("viewport-0")
	backgrounds := make(map[int]image.Image)
	frameCount := 0
	strokes := 0
	startTime := time.Now()

	for i, raw := range script.Events {
		slice := 0
		if v, ok := raw["slice"].(int); ok {
			slice = v
		}

		if render, _ := raw["render"].(bool); render {
			bg, ok := backgrounds[slice]
			if !ok {
				bg = phantomSlice(info.Rows, info.Columns, slice, script.Stack.Frames)
				backgrounds[slice] = bg
			}

			ev := models.RenderRequestEvent{
				Element: element,
				Image:   info,
				Canvas:  host.newCanvas(bounds, bg, info),
			}
			ev.Stack = models.Stack{
				ID:           script.Stack.ID,
				Rows:         script.Stack.Rows,
				Columns:      script.Stack.Columns,
				FrameCount:   script.Stack.Frames,
				CurrentIndex: slice,
			}
			ev.Viewport = script.viewport()

			frame, err := brush.HandleRender(ev)
			if err != nil {
				log.Fatalf("Render event %d failed: %v", i, err)
			}
			if frame.Regenerating {
				// the host would redraw on UpdateImage; replay that here
				brush.Close()
				ev.Canvas = host.newCanvas(bounds, bg, info)
				if _, err := brush.HandleRender(ev); err != nil {
					log.Fatalf("Render event %d failed: %v", i, err)
				}
			}

			filename := filepath.Join(cfg.Output.FrameDir, fmt.Sprintf("frame_%04d.png", frameCount))
			if err := visualization.SavePNG(ev.Canvas, filename); err != nil {
				log.Fatalf("Failed to save frame: %v", err)
			}
			frameCount++
			continue
		}

		payload := maps.Clone(raw)
		delete(payload, "slice")
		payload["element"] = string(element)
		payload["stack"] = script.stackPayload(slice)

		ev, err := models.ParsePointerPaintEvent(payload)
		if err != nil {
			log.Printf("Warning: skipping event %d: %v", i, err)
			continue
		}
		res, err := brush.HandlePointer(ev)
		if err != nil {
			log.Printf("Warning: event %d failed: %v", i, err)
			continue
		}
		if res.Applied {
			strokes++
		}
	}
	brush.Close()
	elapsed := time.Since(startTime)

	fmt.Printf("\nSession completed in %.3f seconds\n", elapsed.Seconds())
	fmt.Printf("Applied strokes: %d\n", strokes)
	fmt.Printf("Frames saved to: %s (%d frames)\n", cfg.Output.FrameDir, frameCount)

	events, pixels := host.modifiedCount()
	fmt.Printf("Host notifications: %d redraws, %d modifications (%d pixels changed)\n", host.updates.Load(), events, pixels)

	stats := brush.Cache().Stats()
	fmt.Printf("\nOverlay cache:\n")
	fmt.Printf("- Regenerations started: %d, completed: %d, failed: %d\n", stats.Started, stats.Completed, stats.Failed)
	fmt.Printf("- Coalesced: %d, deferred: %d, dropped: %d\n", stats.Coalesced, stats.Deferred, stats.Dropped)

	vol, ok := brush.Store().Volume(script.Stack.ID)
	if !ok {
		fmt.Println("\nNo labels were painted.")
		return
	}

	fmt.Printf("\nLabel statistics:\n")
	for z := 0; z < vol.FrameCount(); z++ {
		view, ok := vol.LookupSliceView(z)
		if !ok {
			continue
		}
		printSummary(labelmap.SliceStats(view))
	}

	if *extractSlices {
		fmt.Println("\nSaving overlay debug images along all axes...")
		viewer := visualization.NewViewer(vol, sess.LUT, sess.Workers)
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(cfg.Output.FrameDir, "labels", axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}
}

func printSummary(summary labelmap.SliceSummary) {
	fmt.Printf("Slice %d: %.2f%% labelled\n", summary.SliceIndex, summary.LabelledFraction*100)
	for _, ls := range summary.Labels {
		fmt.Printf("- label %3d: %6d px, centroid (%.1f, %.1f), spread (%.1f, %.1f), bounds %v\n",
			ls.Label, ls.Pixels, ls.CentroidCol, ls.CentroidRow, ls.StdCol, ls.StdRow, ls.Bounds)
		fmt.Printf("  axes %.1f x %.1f at %.1f degrees\n", ls.MajorAxis, ls.MinorAxis, ls.Orientation)
	}
}
