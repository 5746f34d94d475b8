// Command sdfray evaluates the distance field of a scene of circles and
// rectangles on a compute device, marches a ray through it and writes the
// results as images.
//
// Usage:
//
//	sdfray [-config file.json] [-backend name] [-frames n] [-out dir] [-v]
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/soypat/sdfray"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	_ "github.com/soypat/sdfray/compute/glcompute"
	_ "github.com/soypat/sdfray/compute/opencl"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/internal/config"
	"github.com/soypat/sdfray/render"
	"github.com/soypat/sdfray/scene"
)

func init() {
	runtime.LockOSThread() // For GL.
}

func main() {
	var (
		configPath = flag.String("config", "", "JSON configuration `file`")
		backend    = flag.String("backend", "", "compute backend, one of: "+strings.Join(compute.Available(), ", "))
		format     = flag.String("format", "", "field pixel format: rgba8 or r32f")
		frames     = flag.Int("frames", 0, "amount of frames to run")
		seed       = flag.Uint64("seed", 0, "seed of the random scene")
		k          = flag.Float64("k", 0, "blending distance of the field")
		source     = flag.String("source", "", "distances marched through: field or direct")
		mode       = flag.String("mode", "", "overlay display mode: shapes or field")
		outDir     = flag.String("out", "", "output directory")
		verbose    = flag.Bool("v", false, "log debug information")
	)
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	sdfray.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	// Flags given explicitly override the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "format":
			cfg.Format = *format
		case "frames":
			cfg.Frames = *frames
		case "seed":
			cfg.Scene.Seed = *seed
		case "k":
			cfg.K = float32(*k)
		case "source":
			cfg.March.Source = *source
		case "mode":
			cfg.Output.Mode = *mode
		case "out":
			cfg.Output.Dir = *outDir
		}
	})
	err := cfg.Validate()
	if err != nil {
		log.Fatal(err)
	}
	err = run(cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	ccfg, err := cfg.Compute()
	if err != nil {
		return err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	m, err := compute.Open(ccfg)
	if err != nil {
		return err
	}
	defer m.Close()

	p := sdfray.NewPipeline(m, cfg.March.Origin.Vec())
	p.March = cfg.MarchConfig()
	if cfg.March.Source == config.SourceDirect {
		p.Source = sdfray.FromScene
	}
	overlay := render.DefaultOverlay()
	overlay.Mode = mode
	overlay.Supersample = cfg.Output.Supersample

	s := cfg.BuildScene(cfg.Scene.Seed)
	logger := sdfray.Logger()
	bounds := cfg.Bounds()
	extent := dist.Scene{Set: &s}.Bounds()
	logger.Info("scene", "circles", len(s.Circles), "rects", len(s.Rects), "seed", cfg.Scene.Seed,
		"min", extent.Min, "max", extent.Max)
	if s.Len() > 0 && !(contains(bounds, extent.Min) && contains(bounds, extent.Max)) {
		logger.Warn("scene extends past the field", "field", bounds.Max)
	}
	for i, target := range cfg.March.Targets {
		if !contains(bounds, target.Vec()) {
			logger.Warn("target outside field is clamped", "n", i, "target", target.Vec())
		}
	}
	var total time.Duration
	for i := 0; i < cfg.Frames; i++ {
		frame, err := p.Frame(&s, cfg.K, cfg.Target(i))
		if err != nil {
			return err
		}
		total += frame.Total()
		stats := frame.Field.Stats()
		logger.Info("frame", "n", i,
			"termination", frame.Termination.String(),
			"steps", len(frame.Ray.Steps()),
			"traveled", frame.Ray.Traveled(),
			"field_min", stats.Min,
			"field_max", stats.Max,
			"inside", stats.Inside,
			"time", frame.Total(),
		)
		err = writeOutputs(cfg, i, overlay, &frame, &s)
		if err != nil {
			return err
		}
	}
	fps := float64(cfg.Frames) / total.Seconds()
	logger.Info("done", "frames", cfg.Frames, "device", m.Device(), "fps", fmt.Sprintf("%.1f", fps))
	return nil
}

func writeOutputs(cfg config.Config, i int, overlay render.Overlay, frame *sdfray.Frame, s *scene.Set) error {
	out := cfg.Output
	if out.Field != "" {
		err := render.SavePNG(outputPath(cfg, out.Field, i), render.FieldImage(frame.Field))
		if err != nil {
			return err
		}
	}
	if out.Overlay != "" {
		img, err := overlay.Draw(cfg.Width, cfg.Height, s, &frame.Field, frame.Ray)
		if err != nil {
			return err
		}
		err = render.SavePNG(outputPath(cfg, out.Overlay, i), img)
		if err != nil {
			return err
		}
	}
	if out.Plot != "" {
		plt, err := render.TrajectoryPlot(frame.Ray, fmt.Sprintf("frame %d: %s", i, frame.Termination))
		if err != nil {
			return err
		}
		err = render.SavePlot(plt, outputPath(cfg, out.Plot, i))
		if err != nil {
			return err
		}
	}
	if out.RadiusPlot != "" {
		plt, err := render.RadiusPlot(frame.Ray, fmt.Sprintf("frame %d: clearance", i))
		if err != nil {
			return err
		}
		err = render.SavePlot(plt, outputPath(cfg, out.RadiusPlot, i))
		if err != nil {
			return err
		}
	}
	return nil
}

func contains(b ms2.Box, p ms2.Vec) bool {
	return p.X >= b.Min.X && p.Y >= b.Min.Y && p.X <= b.Max.X && p.Y <= b.Max.Y
}

// outputPath returns the path of an output file. Runs of more than one
// frame number their files.
func outputPath(cfg config.Config, name string, frame int) string {
	if cfg.Frames > 1 {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(name, ext), frame, ext)
	}
	return filepath.Join(cfg.Output.Dir, name)
}
