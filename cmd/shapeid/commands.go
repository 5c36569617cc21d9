package main

import (
	"errors"
	"fmt"
	"image/png"
	"math"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/shapeid/internal/classify"
	"github.com/ironsheep/shapeid/internal/config"
	"github.com/ironsheep/shapeid/internal/featuredb"
	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/imaging"
	"github.com/ironsheep/shapeid/internal/logging"
	"github.com/ironsheep/shapeid/internal/pipeline"
	"github.com/ironsheep/shapeid/internal/server"
)

// env is everything a command needs, built from flags and configuration.
type env struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      featuredb.Store
	recognizer *pipeline.Recognizer
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagDB) {
		cfg.Database.Path = c.String(flagDB)
	}
	if c.IsSet(flagDriver) {
		cfg.Database.Driver = c.String(flagDriver)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := featuredb.Open(cfg.Database.Driver, cfg.Database.Path, logger)
	if err != nil {
		logging.Sync(logger)
		return nil, err
	}

	pc, err := cfg.Pipeline()
	if err != nil {
		store.Close()
		logging.Sync(logger)
		return nil, err
	}
	rec, err := pipeline.New(store, pc, logger)
	if err != nil {
		store.Close()
		logging.Sync(logger)
		return nil, err
	}

	logger.Debug("configured",
		zap.String("database", cfg.Database.Path),
		zap.String("driver", cfg.Database.Driver),
		zap.String("method", string(pc.Method)),
		zap.Stringer("extent", pc.Extent),
	)
	return &env{cfg: cfg, logger: logger, store: store, recognizer: rec}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close database", zap.Error(err))
	}
	logging.Sync(e.logger)
}

func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()
		return action(c, e)
	}
}

func requireArgs(c *cli.Context, min, max int) error {
	n := c.NArg()
	if n < min || (max > 0 && n > max) {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

// extentNote reminds the user that fill and aspect ratios only compare
// between entries measured with the same extent mode.
func extentNote(extent features.Extent) string {
	note := fmt.Sprintf("fill and aspect ratios are measured with %s extents", extent)
	if extent == features.ExtentOriented {
		note += "; set features.extent: projected for databases recorded with axis-projected extents"
	}
	return note
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

var classifyAction = withEnv(func(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1, 0); err != nil {
		return err
	}

	t := newTable()
	t.AppendHeader(table.Row{"Image", "Label", "Status", "Distance", "Threshold"})
	for _, path := range c.Args().Slice() {
		img, err := imaging.Decode(path)
		if err != nil {
			return err
		}
		frame, err := e.recognizer.Process(img)
		if errors.Is(err, pipeline.ErrNoObject) {
			t.AppendRow(table.Row{path, "", "no object", "", ""})
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		res := frame.Result
		distance, threshold := "", ""
		if res.Status == classify.Matched || res.Status == classify.Unknown {
			distance = formatFloat(res.Distance)
		}
		if res.Threshold != 0 {
			threshold = formatFloat(res.Threshold)
		}
		t.AppendRow(table.Row{path, res.Label, res.Status.String(), distance, threshold})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var learnAction = withEnv(func(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1, 0); err != nil {
		return err
	}
	label := c.String(flagLabel)
	if err := featuredb.ValidateLabel(label); err != nil {
		return err
	}

	for _, path := range c.Args().Slice() {
		img, err := imaging.Decode(path)
		if err != nil {
			return err
		}
		frame, err := e.recognizer.Analyze(img)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := e.recognizer.Learn(frame, label); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "learned %s from %s\n", label, path)
	}
	return nil
})

var featuresAction = withEnv(func(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}
	img, err := imaging.Decode(c.Args().First())
	if err != nil {
		return err
	}
	frame, err := e.recognizer.Analyze(img)
	if err != nil {
		return err
	}

	shape := frame.Shape
	t := newTable()
	t.AppendHeader(table.Row{"Feature", "Value"})
	for i, name := range features.Names {
		t.AppendRow(table.Row{name, formatFloat(shape.Vector[i])})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"area", shape.Area})
	t.AppendRow(table.Row{"centroid", fmt.Sprintf("%.1f, %.1f", shape.CentroidX, shape.CentroidY)})
	t.AppendRow(table.Row{"orientation", fmt.Sprintf("%.1f°", shape.Orientation*180/math.Pi)})
	t.AppendRow(table.Row{"rect", fmt.Sprintf("%.1f x %.1f at %.1f°", shape.Rect.Width, shape.Rect.Height, shape.Rect.Angle)})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var regionsAction = withEnv(func(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}
	img, err := imaging.Decode(c.Args().First())
	if err != nil {
		return err
	}
	frame, err := e.recognizer.Analyze(img)
	if err != nil && !errors.Is(err, pipeline.ErrNoObject) {
		return err
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Area", "Bounds", "Centroid", ""})
	for _, s := range frame.RegionStats() {
		mark := ""
		if s.ID == frame.ObjectID {
			mark = "object"
		}
		t.AppendRow(table.Row{s.ID, s.Area, s.Bounds.String(), fmt.Sprintf("%.1f, %.1f", s.CentroidX, s.CentroidY), mark})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d regions, threshold %d", frame.RegionCount, frame.Stages.Level), ""})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var renderAction = withEnv(func(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}
	view, err := pipeline.ParseView(c.String(flagView))
	if err != nil {
		return err
	}
	img, err := imaging.Decode(c.Args().First())
	if err != nil {
		return err
	}
	frame, err := e.recognizer.Process(img)
	if err != nil && !errors.Is(err, pipeline.ErrNoObject) {
		return err
	}
	out, err := e.recognizer.Render(frame, view)
	if err != nil {
		return err
	}

	f, err := os.Create(c.String(flagOut))
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s view to %s\n", view, c.String(flagOut))
	return nil
})

var dbStatsAction = withEnv(func(c *cli.Context, e *env) error {
	entries, err := e.store.Entries()
	if errors.Is(err, featuredb.ErrNoFile) {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", e.store.Path(), classify.LabelNoFile)
		return nil
	}
	if err != nil {
		return err
	}

	s := featuredb.Summarize(e.store.Path(), entries)
	if s.Entries == 0 {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", s.Path, classify.LabelEmpty)
		return nil
	}

	labels := newTable()
	labels.SetTitle(s.Path)
	labels.AppendHeader(table.Row{"Label", "Entries"})
	for _, l := range s.Labels {
		labels.AppendRow(table.Row{l.Label, l.Count})
	}
	labels.AppendFooter(table.Row{"total", s.Entries})
	fmt.Fprintln(c.App.Writer, labels.Render())

	sd := newTable()
	sd.AppendHeader(table.Row{"Feature", "Std dev"})
	for i, name := range features.Names {
		sd.AppendRow(table.Row{name, formatFloat(s.StandardDeviations[i])})
	}
	fmt.Fprintln(c.App.Writer, sd.Render())
	fmt.Fprintln(c.App.Writer, extentNote(e.recognizer.Config().Extent))
	return nil
})

var serveAction = withEnv(func(c *cli.Context, e *env) error {
	e.logger.Info("starting MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
	)
	srv := server.New(server.Options{
		Recognizer: e.recognizer,
		Store:      e.store,
		CacheSize:  e.cfg.Render.CacheSize,
		Version:    Version,
		Logger:     e.logger,
	})
	return srv.Run()
})
