package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/ironsheep/shapeid/internal/classify"
	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/imaging"
	"github.com/ironsheep/shapeid/internal/region"
)

// ErrNoObject is returned when a frame has no foreground region.
var ErrNoObject = errors.New("pipeline: no object in frame")

// Method selects the classification strategy.
type Method string

const (
	// MethodNearest is 1-nearest-neighbour.
	MethodNearest Method = "nn"

	// MethodKNearest is k-nearest-neighbour with rejection.
	MethodKNearest Method = "knn"
)

// Config holds the settings of a Recognizer.
type Config struct {
	Preprocess imaging.PreprocessOptions

	// Foreground is the grey value labelled as object in the cleaned image.
	Foreground uint8

	Extent        features.Extent
	Method        Method
	K             int
	StdMultiplier float64

	// OverlayColor is the hex colour of annotations. Empty uses green.
	OverlayColor string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Preprocess: imaging.PreprocessOptions{
			MaxDimension: 640,
			BlurSigma:    1.5,
			Threshold:    imaging.OtsuThreshold,
			Invert:       true,
			Cleanup: []imaging.MorphStep{
				{Op: imaging.OpDilate, Radius: 4},
				{Op: imaging.OpErode, Radius: 2},
				{Op: imaging.OpDilate, Radius: 4},
				{Op: imaging.OpErode, Radius: 6},
			},
		},
		Foreground:    255,
		Extent:        features.ExtentOriented,
		Method:        MethodKNearest,
		K:             2,
		StdMultiplier: 1,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if err := c.Preprocess.Validate(); err != nil {
		return err
	}
	switch c.Method {
	case MethodNearest, MethodKNearest:
	default:
		return fmt.Errorf("unknown classification method %q (want nn or knn)", c.Method)
	}
	if c.Method == MethodKNearest && c.K < 1 {
		return fmt.Errorf("k must be at least 1, got %d", c.K)
	}
	if c.StdMultiplier <= 0 {
		return fmt.Errorf("std_multiplier must be positive, got %g", c.StdMultiplier)
	}
	if c.OverlayColor != "" {
		if _, err := imaging.ParseHexColor(c.OverlayColor); err != nil {
			return fmt.Errorf("overlay_color: %w", err)
		}
	}
	return nil
}

// Store is the feature database a Recognizer reads and learns into.
type Store interface {
	classify.Source
	Append(label string, v features.Vector) error
}

// Frame carries one image through the recognition cycle. Fields are filled in
// stage order; a frame returned with ErrNoObject stops after Regions.
type Frame struct {
	Stages      *imaging.Stages
	Regions     *region.Map
	RegionCount int

	// Object is the mask of the largest region and ObjectID its label.
	Object   *image.Gray
	ObjectID int

	Shape  *features.Shape
	Result *classify.Result
}

// RegionStats describes every labelled region of the frame.
func (f *Frame) RegionStats() []region.Stats {
	if f.Regions == nil {
		return nil
	}
	return region.Describe(f.Regions, f.RegionCount)
}

// Recognizer runs the per-frame cycle: preprocess, label, keep the largest
// component, extract features, classify.
//
// A Recognizer is safe for concurrent use when its Store is.
type Recognizer struct {
	store     Store
	cfg       Config
	extractor features.Extractor
	overlay   color.Color
	logger    *zap.Logger
}

// New creates a Recognizer. A nil logger disables logging.
func New(store Store, cfg Config, logger *zap.Logger) (*Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recognizer{
		store:     store,
		cfg:       cfg,
		extractor: features.Extractor{Extent: cfg.Extent},
		logger:    logger.Named("pipeline"),
	}
	if cfg.OverlayColor != "" {
		c, _ := imaging.ParseHexColor(cfg.OverlayColor)
		r.overlay = c
	}
	return r, nil
}

// Config returns the settings the Recognizer was built with.
func (r *Recognizer) Config() Config {
	return r.cfg
}

// Analyze runs the cycle up to feature extraction. When the frame holds no
// foreground it returns the partial frame together with ErrNoObject.
func (r *Recognizer) Analyze(img image.Image) (*Frame, error) {
	stages, err := imaging.Preprocess(img, r.cfg.Preprocess)
	if err != nil {
		return nil, err
	}

	frame := &Frame{Stages: stages}
	frame.Regions, frame.RegionCount = region.Label(stages.Cleaned, r.cfg.Foreground)

	mask, id, err := region.LargestComponent(frame.Regions, frame.RegionCount)
	if errors.Is(err, region.ErrNoRegions) {
		r.logger.Debug("no foreground in frame", zap.Uint8("threshold", stages.Level))
		return frame, ErrNoObject
	}
	if err != nil {
		return nil, err
	}
	frame.Object, frame.ObjectID = mask, id

	shape, err := r.extractor.Describe(mask)
	if err != nil {
		return nil, fmt.Errorf("describe region %d: %w", id, err)
	}
	frame.Shape = shape

	r.logger.Debug("frame analyzed",
		zap.Int("regions", frame.RegionCount),
		zap.Int("object", id),
		zap.Int("area", shape.Area),
		zap.Float64("fill", shape.Vector.FillRatio()),
		zap.Float64("aspect", shape.Vector.AspectRatio()),
	)
	return frame, nil
}

// Process analyzes img and classifies its object.
func (r *Recognizer) Process(img image.Image) (*Frame, error) {
	frame, err := r.Analyze(img)
	if err != nil {
		return frame, err
	}

	res, err := r.Classify(frame.Shape.Vector)
	if err != nil {
		return nil, err
	}
	frame.Result = &res
	return frame, nil
}

// Classify labels v against the store with the configured method.
func (r *Recognizer) Classify(v features.Vector) (classify.Result, error) {
	var (
		res classify.Result
		err error
	)
	switch r.cfg.Method {
	case MethodNearest:
		res, err = classify.NearestNeighbor(v, r.store)
	default:
		res, err = classify.KNearestNeighbors(v, r.store, r.cfg.K, r.cfg.StdMultiplier)
	}
	if err != nil {
		return classify.Result{}, fmt.Errorf("classify: %w", err)
	}

	r.logger.Debug("classified",
		zap.String("method", string(r.cfg.Method)),
		zap.String("label", res.Label),
		zap.Stringer("status", res.Status),
		zap.Float64("distance", res.Distance),
	)
	return res, nil
}

// Learn appends the frame's feature vector to the store under label.
func (r *Recognizer) Learn(frame *Frame, label string) error {
	if frame == nil || frame.Shape == nil {
		return ErrNoObject
	}
	if err := r.store.Append(label, frame.Shape.Vector); err != nil {
		return fmt.Errorf("learn %q: %w", label, err)
	}
	r.logger.Info("learned object", zap.String("label", label), zap.Int("area", frame.Shape.Area))
	return nil
}
