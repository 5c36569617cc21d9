package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned when a frame has no pixels.
var ErrEmptyImage = errors.New("imaging: empty image")

// OtsuThreshold selects the threshold level automatically.
const OtsuThreshold = -1

// MorphOp is a morphological operation applied to the binary image.
type MorphOp string

const (
	// OpDilate grows foreground regions.
	OpDilate MorphOp = "dilate"

	// OpErode shrinks foreground regions.
	OpErode MorphOp = "erode"
)

// MorphStep is one cleanup operation with its neighbourhood radius in pixels.
type MorphStep struct {
	Op     MorphOp `mapstructure:"op" json:"op"`
	Radius float64 `mapstructure:"radius" json:"radius"`
}

// PreprocessOptions controls how a frame becomes a binary image.
type PreprocessOptions struct {
	// MaxDimension downscales frames whose width or height exceeds it,
	// keeping the aspect ratio. Zero disables resizing.
	MaxDimension int `mapstructure:"max_dimension" json:"max_dimension"`

	// BlurSigma is the Gaussian blur sigma. Zero disables blurring.
	BlurSigma float64 `mapstructure:"blur_sigma" json:"blur_sigma"`

	// Threshold is the fixed grey level (0-255); pixels brighter than it
	// become white. OtsuThreshold picks the level from the histogram.
	Threshold int `mapstructure:"threshold" json:"threshold"`

	// Invert swaps black and white after thresholding so that dark objects on
	// a bright background become the white foreground.
	Invert bool `mapstructure:"invert" json:"invert"`

	// Cleanup is applied in order to the thresholded image.
	Cleanup []MorphStep `mapstructure:"cleanup" json:"cleanup"`
}

// Validate checks that every option is in range.
func (o PreprocessOptions) Validate() error {
	if o.MaxDimension < 0 {
		return fmt.Errorf("max_dimension must not be negative, got %d", o.MaxDimension)
	}
	if o.BlurSigma < 0 {
		return fmt.Errorf("blur_sigma must not be negative, got %g", o.BlurSigma)
	}
	if o.Threshold != OtsuThreshold && (o.Threshold < 0 || o.Threshold > 255) {
		return fmt.Errorf("threshold must be -1 (Otsu) or 0-255, got %d", o.Threshold)
	}
	for i, step := range o.Cleanup {
		if step.Op != OpDilate && step.Op != OpErode {
			return fmt.Errorf("cleanup[%d]: unknown operation %q", i, step.Op)
		}
		if step.Radius <= 0 {
			return fmt.Errorf("cleanup[%d]: radius must be positive, got %g", i, step.Radius)
		}
	}
	return nil
}

// Stages holds every intermediate image of one preprocessing run. All images
// share the bounds of Input, which starts at (0, 0).
type Stages struct {
	// Input is the frame after resizing, before blurring.
	Input image.Image

	// Gray is the blurred luminance image.
	Gray *image.Gray

	// Binary is the thresholded (and possibly inverted) image.
	Binary *image.Gray

	// Cleaned is Binary after the cleanup steps. It only holds 0 and 255.
	Cleaned *image.Gray

	// Level is the threshold that was applied: pixels above it were white
	// before inversion.
	Level uint8
}

// Preprocess turns a camera frame into a two-tone image ready for region
// labelling.
//
// # Steps
//
//  1. Downscale to MaxDimension (Lanczos) when the frame is larger.
//  2. Gaussian blur with BlurSigma.
//  3. Luminance conversion.
//  4. Threshold at the fixed level or the Otsu level.
//  5. Optional inversion.
//  6. Dilate and erode steps from Cleanup, in order.
func Preprocess(img image.Image, opts PreprocessOptions) (*Stages, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess options: %w", err)
	}

	b := img.Bounds()
	var input image.Image
	if m := opts.MaxDimension; m > 0 && (b.Dx() > m || b.Dy() > m) {
		input = imaging.Fit(img, m, m, imaging.Lanczos)
	} else {
		input = imaging.Clone(img)
	}

	blurred := input
	if opts.BlurSigma > 0 {
		blurred = imaging.Blur(input, opts.BlurSigma)
	}
	lum := effect.Grayscale(blurred)
	gray := image.NewGray(lum.Bounds())
	draw.Draw(gray, gray.Bounds(), lum, lum.Bounds().Min, draw.Src)

	level := uint8(opts.Threshold)
	if opts.Threshold == OtsuThreshold {
		level = Otsu(gray)
	}
	binary := thresholdAbove(gray, level)
	if opts.Invert {
		invert(binary)
	}

	cleaned := binary
	for _, step := range opts.Cleanup {
		switch step.Op {
		case OpDilate:
			cleaned = binarize(effect.Dilate(cleaned, step.Radius))
		case OpErode:
			cleaned = binarize(effect.Erode(cleaned, step.Radius))
		}
	}

	return &Stages{
		Input:   input,
		Gray:    gray,
		Binary:  binary,
		Cleaned: cleaned,
		Level:   level,
	}, nil
}

// Otsu returns the grey level that maximizes the between-class variance of
// the histogram of img. Pixels above the level form the bright class. The
// lowest level wins ties.
func Otsu(img *image.Gray) uint8 {
	var hist [256]float64
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}

	var total, sumAll float64
	for i, n := range hist {
		total += n
		sumAll += float64(i) * n
	}
	if total == 0 {
		return 0
	}

	var (
		best              uint8
		bestVar           = -1.0
		weightLow, sumLow float64
	)
	for t := 0; t < 256; t++ {
		weightLow += hist[t]
		if weightLow == 0 {
			continue
		}
		weightHigh := total - weightLow
		if weightHigh == 0 {
			break
		}
		sumLow += float64(t) * hist[t]
		meanLow := sumLow / weightLow
		meanHigh := (sumAll - sumLow) / weightHigh
		between := weightLow * weightHigh * (meanLow - meanHigh) * (meanLow - meanHigh)
		if between > bestVar {
			best, bestVar = uint8(t), between
		}
	}
	return best
}

// thresholdAbove sets pixels brighter than level to 255 and the rest to 0.
func thresholdAbove(img *image.Gray, level uint8) *image.Gray {
	if level == 255 {
		return image.NewGray(img.Bounds())
	}
	return segment.Threshold(img, level+1)
}

func invert(img *image.Gray) {
	for i, v := range img.Pix {
		img.Pix[i] = 255 - v
	}
}

// binarize maps the output of a morphology step back to a 0/255 grey image.
func binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y >= 128 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
