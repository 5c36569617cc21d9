package pipeline

import (
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/shapeid/internal/classify"
	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/imaging"
)

// View selects which stage of a frame to display.
type View int

const (
	// ViewAnnotated is the input with the rectangle, axis and label drawn on.
	ViewAnnotated View = iota

	// ViewRaw is the input after resizing.
	ViewRaw

	// ViewThreshold is the binary image before cleanup.
	ViewThreshold

	// ViewCleaned is the binary image after cleanup.
	ViewCleaned

	// ViewRegionMap shows every labelled region in its own colour.
	ViewRegionMap

	// ViewObject is the annotated view cropped to the object.
	ViewObject
)

// objectMargin pads the object view on each side.
const objectMargin = 8

var viewNames = map[View]string{
	ViewAnnotated: "annotated",
	ViewRaw:       "raw",
	ViewThreshold: "threshold",
	ViewCleaned:   "cleaned",
	ViewRegionMap: "regions",
	ViewObject:    "object",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// ViewNames lists the accepted view names in display order.
func ViewNames() []string {
	return []string{"annotated", "raw", "threshold", "cleaned", "regions", "object"}
}

// ParseView converts a view name. The empty string is ViewAnnotated.
func ParseView(s string) (View, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ViewAnnotated, nil
	}
	for v, name := range viewNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q (want one of %s)", s, strings.Join(ViewNames(), ", "))
}

// Render draws the requested view of frame. An annotated frame without an
// object shows the plain input; the object view fails with ErrNoObject.
func (r *Recognizer) Render(frame *Frame, view View) (image.Image, error) {
	if frame == nil || frame.Stages == nil {
		return nil, fmt.Errorf("render %s: frame was not processed", view)
	}

	switch view {
	case ViewRaw:
		return frame.Stages.Input, nil
	case ViewThreshold:
		return imaging.GrayToRGBA(frame.Stages.Binary), nil
	case ViewCleaned:
		return imaging.GrayToRGBA(frame.Stages.Cleaned), nil
	case ViewRegionMap:
		if frame.Regions == nil {
			return nil, fmt.Errorf("render %s: frame has no region map", view)
		}
		return imaging.ColorizeRegions(frame.Regions), nil
	case ViewAnnotated:
		return r.annotate(frame), nil
	case ViewObject:
		if frame.Shape == nil || frame.ObjectID < 1 {
			return nil, fmt.Errorf("render %s: %w", view, ErrNoObject)
		}
		bounds := frame.RegionStats()[frame.ObjectID-1].Bounds
		return imaging.CropToBounds(r.annotate(frame), bounds, objectMargin, 1)
	}
	return nil, fmt.Errorf("unknown view %s", view)
}

func (r *Recognizer) annotate(frame *Frame) image.Image {
	if frame.Shape == nil {
		return frame.Stages.Input
	}
	return imaging.Annotate(frame.Stages.Input, imaging.Annotation{
		Corners:     frame.Shape.Rect.Corners(),
		Centroid:    features.Point{X: frame.Shape.CentroidX, Y: frame.Shape.CentroidY},
		Orientation: frame.Shape.Orientation,
		Label:       displayLabel(frame.Result),
		Color:       r.overlay,
	})
}

func displayLabel(res *classify.Result) string {
	if res == nil {
		return ""
	}
	return res.Label
}
