package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropToBounds extracts r from img, grown by margin pixels on every side and
// clipped to the image. A scale other than 1 resizes the result.
func CropToBounds(img image.Image, r image.Rectangle, margin int, scale float64) (image.Image, error) {
	if margin < 0 {
		return nil, fmt.Errorf("crop margin must not be negative, got %d", margin)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("crop scale must be positive, got %g", scale)
	}

	bounds := img.Bounds()
	crop := r.Inset(-margin).Intersect(bounds)
	if crop.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}

	cropped := imaging.Crop(img, crop)
	if scale != 1.0 {
		w := int(float64(cropped.Bounds().Dx())*scale + 0.5)
		h := int(float64(cropped.Bounds().Dy())*scale + 0.5)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("crop of %v scaled by %g is empty", crop, scale)
		}
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}
	return cropped, nil
}
