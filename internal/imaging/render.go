package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"

	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/region"
)

// EncodedImage is a PNG encoded as base64, ready to embed in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// RegionColor returns the display colour of region id. Background (0) is
// black; successive IDs step around the hue circle by the golden angle so
// neighbours stay distinct.
func RegionColor(id int) color.RGBA {
	if id <= 0 {
		return color.RGBA{A: 255}
	}
	hue := math.Mod(float64(id)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.65, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ColorizeRegions paints every region of m in its RegionColor.
func ColorizeRegions(m *region.Map) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	palette := map[int]color.RGBA{}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			id := m.At(x, y)
			c, ok := palette[id]
			if !ok {
				c = RegionColor(id)
				palette[id] = c
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}

// GrayToRGBA copies a grey image into a colour image so it can be drawn on.
func GrayToRGBA(img *image.Gray) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Annotation describes what to draw over a frame.
type Annotation struct {
	// Corners of the oriented bounding rectangle.
	Corners [4]features.Point

	// Centroid is the centre of mass in pixel-index coordinates.
	Centroid features.Point

	// Orientation is the axis of least central moment in radians.
	Orientation float64

	// AxisLength is the half-length of the drawn axis. Zero uses half the
	// longer rectangle side.
	AxisLength float64

	// Label is written in the top-left corner when not empty.
	Label string

	// Color of the overlay. Nil draws green.
	Color color.Color
}

// Annotate draws the rectangle, the axis through the centroid and the label
// on a copy of base.
func Annotate(base image.Image, a Annotation) image.Image {
	dc := gg.NewContextForImage(base)

	c := a.Color
	if c == nil {
		c = color.RGBA{G: 255, A: 255}
	}
	dc.SetColor(c)
	dc.SetLineWidth(2)

	dc.MoveTo(a.Corners[0].X, a.Corners[0].Y)
	for _, p := range a.Corners[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	dc.Stroke()

	length := a.AxisLength
	if length <= 0 {
		w := math.Hypot(a.Corners[1].X-a.Corners[0].X, a.Corners[1].Y-a.Corners[0].Y)
		h := math.Hypot(a.Corners[2].X-a.Corners[1].X, a.Corners[2].Y-a.Corners[1].Y)
		length = math.Max(w, h) / 2
	}
	// Pixel (x, y) is centred on (x+0.5, y+0.5).
	cx, cy := a.Centroid.X+0.5, a.Centroid.Y+0.5
	sin, cos := math.Sincos(a.Orientation)
	dc.DrawLine(cx-length*cos, cy-length*sin, cx+length*cos, cy+length*sin)
	dc.Stroke()
	dc.DrawCircle(cx, cy, 3)
	dc.Fill()

	if a.Label != "" {
		dc.SetFontFace(basicfont.Face7x13)
		w, h := dc.MeasureString(a.Label)
		dc.SetColor(color.RGBA{A: 180})
		dc.DrawRectangle(4, 4, w+8, h+8)
		dc.Fill()
		dc.SetColor(c)
		dc.DrawStringAnchored(a.Label, 8, 8, 0, 1)
	}

	return dc.Image()
}

// ParseHexColor parses a hex color string like "#00FF00" or "#00FF0080".
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	switch len(hex) {
	case 6:
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid hex color length %d", len(hex))
}
