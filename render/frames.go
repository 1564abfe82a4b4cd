package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/Vizzuality/HLS-data-project/inference"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Channels of the model input stack shown as red, green and blue:
// SWIR 2, NIR and red reflectance
var compositeChannels = [3]int{5, 3, 2}

const saturation = 2.0

var (
	labelColor      = color.RGBA{255, 255, 255, 255}
	labelBackground = color.RGBA{0, 0, 0, 160}
	maskColor       = color.RGBA{255, 255, 255, 255}
)

// Context is the context for a render operation
type Context struct {
	sessionID string
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *Context) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = util.PsuUUID()
	}
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}

func toByte(v float64) uint8 {
	v *= saturation
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 255
	}
	return uint8(v * 255)
}

// Composite renders the SWIR 2 / NIR / red false-colour view of a stack,
// saturated by a factor of two
func Composite(stack model.Stack) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, stack.Width, stack.Height))
	for y := 0; y < stack.Height; y++ {
		for x := 0; x < stack.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(stack.At(y, x, compositeChannels[0])),
				G: toByte(stack.At(y, x, compositeChannels[1])),
				B: toByte(stack.At(y, x, compositeChannels[2])),
				A: 255,
			})
		}
	}
	return img
}

// Overlay returns a copy of img with every class 1 pixel of mask painted white
func Overlay(img *image.RGBA, mask inference.Mask) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dx() != mask.Width || b.Dy() != mask.Height {
		return nil, fmt.Errorf("mask is %dx%d, image is %dx%d", mask.Width, mask.Height, b.Dx(), b.Dy())
	}
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) == 1 {
				out.SetRGBA(b.Min.X+x, b.Min.Y+y, maskColor)
			}
		}
	}
	return out, nil
}

// Label draws text in the top-left corner of img
func Label(img draw.Image, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	box := image.Rect(0, 0, width+4, height+4).Add(img.Bounds().Min)
	draw.Draw(img, box, image.NewUniform(labelBackground), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(img.Bounds().Min.X + 2),
			Y: fixed.I(img.Bounds().Min.Y + 2 + face.Metrics().Ascent.Ceil()),
		},
	}
	d.DrawString(text)
}

// CompositeFrame renders the false-colour composite of a stack with a label
func CompositeFrame(stack model.Stack, label string) *image.RGBA {
	img := Composite(stack)
	if label != "" {
		Label(img, label)
	}
	return img
}

// LabelPNG decodes a PNG and draws a label on it
func LabelPNG(data []byte, label string) (*image.RGBA, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	Label(img, label)
	return img, nil
}

// FramePath returns the path of frame index (1-based) of a region
func FramePath(dir, region string, index int) string {
	return filepath.Join(dir, region, fmt.Sprintf("%s_%03d.png", region, index))
}

// WriteFrame encodes img as frame index of the region, creating the region
// directory if needed
func WriteFrame(dir, region string, index int, img image.Image) (string, error) {
	path := FramePath(dir, region, index)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err = png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// SaveFrames writes the composite as frame 001 and the composite with the
// mask painted white as frame 002
func SaveFrames(dir, region string, stack model.Stack, mask inference.Mask, lc util.LogContext) ([]string, error) {
	composite := Composite(stack)
	overlay, err := Overlay(composite, mask)
	if err != nil {
		return nil, util.WrapError(util.Configuration, err)
	}

	var paths []string
	for i, img := range []image.Image{composite, overlay} {
		path, err := WriteFrame(dir, region, i+1, img)
		if err != nil {
			return nil, util.LogSimpleErr(lc, fmt.Sprintf("Failed to write frame %d of %s.", i+1, region), err)
		}
		paths = append(paths, path)
	}
	util.LogInfo(lc, fmt.Sprintf("Saved %d frames to %s.", len(paths), filepath.Join(dir, region)))
	return paths, nil
}
