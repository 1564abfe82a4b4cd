package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Vizzuality/HLS-data-project/inference"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStack is 1 row x 2 columns; SWIR 2 = 0.25, NIR = 0.6, red = NaN in
// the first pixel and 0.1 in the second
func testStack() model.Stack {
	stack := model.NewStack(1, 2, 6)
	for x := 0; x < 2; x++ {
		stack.Set(0, x, 5, 0.25)
		stack.Set(0, x, 3, 0.6)
		stack.Set(0, x, 2, 0.1)
	}
	stack.Set(0, 0, 2, math.NaN())
	return stack
}

func TestComposite(t *testing.T) {
	img := Composite(testStack())

	assert.Equal(t, color.RGBA{127, 255, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{127, 255, 51, 255}, img.RGBAAt(1, 0))
}

func TestSaveFrames(t *testing.T) {
	// Mock
	dir := t.TempDir()
	mask := inference.Mask{Width: 2, Height: 1, Classes: []int{0, 1}}

	// Tested code
	paths, err := SaveFrames(dir, "maui", testStack(), mask, &Context{})

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "maui", "maui_001.png"), filepath.Join(dir, "maui", "maui_002.png")}, paths)

	first := decode(t, paths[0])
	second := decode(t, paths[1])
	assert.Equal(t, first.At(0, 0), second.At(0, 0))
	r, g, b, _ := second.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
	r, _, _, _ = first.At(1, 0).RGBA()
	assert.NotEqual(t, uint32(0xffff), r)
}

func TestSaveFrames_MaskSizeMismatch(t *testing.T) {
	_, err := SaveFrames(t.TempDir(), "maui", testStack(), inference.Mask{Width: 1, Height: 1, Classes: []int{1}}, &Context{})

	assert.True(t, util.IsKind(err, util.Configuration))
}

func decode(t *testing.T, path string) image.Image {
	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.Nil(t, err)
	return img
}

func TestCompositeFrame_Label(t *testing.T) {
	stack := model.NewStack(20, 80, 6)

	img := CompositeFrame(stack, "2023-06-01")

	lit := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 80; x++ {
			if img.RGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(79, 19))
}

func TestLabelPNG(t *testing.T) {
	var buf bytes.Buffer
	require.Nil(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 100, 30))))

	img, err := LabelPNG(buf.Bytes(), "Landsat-8 (NASA)")

	require.Nil(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	_, err = LabelPNG([]byte("not a png"), "x")
	assert.NotNil(t, err)
}

func TestFFmpegArgs(t *testing.T) {
	expected := map[string][]string{
		"mp4":  {"-framerate", "1", "-stream_loop", "5", "-i", "f_%03d.png", "-c:v", "libx264", "-crf", "0", "-y", "out"},
		"apng": {"-framerate", "3", "-i", "f_%03d.png", "-plays", "0", "-y", "out"},
		"gif":  {"-framerate", "1", "-i", "f_%03d.png", "-y", "out"},
		"webm": {"-framerate", "1", "-f", "image2", "-i", "f_%03d.png", "-c:v", "libvpx-vp9", "-pix_fmt", "yuva420p", "-y", "out"},
	}
	for _, format := range Formats {
		args, err := ffmpegArgs(format, "f_%03d.png", "out")
		assert.Nil(t, err)
		assert.Equal(t, expected[format], args, format)
	}
	_, err := ffmpegArgs("avi", "f_%03d.png", "out")
	assert.True(t, util.IsKind(err, util.Configuration))
}

func TestAnimate(t *testing.T) {
	// Mock
	var calls [][]string
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		return exec.CommandContext(ctx, "true")
	}
	defer func() { execCommand = exec.CommandContext }()
	animator := Animator{FFmpegPath: "/opt/ffmpeg/bin/ffmpeg"}

	// Tested code
	output, err := animator.Animate(context.Background(), "/frames", "maui", "gif")

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, "/frames/maui/maui.gif", output)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/opt/ffmpeg/bin/ffmpeg", "-framerate", "1", "-i", "/frames/maui/maui_%03d.png", "-y", "/frames/maui/maui.gif"}, calls[0])
}

func TestAnimate_Failure(t *testing.T) {
	// Mock
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}
	defer func() { execCommand = exec.CommandContext }()
	animator := Animator{}

	// Tested code
	_, err := animator.Animate(context.Background(), "/frames", "maui", "mp4")

	// Asserts
	assert.True(t, util.IsKind(err, util.ExternalTool))
}
