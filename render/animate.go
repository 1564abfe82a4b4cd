package render

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/util"
)

// Formats lists the animation formats Animate can encode
var Formats = []string{"mp4", "apng", "gif", "webm"}

var execCommand = exec.CommandContext

// ffmpegArgs returns the encoder arguments for a frame pattern and output
func ffmpegArgs(format, frames, output string) ([]string, error) {
	switch format {
	case "mp4":
		return []string{"-framerate", "1", "-stream_loop", "5", "-i", frames, "-c:v", "libx264", "-crf", "0", "-y", output}, nil
	case "apng":
		return []string{"-framerate", "3", "-i", frames, "-plays", "0", "-y", output}, nil
	case "gif":
		return []string{"-framerate", "1", "-i", frames, "-y", output}, nil
	case "webm":
		return []string{"-framerate", "1", "-f", "image2", "-i", frames, "-c:v", "libvpx-vp9", "-pix_fmt", "yuva420p", "-y", output}, nil
	}
	return nil, util.NewError(util.Configuration, "unknown animation format %q, expected one of %s", format, strings.Join(Formats, ", "))
}

// Animator encodes a region's frames with ffmpeg
type Animator struct {
	FFmpegPath string
	Context    *Context
}

// Animate encodes dir/region/region_%03d.png into dir/region/region.<format>
// and returns the output path. A non-zero ffmpeg exit is an ExternalTool error.
func (a *Animator) Animate(ctx context.Context, dir, region, format string) (string, error) {
	lc := a.Context
	if lc == nil {
		lc = &Context{}
	}
	regionDir := filepath.Join(dir, region)
	frames := filepath.Join(regionDir, region+"_%03d.png")
	output := filepath.Join(regionDir, region+"."+format)
	args, err := ffmpegArgs(format, frames, output)
	if err != nil {
		return "", err
	}

	ffmpeg := a.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	util.LogAudit(lc, util.LogAuditInput{Actor: "render/Animate", Action: "exec", Actee: ffmpeg, Message: "Processing: " + ffmpeg + " " + strings.Join(args, " "), Severity: util.INFO})
	cmd := execCommand(ctx, ffmpeg, args...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		metrics.Animations.WithLabelValues(format, "failed").Inc()
		err = util.LogSimpleErr(lc, fmt.Sprintf("Task failed: ffmpeg could not encode %s.\n%s", output, string(combined)), err)
		return "", util.WrapError(util.ExternalTool, err)
	}
	metrics.Animations.WithLabelValues(format, "created").Inc()
	util.LogInfo(lc, "Task created: "+output)
	return output, nil
}
