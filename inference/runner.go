package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
)

// Context is the context for an inference operation
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

// Mask is a per-pixel class map
type Mask struct {
	Width   int   `json:"width"`
	Height  int   `json:"height"`
	Classes []int `json:"classes"`
}

// At returns the class at column x, row y
func (m Mask) At(x, y int) int {
	return m.Classes[y*m.Width+x]
}

// Batch is the collated model input. Every list holds one entry per sample.
type Batch struct {
	Img        *Tensor                  `json:"img"`
	ImgMetas   []map[string]interface{} `json:"img_metas"`
	Device     string                   `json:"device"`
	Checkpoint string                   `json:"checkpoint"`
}

// Model runs an evaluation-only forward pass
type Model interface {
	Forward(ctx context.Context, batch Batch) ([]Mask, error)
}

// Runner predicts masks with a configured model
type Runner struct {
	Config     *Config
	Checkpoint string
	Model      Model
	Context    *Context
	pipeline   Pipeline
	stages     []Stage
}

// NewRunner loads the model configuration and builds its test pipeline. A
// non-empty bandSpec selects a custom band subset; it is validated before
// anything else.
func NewRunner(ctx context.Context, configPath, checkpoint, bandSpec string, m Model, lc *Context) (*Runner, error) {
	if lc == nil {
		lc = &Context{}
	}
	var bands []int
	if bandSpec != "" {
		var err error
		if bands, err = ParseBandSpec(bandSpec); err != nil {
			util.LogAlert(lc, err.Error())
			return nil, err
		}
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		util.LogAlert(lc, err.Error())
		return nil, err
	}

	b := NewPipelineBuilder(cfg.Data.Test.Pipeline)
	if bands != nil {
		b = b.WithBands(bands)
	}
	pipeline := b.Build()
	stages, err := Compose(pipeline)
	if err != nil {
		util.LogAlert(lc, err.Error())
		return nil, err
	}

	util.LogAudit(lc, util.LogAuditInput{Actor: "inference/NewRunner", Action: "load", Actee: checkpoint, Message: fmt.Sprintf("Loaded %s with %d pipeline stages on %s", cfg.Model.Name, len(stages), cfg.Model.Device), Severity: util.INFO})
	return &Runner{Config: cfg, Checkpoint: checkpoint, Model: m, Context: lc, pipeline: pipeline, stages: stages}, nil
}

// Pipeline returns a copy of the pipeline the runner executes
func (r *Runner) Pipeline() Pipeline {
	return r.pipeline.Clone()
}

// Preprocess runs the pipeline on one H x W x C stack
func (r *Runner) Preprocess(stack model.Stack) (Sample, error) {
	sample := Sample{"img_info": map[string]interface{}{"array": stack}}
	var err error
	for i, stage := range r.stages {
		if sample, err = stage.Apply(sample); err != nil {
			return nil, util.NewError(util.Configuration, "pipeline stage %d (%s): %v", i, r.pipeline[i].Type, err)
		}
	}
	return sample, nil
}

// Predict returns the class mask of one stack
func (r *Runner) Predict(ctx context.Context, stack model.Stack) (Mask, error) {
	sample, err := r.Preprocess(stack)
	if err != nil {
		util.LogAlert(r.Context, err.Error())
		return Mask{}, err
	}
	batch, err := collate(sample)
	if err != nil {
		return Mask{}, util.WrapError(util.Configuration, err)
	}
	batch.Device = r.Config.Model.Device
	batch.Checkpoint = r.Checkpoint

	start := time.Now()
	masks, err := r.Model.Forward(ctx, batch)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		err = util.LogSimpleErr(r.Context, "Model forward pass failed.", err)
		if util.IsKind(err, util.Configuration) {
			return Mask{}, err
		}
		return Mask{}, util.WrapError(util.DataAccess, err)
	}
	if len(masks) != 1 {
		return Mask{}, util.NewError(util.DataAccess, "model returned %d masks for one sample", len(masks))
	}
	mask := masks[0]
	if len(mask.Classes) != mask.Width*mask.Height {
		return Mask{}, util.NewError(util.DataAccess, "model returned a %dx%d mask with %d values", mask.Width, mask.Height, len(mask.Classes))
	}
	if mask.Width != stack.Width || mask.Height != stack.Height {
		return Mask{}, util.NewError(util.DataAccess, "model returned a %dx%d mask for a %dx%d image", mask.Width, mask.Height, stack.Width, stack.Height)
	}
	return mask, nil
}

// collate batches the single sample: the image gains a leading batch axis
func collate(sample Sample) (Batch, error) {
	var img *Tensor
	switch v := sample["img"].(type) {
	case []*Tensor:
		if len(v) != 1 {
			return Batch{}, fmt.Errorf("expected one image, got %d", len(v))
		}
		img = v[0]
	case *Tensor:
		img = v
	default:
		return Batch{}, fmt.Errorf("pipeline produced no image")
	}
	metas, _ := sample["img_metas"].([]map[string]interface{})
	batched := &Tensor{Shape: append([]int{1}, img.Shape...), Data: img.Data, DType: img.DType}
	return Batch{Img: batched, ImgMetas: metas}, nil
}
