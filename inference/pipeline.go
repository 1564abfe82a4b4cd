package inference

import (
	"strings"

	"github.com/Vizzuality/HLS-data-project/util"
)

// MetaKeys are the metadata keys carried through the pipeline whenever a
// custom band subset is used
var MetaKeys = []string{
	"img_info",
	"img",
	"img_shape",
	"ori_shape",
	"pad_shape",
	"scale_factor",
	"img_norm_cfg",
}

// Pipeline is an ordered list of declared stages
type Pipeline []StageConfig

// Clone returns a deep copy of the pipeline
func (p Pipeline) Clone() Pipeline {
	out := make(Pipeline, len(p))
	for i, s := range p {
		out[i] = s.Clone()
	}
	return out
}

// Index returns the position of the first stage accepted by match, or -1
func (p Pipeline) Index(match func(StageConfig) bool) int {
	for i, s := range p {
		if match(s) {
			return i
		}
	}
	return -1
}

// PipelineBuilder derives a new pipeline from a declared one. The declared
// pipeline is never modified.
type PipelineBuilder struct {
	base  Pipeline
	bands []int
}

// NewPipelineBuilder starts from the declared pipeline
func NewPipelineBuilder(base Pipeline) *PipelineBuilder {
	return &PipelineBuilder{base: base}
}

// WithBands selects a custom band subset
func (b *PipelineBuilder) WithBands(bands []int) *PipelineBuilder {
	return &PipelineBuilder{base: b.base, bands: append([]int(nil), bands...)}
}

// Build returns the derived pipeline. With a band subset, the first
// BandsExtract stage receives the bands and the first Collect stage the
// MetaKeys.
func (b *PipelineBuilder) Build() Pipeline {
	out := b.base.Clone()
	if b.bands == nil {
		return out
	}
	if i := out.Index(func(s StageConfig) bool { return s.Type == "BandsExtract" }); i >= 0 {
		out[i].Params["bands"] = append([]int(nil), b.bands...)
	}
	if i := out.Index(func(s StageConfig) bool { return strings.Contains(s.Type, "Collect") }); i >= 0 {
		out[i].Params["meta_keys"] = append([]string(nil), MetaKeys...)
	}
	return out
}

// Compose turns a declared pipeline into runnable stages. An unknown stage
// type or invalid parameters are configuration errors.
func Compose(p Pipeline) ([]Stage, error) {
	stages := make([]Stage, len(p))
	for i, declared := range p {
		factory, ok := stageFactories[declared.Type]
		if !ok {
			return nil, util.NewError(util.Configuration, "pipeline stage %d: unknown type %s", i, declared.Type)
		}
		stage, err := factory(declared.Params)
		if err != nil {
			return nil, util.NewError(util.Configuration, "pipeline stage %d (%s): %v", i, declared.Type, err)
		}
		stages[i] = stage
	}
	return stages, nil
}
