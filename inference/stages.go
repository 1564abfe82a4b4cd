package inference

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Vizzuality/HLS-data-project/model"
)

// Sample is the record passed from stage to stage, keyed like the
// preprocessing results of the model toolkit ("img_info", "img", ...)
type Sample map[string]interface{}

// Stage is a compiled pipeline stage
type Stage interface {
	Apply(sample Sample) (Sample, error)
}

type stageFactory func(params map[string]interface{}) (Stage, error)

var stageFactories = map[string]stageFactory{
	"LoadGeospatialImageFromArray": newLoadFromArray,
	"BandsExtract":                 newBandsExtract,
	"ToTensor":                     newToTensor,
	"TorchPermute":                 newTorchPermute,
	"TorchNormalize":               newTorchNormalize,
	"Reshape":                      newReshape,
	"CastTensor":                   newCastTensor,
	"CollectTestList":              newCollectTestList,
}

// Parameter helpers

func paramInts(params map[string]interface{}, key string) ([]int, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []int:
		return append([]int(nil), v...), true, nil
	case []interface{}:
		out := make([]int, len(v))
		for i, e := range v {
			n, err := toInt(e)
			if err != nil {
				return nil, true, fmt.Errorf("%s[%d]: %v", key, i, err)
			}
			out[i] = n
		}
		return out, true, nil
	}
	return nil, true, fmt.Errorf("%s must be a list of integers", key)
}

func paramFloats(params map[string]interface{}, key string) ([]float64, error) {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a list of numbers", key)
	}
	out := make([]float64, len(raw))
	for i, e := range raw {
		f, err := toFloat(e)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %v", key, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func paramStrings(params map[string]interface{}, key string, fallback []string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a list of strings", key)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("%v is not an integer", v)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("%v is not a number", v)
}

func tensorAt(sample Sample, key string) (*Tensor, error) {
	t, ok := sample[key].(*Tensor)
	if !ok {
		return nil, fmt.Errorf("sample has no tensor %q", key)
	}
	return t, nil
}

// LoadGeospatialImageFromArray

type loadFromArray struct {
	toFloat32     bool
	nodata        *float64
	nodataReplace float64
}

func newLoadFromArray(params map[string]interface{}) (Stage, error) {
	s := &loadFromArray{}
	if v, ok := params["to_float32"].(bool); ok {
		s.toFloat32 = v
	}
	if raw, ok := params["nodata"]; ok && raw != nil {
		f, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("nodata: %v", err)
		}
		s.nodata = &f
	}
	if raw, ok := params["nodata_replace"]; ok {
		f, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("nodata_replace: %v", err)
		}
		s.nodataReplace = f
	}
	return s, nil
}

// Apply loads img_info.array (an H x W x C stack) as the image. With nodata
// set, values equal to it and NaN are replaced.
func (s *loadFromArray) Apply(sample Sample) (Sample, error) {
	info, ok := sample["img_info"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("sample has no img_info")
	}
	stack, ok := info["array"].(model.Stack)
	if !ok {
		return nil, fmt.Errorf("img_info has no array")
	}
	img := &Tensor{Shape: []int{stack.Height, stack.Width, stack.Channels}, Data: append([]float64(nil), stack.Values...), DType: "float64"}
	if s.nodata != nil {
		for i, v := range img.Data {
			if v == *s.nodata || math.IsNaN(v) {
				img.Data[i] = s.nodataReplace
			}
		}
	}
	if s.toFloat32 {
		img, _ = img.Cast("float32")
	}

	shape := []int{stack.Height, stack.Width, stack.Channels}
	sample["img"] = img
	sample["filename"] = ""
	sample["ori_filename"] = ""
	sample["img_shape"] = shape
	sample["ori_shape"] = append([]int(nil), shape...)
	sample["pad_shape"] = append([]int(nil), shape...)
	sample["scale_factor"] = 1.0
	sample["flip"] = false
	sample["img_norm_cfg"] = map[string]interface{}{
		"mean":   make([]float64, stack.Channels),
		"std":    ones(stack.Channels),
		"to_rgb": false,
	}
	return sample, nil
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// BandsExtract

type bandsExtract struct {
	bands []int
}

func newBandsExtract(params map[string]interface{}) (Stage, error) {
	bands, ok, err := paramInts(params, "bands")
	if err != nil {
		return nil, err
	}
	if !ok || len(bands) == 0 {
		return nil, fmt.Errorf("bands is required")
	}
	for _, b := range bands {
		if b < 0 {
			return nil, fmt.Errorf("band %d is negative", b)
		}
	}
	return &bandsExtract{bands: bands}, nil
}

// Bands returns the channel indices the stage keeps
func (s *bandsExtract) Bands() []int {
	return append([]int(nil), s.bands...)
}

// Apply keeps the selected channels of the channel-last image
func (s *bandsExtract) Apply(sample Sample) (Sample, error) {
	img, err := tensorAt(sample, "img")
	if err != nil {
		return nil, err
	}
	if len(img.Shape) == 0 {
		return nil, fmt.Errorf("image has no channel axis")
	}
	channels := img.Shape[len(img.Shape)-1]
	for _, b := range s.bands {
		if b >= channels {
			return nil, fmt.Errorf("band %d out of range for %d channels", b, channels)
		}
	}

	pixels := len(img.Data) / channels
	out := &Tensor{Shape: append([]int(nil), img.Shape...), Data: make([]float64, 0, pixels*len(s.bands)), DType: img.DType}
	out.Shape[len(out.Shape)-1] = len(s.bands)
	for p := 0; p < pixels; p++ {
		for _, b := range s.bands {
			out.Data = append(out.Data, img.Data[p*channels+b])
		}
	}
	sample["img"] = out
	return sample, nil
}

// ToTensor

type toTensor struct {
	keys []string
}

func newToTensor(params map[string]interface{}) (Stage, error) {
	keys, err := paramStrings(params, "keys", []string{"img"})
	if err != nil {
		return nil, err
	}
	return &toTensor{keys: keys}, nil
}

// Apply checks that every key already holds a tensor
func (s *toTensor) Apply(sample Sample) (Sample, error) {
	for _, k := range s.keys {
		if _, err := tensorAt(sample, k); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// TorchPermute

type torchPermute struct {
	keys  []string
	order []int
}

func newTorchPermute(params map[string]interface{}) (Stage, error) {
	keys, err := paramStrings(params, "keys", []string{"img"})
	if err != nil {
		return nil, err
	}
	order, ok, err := paramInts(params, "order")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order is required")
	}
	return &torchPermute{keys: keys, order: order}, nil
}

func (s *torchPermute) Apply(sample Sample) (Sample, error) {
	for _, k := range s.keys {
		t, err := tensorAt(sample, k)
		if err != nil {
			return nil, err
		}
		if sample[k], err = t.Permute(s.order); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// TorchNormalize

type torchNormalize struct {
	means []float64
	stds  []float64
}

func newTorchNormalize(params map[string]interface{}) (Stage, error) {
	means, err := paramFloats(params, "means")
	if err != nil {
		return nil, err
	}
	stds, err := paramFloats(params, "stds")
	if err != nil {
		return nil, err
	}
	if len(means) != len(stds) {
		return nil, fmt.Errorf("%d means for %d stds", len(means), len(stds))
	}
	for i, sd := range stds {
		if sd == 0 {
			return nil, fmt.Errorf("stds[%d] is zero", i)
		}
	}
	return &torchNormalize{means: means, stds: stds}, nil
}

// Apply normalizes each channel of a channel-first (..., C, H, W) image
func (s *torchNormalize) Apply(sample Sample) (Sample, error) {
	img, err := tensorAt(sample, "img")
	if err != nil {
		return nil, err
	}
	if len(img.Shape) < 3 {
		return nil, fmt.Errorf("normalize needs a C x H x W image, got %v", img.Shape)
	}
	axis := len(img.Shape) - 3
	channels := img.Shape[axis]
	if channels != len(s.means) {
		return nil, fmt.Errorf("%d channels for %d means", channels, len(s.means))
	}
	plane := img.Shape[axis+1] * img.Shape[axis+2]
	out := &Tensor{Shape: append([]int(nil), img.Shape...), Data: make([]float64, len(img.Data)), DType: img.DType}
	for i, v := range img.Data {
		c := (i / plane) % channels
		out.Data[i] = (v - s.means[c]) / s.stds[c]
	}
	sample["img"] = out
	return sample, nil
}

// Reshape

type reshape struct {
	keys     []string
	newShape []int
	lookUp   map[int]int
}

func newReshape(params map[string]interface{}) (Stage, error) {
	keys, err := paramStrings(params, "keys", []string{"img"})
	if err != nil {
		return nil, err
	}
	shape, ok, err := paramInts(params, "new_shape")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("new_shape is required")
	}
	lookUp := map[int]int{}
	switch raw := params["look_up"].(type) {
	case nil:
	case map[string]interface{}:
		for k, v := range raw {
			if err := addLookUp(lookUp, k, v, len(shape)); err != nil {
				return nil, err
			}
		}
	case map[interface{}]interface{}:
		for k, v := range raw {
			if err := addLookUp(lookUp, k, v, len(shape)); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("look_up must be a mapping")
	}
	return &reshape{keys: keys, newShape: shape, lookUp: lookUp}, nil
}

func addLookUp(lookUp map[int]int, key, value interface{}, dims int) error {
	dst, err := toInt(key)
	if err != nil {
		return fmt.Errorf("look_up key: %v", err)
	}
	src, err := toInt(value)
	if err != nil {
		return fmt.Errorf("look_up value: %v", err)
	}
	if dst < 0 || dst >= dims {
		return fmt.Errorf("look_up key %d outside new_shape", dst)
	}
	lookUp[dst] = src
	return nil
}

// Apply reshapes to new_shape, where look_up copies dimension sizes of the
// current tensor into the given positions
func (s *reshape) Apply(sample Sample) (Sample, error) {
	for _, k := range s.keys {
		t, err := tensorAt(sample, k)
		if err != nil {
			return nil, err
		}
		shape := append([]int(nil), s.newShape...)
		for dst, src := range s.lookUp {
			if src < 0 || src >= len(t.Shape) {
				return nil, fmt.Errorf("look_up refers to dimension %d of %v", src, t.Shape)
			}
			shape[dst] = t.Shape[src]
		}
		if sample[k], err = t.Reshape(shape); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// CastTensor

type castTensor struct {
	keys    []string
	newType string
}

func newCastTensor(params map[string]interface{}) (Stage, error) {
	keys, err := paramStrings(params, "keys", []string{"img"})
	if err != nil {
		return nil, err
	}
	newType, _ := params["new_type"].(string)
	if _, err := (&Tensor{}).Cast(newType); err != nil {
		return nil, err
	}
	return &castTensor{keys: keys, newType: newType}, nil
}

func (s *castTensor) Apply(sample Sample) (Sample, error) {
	for _, k := range s.keys {
		t, err := tensorAt(sample, k)
		if err != nil {
			return nil, err
		}
		if sample[k], err = t.Cast(s.newType); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// CollectTestList

var defaultMetaKeys = []string{"filename", "ori_filename", "ori_shape", "img_shape", "pad_shape", "scale_factor", "flip", "img_norm_cfg"}

type collectTestList struct {
	keys     []string
	metaKeys []string
}

func newCollectTestList(params map[string]interface{}) (Stage, error) {
	keys, err := paramStrings(params, "keys", []string{"img"})
	if err != nil {
		return nil, err
	}
	metaKeys, err := paramStrings(params, "meta_keys", defaultMetaKeys)
	if err != nil {
		return nil, err
	}
	return &collectTestList{keys: keys, metaKeys: metaKeys}, nil
}

// Apply keeps only the collected keys, each wrapped in a one-element list,
// plus img_metas built from the meta keys present in the sample
func (s *collectTestList) Apply(sample Sample) (Sample, error) {
	meta := make(map[string]interface{}, len(s.metaKeys))
	for _, k := range s.metaKeys {
		if v, ok := sample[k]; ok {
			meta[k] = v
		}
	}
	out := Sample{"img_metas": []map[string]interface{}{meta}}
	for _, k := range s.keys {
		t, err := tensorAt(sample, k)
		if err != nil {
			return nil, err
		}
		out[k] = []*Tensor{t}
	}
	return out, nil
}
