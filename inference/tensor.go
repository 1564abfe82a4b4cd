package inference

import (
	"encoding/json"
	"fmt"
	"math"
)

// Tensor is a dense row-major n-dimensional array
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
	DType string    `json:"dtype"`
}

type tensorJSON struct {
	Shape []int      `json:"shape"`
	Data  []*float64 `json:"data"`
	DType string     `json:"dtype"`
}

// MarshalJSON writes non-finite values, the nodata marker of a stack, as null
func (t Tensor) MarshalJSON() ([]byte, error) {
	out := tensorJSON{Shape: t.Shape, Data: make([]*float64, len(t.Data)), DType: t.DType}
	for i := range t.Data {
		if !math.IsNaN(t.Data[i]) && !math.IsInf(t.Data[i], 0) {
			out.Data[i] = &t.Data[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null values back as NaN
func (t *Tensor) UnmarshalJSON(data []byte) error {
	var in tensorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.Shape, t.DType = in.Shape, in.DType
	t.Data = make([]float64, len(in.Data))
	for i, v := range in.Data {
		if v == nil {
			t.Data[i] = math.NaN()
			continue
		}
		t.Data[i] = *v
	}
	return nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = acc
		acc *= shape[i]
	}
	return out
}

// Permute returns a tensor with its axes reordered
func (t *Tensor) Permute(order []int) (*Tensor, error) {
	if len(order) != len(t.Shape) {
		return nil, fmt.Errorf("permute order %v does not match %d dimensions", order, len(t.Shape))
	}
	seen := make([]bool, len(order))
	newShape := make([]int, len(order))
	for i, axis := range order {
		if axis < 0 || axis >= len(order) || seen[axis] {
			return nil, fmt.Errorf("invalid permute order %v", order)
		}
		seen[axis] = true
		newShape[i] = t.Shape[axis]
	}

	src := strides(t.Shape)
	out := &Tensor{Shape: newShape, Data: make([]float64, len(t.Data)), DType: t.DType}
	index := make([]int, len(newShape))
	for i := range out.Data {
		offset := 0
		for d, axis := range order {
			offset += index[d] * src[axis]
		}
		out.Data[i] = t.Data[offset]
		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < newShape[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}

// Reshape returns a tensor sharing no data with t and holding the same
// values under a new shape
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	if numel(shape) != len(t.Data) {
		return nil, fmt.Errorf("cannot reshape %v into %v", t.Shape, shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: append([]float64(nil), t.Data...), DType: t.DType}, nil
}

// Cast converts the values to the named type
func (t *Tensor) Cast(dtype string) (*Tensor, error) {
	out := &Tensor{Shape: append([]int(nil), t.Shape...), Data: make([]float64, len(t.Data))}
	switch dtype {
	case "float", "float32", "torch.float", "torch.float32":
		out.DType = "float32"
		for i, v := range t.Data {
			out.Data[i] = float64(float32(v))
		}
	case "double", "float64", "torch.double", "torch.float64":
		out.DType = "float64"
		copy(out.Data, t.Data)
	case "int", "int32", "long", "int64", "torch.int", "torch.long":
		out.DType = "int64"
		for i, v := range t.Data {
			out.Data[i] = math.Trunc(v)
		}
	default:
		return nil, fmt.Errorf("unsupported tensor type %s", dtype)
	}
	return out, nil
}
