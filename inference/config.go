package inference

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vizzuality/HLS-data-project/util"
	"gopkg.in/yaml.v3"
)

// Config is a segmentation model configuration
type Config struct {
	Model ModelConfig `yaml:"model"`
	Data  DataConfig  `yaml:"data"`
}

// ModelConfig names the model and where it runs
type ModelConfig struct {
	Name       string `yaml:"name"`
	Device     string `yaml:"device"`
	NumClasses int    `yaml:"num_classes"`
}

// DataConfig holds the preprocessing of each split. Only test is used.
type DataConfig struct {
	Test SplitConfig `yaml:"test"`
}

// SplitConfig is the declared pipeline of a split
type SplitConfig struct {
	Pipeline Pipeline `yaml:"pipeline"`
}

// StageConfig is one declared pipeline stage: its type and parameters
type StageConfig struct {
	Type   string
	Params map[string]interface{}
}

// UnmarshalYAML reads a stage mapping, taking "type" out of the parameters
func (s *StageConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	stageType, ok := raw["type"].(string)
	if !ok || stageType == "" {
		return fmt.Errorf("line %d: pipeline stage has no type", value.Line)
	}
	delete(raw, "type")
	s.Type = stageType
	s.Params = raw
	return nil
}

// MarshalYAML writes the stage back as a single mapping
func (s StageConfig) MarshalYAML() (interface{}, error) {
	out := make(map[string]interface{}, len(s.Params)+1)
	for k, v := range s.Params {
		out[k] = v
	}
	out["type"] = s.Type
	return out, nil
}

// Clone returns a deep copy of the stage
func (s StageConfig) Clone() StageConfig {
	params := make(map[string]interface{}, len(s.Params))
	for k, v := range s.Params {
		params[k] = cloneValue(v)
	}
	return StageConfig{Type: s.Type, Params: params}
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []int:
		return append([]int(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[interface{}]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// LoadConfig reads a YAML model configuration
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, util.NewError(util.Configuration, "model config: %v", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, util.NewError(util.Configuration, "model config %s: %v", path, err)
	}
	if len(cfg.Data.Test.Pipeline) == 0 {
		return nil, util.NewError(util.Configuration, "model config %s declares no test pipeline", path)
	}
	if cfg.Model.Device == "" {
		cfg.Model.Device = "cpu"
	}
	return &cfg, nil
}
