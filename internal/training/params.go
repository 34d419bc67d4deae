// Package training fits the random-forest pipeline offline and writes the
// serving artifact.
package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Params mirrors params.yaml.
type Params struct {
	ExternalData  ExternalDataConfig  `yaml:"external_data_config"`
	Model         ModelConfig         `yaml:"model_config"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing_config"`
	Tuning        TuningConfig        `yaml:"tuning_config"`
}

// ExternalDataConfig locates the labelled dataset.
type ExternalDataConfig struct {
	CSV string `yaml:"external_data_csv"`
}

// ModelConfig holds forest hyperparameters and the output location.
type ModelConfig struct {
	Dir         string `yaml:"model_dir"`
	Name        string `yaml:"model_name"`
	NEstimators int    `yaml:"n_estimators"`
	// MaxDepth of zero grows trees until leaves are pure.
	MaxDepth    int   `yaml:"max_depth"`
	RandomState int64 `yaml:"random_state"`
}

// PreprocessingConfig controls the train/test split.
type PreprocessingConfig struct {
	TestRatio   float64 `yaml:"train_test_split_ratio"`
	RandomState int64   `yaml:"random_state"`
}

// TuningConfig is the hyperparameter grid searched by Tune.
type TuningConfig struct {
	NEstimators []int `yaml:"n_estimators"`
	MaxDepth    []int `yaml:"max_depth"`
}

// ReadParams loads and validates a params file.
func ReadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params: %w", err)
	}
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse params %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the fields needed for training.
func (p *Params) Validate() error {
	var errs []error
	if p.ExternalData.CSV == "" {
		errs = append(errs, errors.New("external_data_config.external_data_csv is required"))
	}
	if p.Model.Dir == "" || p.Model.Name == "" {
		errs = append(errs, errors.New("model_config.model_dir and model_name are required"))
	}
	if p.Model.NEstimators < 1 {
		errs = append(errs, fmt.Errorf("model_config.n_estimators must be positive, got %d", p.Model.NEstimators))
	}
	if p.Model.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("model_config.max_depth must be non-negative, got %d", p.Model.MaxDepth))
	}
	if p.Preprocessing.TestRatio <= 0 || p.Preprocessing.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("preprocessing_config.train_test_split_ratio must be in (0, 1), got %v", p.Preprocessing.TestRatio))
	}
	return errors.Join(errs...)
}

// ModelPath is the artifact output path.
func (p *Params) ModelPath() string {
	return filepath.Join(p.Model.Dir, p.Model.Name)
}
