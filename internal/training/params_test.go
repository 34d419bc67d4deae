package training_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/training"
)

const paramsYAML = `
external_data_config:
  external_data_csv: testdata/train.csv
model_config:
  model_dir: models
  model_name: titanic_pipeline.json
  n_estimators: 25
  max_depth: 5
  random_state: 42
preprocessing_config:
  train_test_split_ratio: 0.2
  random_state: 42
tuning_config:
  n_estimators: [5, 10]
  max_depth: [3, 5]
`

func writeParams(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadParams(t *testing.T) {
	p, err := training.ReadParams(writeParams(t, paramsYAML))
	require.NoError(t, err)

	assert.Equal(t, "testdata/train.csv", p.ExternalData.CSV)
	assert.Equal(t, 25, p.Model.NEstimators)
	assert.Equal(t, 5, p.Model.MaxDepth)
	assert.Equal(t, int64(42), p.Model.RandomState)
	assert.Equal(t, 0.2, p.Preprocessing.TestRatio)
	assert.Equal(t, []int{5, 10}, p.Tuning.NEstimators)
	assert.Equal(t, []int{3, 5}, p.Tuning.MaxDepth)
	assert.Equal(t, filepath.Join("models", "titanic_pipeline.json"), p.ModelPath())
}

func TestReadParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "model_config: [unclosed"},
		{"missing csv", "model_config: {model_dir: m, model_name: x, n_estimators: 1}\npreprocessing_config: {train_test_split_ratio: 0.2}"},
		{"zero estimators", "external_data_config: {external_data_csv: a.csv}\nmodel_config: {model_dir: m, model_name: x}\npreprocessing_config: {train_test_split_ratio: 0.2}"},
		{"ratio out of range", "external_data_config: {external_data_csv: a.csv}\nmodel_config: {model_dir: m, model_name: x, n_estimators: 1}\npreprocessing_config: {train_test_split_ratio: 1.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := training.ReadParams(writeParams(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestReadParams_MissingFile(t *testing.T) {
	_, err := training.ReadParams(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
