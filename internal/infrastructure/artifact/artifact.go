// Package artifact reads and writes the serialized prediction pipeline: the
// training-time transform constants together with the fitted forest.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/forest"
)

const (
	// FormatVersion is the only artifact layout this build understands.
	FormatVersion = 1

	// ModelType is the only classifier family this build can evaluate.
	ModelType = "random_forest"
)

// Document is the on-disk artifact.
type Document struct {
	FormatVersion int          `json:"format_version"`
	ModelType     string       `json:"model_type"`
	CreatedAt     time.Time    `json:"created_at"`
	FeatureNames  []string     `json:"feature_names"`
	Imputation    Imputation   `json:"imputation"`
	Encodings     Encodings    `json:"encodings"`
	Forest        forest.Model `json:"forest"`
	Training      TrainingInfo `json:"training"`
}

// Imputation holds the fill values computed on the training split.
type Imputation struct {
	AgeMean      float64 `json:"age_mean"`
	EmbarkedMode string  `json:"embarked_mode"`
}

// Encodings records the categorical mappings the forest was fitted with.
type Encodings struct {
	Sex      map[string]float64 `json:"sex"`
	Embarked map[string]float64 `json:"embarked"`
}

// TrainingInfo describes how the forest was produced.
type TrainingInfo struct {
	NEstimators int     `json:"n_estimators"`
	MaxDepth    int     `json:"max_depth"`
	RandomState int64   `json:"random_state"`
	TrainRows   int     `json:"train_rows"`
	TestRows    int     `json:"test_rows"`
	Accuracy    float64 `json:"accuracy"`
}

// NewDocument fills in the fixed layout fields around a fitted forest.
func NewDocument(imputation Imputation, model forest.Model, training TrainingInfo) *Document {
	return &Document{
		FormatVersion: FormatVersion,
		ModelType:     ModelType,
		CreatedAt:     time.Now().UTC(),
		FeatureNames:  slices.Clone(service.FeatureNames[:]),
		Imputation:    imputation,
		Encodings: Encodings{
			Sex:      maps.Clone(service.SexEncoding),
			Embarked: maps.Clone(service.EmbarkedEncoding),
		},
		Forest:   model,
		Training: training,
	}
}

// Decode parses and verifies an artifact.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that the artifact matches the layout the transform stage
// produces and that the forest is structurally sound.
func (d *Document) Validate() error {
	if d.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported artifact format_version %d", d.FormatVersion)
	}
	if d.ModelType != ModelType {
		return fmt.Errorf("unsupported model_type %q", d.ModelType)
	}
	if !slices.Equal(d.FeatureNames, service.FeatureNames[:]) {
		return fmt.Errorf("feature layout %v does not match %v", d.FeatureNames, service.FeatureNames)
	}
	if !maps.Equal(d.Encodings.Sex, service.SexEncoding) {
		return fmt.Errorf("sex encoding %v does not match %v", d.Encodings.Sex, service.SexEncoding)
	}
	if !maps.Equal(d.Encodings.Embarked, service.EmbarkedEncoding) {
		return fmt.Errorf("embarked encoding %v does not match %v", d.Encodings.Embarked, service.EmbarkedEncoding)
	}
	if err := d.constants().Validate(); err != nil {
		return fmt.Errorf("invalid imputation: %w", err)
	}
	if err := d.Forest.Validate(service.NumFeatures); err != nil {
		return fmt.Errorf("invalid forest: %w", err)
	}
	return nil
}

func (d *Document) constants() service.TransformConstants {
	return service.TransformConstants{
		AgeMean:      d.Imputation.AgeMean,
		EmbarkedMode: d.Imputation.EmbarkedMode,
	}
}

// Pipeline builds the prediction pipeline described by the artifact.
func (d *Document) Pipeline(version string) (*service.Pipeline, error) {
	transformer, err := service.NewFeatureTransformer(d.constants())
	if err != nil {
		return nil, err
	}
	clf, err := forest.NewClassifier(&d.Forest)
	if err != nil {
		return nil, err
	}
	return service.NewPipeline(transformer, clf, version), nil
}

// Version derives a stable identifier from the model type and file digest.
func Version(data []byte) string {
	sum := sha256.Sum256(data)
	return ModelType + "@" + hex.EncodeToString(sum[:])[:12]
}

// Load reads the artifact at path and builds its pipeline. This is the only
// way the serving path obtains a model.
func Load(path string) (*service.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", path, err)
	}
	p, err := doc.Pipeline(Version(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline from %s: %w", path, err)
	}
	return p, nil
}

// Save validates and writes the artifact atomically, creating parent
// directories as needed.
func Save(path string, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}
