package service

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
	ModelLinear           = "linear"
)

// Artifact: обученная модель в том виде, в каком её выгружает тренер.
type Artifact struct {
	Version        string    `json:"version"`
	ModelType      string    `json:"model_type"`
	TrainedAt      time.Time `json:"trained_at"`
	FeatureColumns []string  `json:"feature_columns"`
	Scaler         Scaler    `json:"scaler"`
	Model          Params    `json:"model"`
}

// Scaler: параметры StandardScaler, по одному значению на колонку.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type Params struct {
	Trees        []TreeParams `json:"trees,omitempty"`
	Init         float64      `json:"init,omitempty"`
	LearningRate float64      `json:"learning_rate,omitempty"`
	Coef         []float64    `json:"coef,omitempty"`
	Intercept    float64      `json:"intercept,omitempty"`
}

type TreeParams struct {
	Nodes []Node `json:"nodes"`
}

// Node: узел дерева в плоской раскладке, лист при Left < 0.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact")
	}
	a, err := DecodeArtifact(data)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", path)
	}
	return a, nil
}

func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := sonic.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "decode artifact")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate проверяет согласованность размеров, чтобы инференс не ходил за границы.
func (a *Artifact) Validate() error {
	n := len(a.FeatureColumns)
	if n == 0 {
		return errors.New("artifact has no feature columns")
	}
	if len(a.Scaler.Mean) != 0 || len(a.Scaler.Scale) != 0 {
		if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
			return fmt.Errorf("scaler size %d/%d does not match %d features",
				len(a.Scaler.Mean), len(a.Scaler.Scale), n)
		}
	}

	switch a.ModelType {
	case ModelRandomForest, ModelGradientBoosting:
		if len(a.Model.Trees) == 0 {
			return fmt.Errorf("%s artifact has no trees", a.ModelType)
		}
		for i, t := range a.Model.Trees {
			if err := t.validate(n); err != nil {
				return errors.Wrapf(err, "tree %d", i)
			}
		}
	case ModelLinear:
		if len(a.Model.Coef) != n {
			return fmt.Errorf("linear artifact has %d coefficients for %d features", len(a.Model.Coef), n)
		}
	default:
		return fmt.Errorf("unknown model type %q", a.ModelType)
	}
	return nil
}

func (t TreeParams) validate(features int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, nd := range t.Nodes {
		if nd.Left < 0 {
			continue
		}
		if nd.Left >= len(t.Nodes) || nd.Right < 0 || nd.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d children out of range", i)
		}
		if nd.Left <= i || nd.Right <= i {
			return fmt.Errorf("node %d points backwards", i)
		}
		if nd.Feature < 0 || nd.Feature >= features {
			return fmt.Errorf("node %d feature %d out of range", i, nd.Feature)
		}
	}
	return nil
}

// Transform применяет scaler; нулевой scale считается единичным.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i >= len(s.Mean) {
			out[i] = v
			continue
		}
		sc := s.Scale[i]
		if sc == 0 {
			sc = 1
		}
		out[i] = (v - s.Mean[i]) / sc
	}
	return out
}
