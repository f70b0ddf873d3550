package service

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/models"
	features "futures_bot/internal/modules/features/service"
)

func trendBars(n int) []models.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = models.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.5, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000 + float64(i%5)*10,
		}
	}
	return out
}

func stump(feature int, threshold, left, right float64) TreeParams {
	return TreeParams{Nodes: []Node{
		{Feature: feature, Threshold: threshold, Left: 1, Right: 2},
		{Left: -1, Right: -1, Value: left},
		{Left: -1, Right: -1, Value: right},
	}}
}

func identityScaler(n int) Scaler {
	s := Scaler{Mean: make([]float64, n), Scale: make([]float64, n)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// лес из трёх пней по rsi_14: на растущем рынке все уходят вправо
func forestArtifact() *Artifact {
	cols := append([]string(nil), features.FeatureNames...)
	rsi := indexOf(cols, "rsi_14")
	return &Artifact{
		Version:        "1",
		ModelType:      ModelRandomForest,
		FeatureColumns: cols,
		Scaler:         identityScaler(len(cols)),
		Model: Params{Trees: []TreeParams{
			stump(rsi, 50, -0.02, 0.02),
			stump(rsi, 50, -0.02, 0.03),
			stump(rsi, 50, -0.02, 0.025),
		}},
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Confidence(nil))
	assert.InDelta(t, 1.0, Confidence([]float64{1, 1, 1}), 1e-12)
	assert.InDelta(t, 0.5, Confidence([]float64{1, 3}), 1e-12)
	assert.Equal(t, 0.5, Confidence([]float64{-1, 1}))
	assert.InDelta(t, 0.1, Confidence([]float64{1, -10}), 1e-12)
}

func TestModels(t *testing.T) {
	x := []float64{0.5, -2}

	tree := Tree{nodes: stump(1, 0, 10, 20).Nodes}
	assert.Equal(t, 10.0, tree.Predict(x))
	assert.Equal(t, 10.0, tree.Predict([]float64{0, 0}), "x <= threshold goes left")

	forest := Forest{trees: []Tree{tree, {nodes: stump(0, 1, 30, 40).Nodes}}}
	assert.Equal(t, 20.0, forest.Predict(x))
	assert.Equal(t, []float64{10, 30}, forest.Members(x))

	boost := Boosting{init: 1, rate: 0.5, trees: []Tree{tree, tree}}
	assert.Equal(t, 11.0, boost.Predict(x))

	lin := Linear{coef: []float64{2, 1}, intercept: 0.25}
	assert.Equal(t, -0.75, lin.Predict(x))
}

func TestAdapter_Forest(t *testing.T) {
	ad, err := NewAdapter("BTC-USDT-SWAP", forestArtifact())
	require.NoError(t, err)

	p := ad.Predict(trendBars(60))
	assert.InDelta(t, 0.025, p.Value, 1e-12)
	assert.InDelta(t, 1-math.Sqrt(0.00005/3)/0.025, p.Confidence, 1e-9)
}

func TestAdapter_NonEnsembleConfidence(t *testing.T) {
	a := forestArtifact()
	a.ModelType = ModelGradientBoosting
	a.Model.Init = 0.001
	a.Model.LearningRate = 0.1
	ad, err := NewAdapter("ETH-USDT-SWAP", a)
	require.NoError(t, err)

	p := ad.Predict(trendBars(60))
	assert.InDelta(t, 0.001+0.1*0.075, p.Value, 1e-12)
	assert.Equal(t, 0.5, p.Confidence)
}

func TestAdapter_MissingFeatures(t *testing.T) {
	ad, err := NewAdapter("BTC-USDT-SWAP", forestArtifact())
	require.NoError(t, err)

	vec, err := features.Build(trendBars(60))
	require.NoError(t, err)
	reduced := vec.Without(features.FeatureNames[:10]...)
	require.Equal(t, 24, reduced.Len())

	p := ad.PredictVector(reduced)
	assert.False(t, math.IsNaN(p.Value))
	assert.InDelta(t, 0.025, p.Value, 1e-12)
	assert.GreaterOrEqual(t, p.Confidence, 0.1)
	assert.LessOrEqual(t, p.Confidence, 1.0)
}

func TestAdapter_UnknownColumnsImputed(t *testing.T) {
	a := forestArtifact()
	for i := 0; i < 10; i++ {
		a.FeatureColumns[i] = "sentiment_" + string(rune('a'+i))
	}
	a.Scaler.Mean[0] = 5
	ad, err := NewAdapter("BTC-USDT-SWAP", a)
	require.NoError(t, err)

	p := ad.Predict(trendBars(60))
	assert.InDelta(t, 0.025, p.Value, 1e-12)
}

func TestAdapter_NoOverlapIsNeutral(t *testing.T) {
	ad, err := NewAdapter("BTC-USDT-SWAP", &Artifact{
		ModelType:      ModelLinear,
		FeatureColumns: []string{"foo", "bar"},
		Model:          Params{Coef: []float64{1, 1}, Intercept: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Prediction{}, ad.Predict(trendBars(60)))
}

func TestAdapter_ShortWindowIsNeutral(t *testing.T) {
	ad, err := NewAdapter("BTC-USDT-SWAP", forestArtifact())
	require.NoError(t, err)
	assert.Equal(t, models.Prediction{}, ad.Predict(trendBars(30)))
}

func TestAdapter_PanicIsNeutral(t *testing.T) {
	// дерево ссылается на колонку за пределами вектора, Validate обойдён
	ad := &Adapter{
		instrument: "BTC-USDT-SWAP",
		artifact:   &Artifact{ModelType: ModelRandomForest, FeatureColumns: []string{"rsi_14"}},
		model:      Forest{trees: []Tree{{nodes: stump(7, 0, 1, 2).Nodes}}},
	}
	assert.Equal(t, models.Prediction{}, ad.Predict(trendBars(60)))
}

func TestDecodeArtifact_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown type":    `{"model_type":"svm","feature_columns":["a"]}`,
		"no columns":      `{"model_type":"linear","model":{"coef":[]}}`,
		"scaler mismatch": `{"model_type":"linear","feature_columns":["a","b"],"scaler":{"mean":[0],"scale":[1]},"model":{"coef":[1,1]}}`,
		"coef mismatch":   `{"model_type":"linear","feature_columns":["a","b"],"model":{"coef":[1]}}`,
		"bad child":       `{"model_type":"random_forest","feature_columns":["a"],"model":{"trees":[{"nodes":[{"feature":0,"left":1,"right":5}]}]}}`,
		"bad feature":     `{"model_type":"random_forest","feature_columns":["a"],"model":{"trees":[{"nodes":[{"feature":3,"left":1,"right":2},{"left":-1},{"left":-1}]}]}}`,
		"not json":        `{`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeArtifact([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestScaler_ZeroScale(t *testing.T) {
	s := Scaler{Mean: []float64{1, 2}, Scale: []float64{0, 2}}
	assert.Equal(t, []float64{4, 1}, s.Transform([]float64{5, 4}))
}

func TestModelSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ModelSymbol("BTC-USDT-SWAP"))
	assert.Equal(t, "ETHUSDT", ModelSymbol("eth-usdt"))
	assert.Equal(t, filepath.Join("models", "SOLUSDT_gradient_boosting.json"),
		ArtifactPath("models", "SOL-USDT-SWAP", ModelGradientBoosting))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	data, err := sonic.Marshal(forestArtifact())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ArtifactPath(dir, "BTC-USDT-SWAP", ModelRandomForest), data, 0o644))
	require.NoError(t, os.WriteFile(ArtifactPath(dir, "ADA-USDT-SWAP", ModelRandomForest), []byte("{"), 0o644))

	reg := LoadDir(dir, ModelRandomForest, []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP", "ADA-USDT-SWAP"})
	assert.Equal(t, 1, reg.Loaded())
	assert.IsType(t, &Adapter{}, reg.For("BTC-USDT-SWAP"))
	assert.IsType(t, Neutral{}, reg.For("ETH-USDT-SWAP"))
	assert.IsType(t, Neutral{}, reg.For("ADA-USDT-SWAP"))

	p := reg.For("BTC-USDT-SWAP").Predict(trendBars(60))
	assert.InDelta(t, 0.025, p.Value, 1e-12)
}
