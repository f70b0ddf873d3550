package service

import (
	"errors"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"futures_bot/internal/models"
	features "futures_bot/internal/modules/features/service"
	"futures_bot/pkg/logger"
)

const (
	defaultConfidence = 0.5
	minConfidence     = 0.1
	maxConfidence     = 1.0
)

// Predictor: контракт предсказателя для одного инструмента.
type Predictor interface {
	Predict(bars []models.Bar) models.Prediction
}

// Neutral используется, когда артефакта нет: торгуем только по техническим сигналам.
type Neutral struct{}

func (Neutral) Predict([]models.Bar) models.Prediction { return models.Prediction{} }

// Adapter оборачивает загруженный артефакт. Артефакт не изменяется после загрузки.
type Adapter struct {
	instrument string
	artifact   *Artifact
	model      Model
}

func NewAdapter(instrument string, a *Artifact) (*Adapter, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, err
	}
	return &Adapter{instrument: instrument, artifact: a, model: m}, nil
}

func (a *Adapter) Artifact() *Artifact { return a.artifact }

// Predict пересчитывает признаки по окну и делает инференс по последнему бару.
func (a *Adapter) Predict(bars []models.Bar) models.Prediction {
	vec, err := features.Build(bars)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientData) {
			logger.Debug("[PREDICT] %s: not enough bars for features (%d)", a.instrument, len(bars))
		} else {
			logger.Warn("[PREDICT] %s: features: %v", a.instrument, err)
		}
		return models.Prediction{}
	}
	return a.PredictVector(vec)
}

// PredictVector: инференс по готовому вектору признаков.
// Колонки, которых нет в векторе, заполняются средним scaler'а (после масштабирования это 0).
// Любая ошибка инференса даёт нейтральный (0, 0).
func (a *Adapter) PredictVector(vec features.FeatureVector) (p models.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[PREDICT] %s: inference panic: %v", a.instrument, r)
			p = models.Prediction{}
		}
	}()

	cols := a.artifact.FeatureColumns
	x := make([]float64, len(cols))
	var missing []string
	for i, name := range cols {
		v, ok := vec.Get(name)
		if !ok {
			missing = append(missing, name)
			if i < len(a.artifact.Scaler.Mean) {
				v = a.artifact.Scaler.Mean[i]
			}
		}
		x[i] = v
	}
	if len(missing) == len(cols) {
		logger.Error("[PREDICT] %s: no expected features available", a.instrument)
		return models.Prediction{}
	}
	if len(missing) > 0 {
		logger.Warn("[PREDICT] %s: missing %d/%d features: %s",
			a.instrument, len(missing), len(cols), strings.Join(missing, ","))
	}

	scaled := a.artifact.Scaler.Transform(x)
	value := a.model.Predict(scaled)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logger.Error("[PREDICT] %s: non-finite prediction", a.instrument)
		return models.Prediction{}
	}

	conf := defaultConfidence
	if ens, ok := a.model.(Ensemble); ok {
		conf = Confidence(ens.Members(scaled))
	}
	return models.Prediction{Value: value, Confidence: conf}
}

// Confidence = clamp(1 - std/|mean|, 0.1, 1) по предсказаниям членов ансамбля.
func Confidence(members []float64) float64 {
	if len(members) == 0 {
		return defaultConfidence
	}
	mean, std := stat.PopMeanStdDev(members, nil)
	if math.Abs(mean) <= 1e-8 || math.IsNaN(std) {
		return defaultConfidence
	}
	return math.Max(minConfidence, math.Min(maxConfidence, 1-std/math.Abs(mean)))
}
