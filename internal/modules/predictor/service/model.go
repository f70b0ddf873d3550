package service

import "fmt"

// Model: единый интерфейс инференса для всех семейств моделей.
type Model interface {
	Predict(x []float64) float64
}

// Ensemble: модель, у которой можно получить предсказания отдельных членов.
type Ensemble interface {
	Model
	Members(x []float64) []float64
}

type Tree struct {
	nodes []Node
}

func (t Tree) Predict(x []float64) float64 {
	i := 0
	for {
		nd := t.nodes[i]
		if nd.Left < 0 {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}

// Forest: среднее по деревьям.
type Forest struct {
	trees []Tree
}

func (f Forest) Predict(x []float64) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.trees))
}

func (f Forest) Members(x []float64) []float64 {
	out := make([]float64, len(f.trees))
	for i, t := range f.trees {
		out[i] = t.Predict(x)
	}
	return out
}

// Boosting: init + lr * сумма деревьев. Отдельные деревья предсказывают
// остатки, а не цену, поэтому как ансамбль для уверенности не годятся.
type Boosting struct {
	init  float64
	rate  float64
	trees []Tree
}

func (b Boosting) Predict(x []float64) float64 {
	sum := 0.0
	for _, t := range b.trees {
		sum += t.Predict(x)
	}
	return b.init + b.rate*sum
}

type Linear struct {
	coef      []float64
	intercept float64
}

func (l Linear) Predict(x []float64) float64 {
	y := l.intercept
	for i, c := range l.coef {
		y += c * x[i]
	}
	return y
}

// NewModel строит модель по типу артефакта. Артефакт должен быть провалидирован.
func NewModel(a *Artifact) (Model, error) {
	trees := make([]Tree, len(a.Model.Trees))
	for i, t := range a.Model.Trees {
		trees[i] = Tree{nodes: t.Nodes}
	}
	switch a.ModelType {
	case ModelRandomForest:
		return Forest{trees: trees}, nil
	case ModelGradientBoosting:
		rate := a.Model.LearningRate
		if rate == 0 {
			rate = 0.1
		}
		return Boosting{init: a.Model.Init, rate: rate, trees: trees}, nil
	case ModelLinear:
		return Linear{coef: a.Model.Coef, intercept: a.Model.Intercept}, nil
	default:
		return nil, fmt.Errorf("unknown model type %q", a.ModelType)
	}
}
