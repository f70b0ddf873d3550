package service

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"futures_bot/pkg/logger"
)

// ModelSymbol переводит инструмент OKX в имя, под которым тренер сохраняет модели:
// BTC-USDT-SWAP -> BTCUSDT.
func ModelSymbol(instID string) string {
	s := strings.ToUpper(strings.TrimSpace(instID))
	s = strings.TrimSuffix(s, "-SWAP")
	return strings.ReplaceAll(s, "-", "")
}

// ArtifactPath: <dir>/<SYMBOL>_<model_type>.json
func ArtifactPath(dir, instID, modelType string) string {
	return filepath.Join(dir, ModelSymbol(instID)+"_"+modelType+".json")
}

// Registry хранит предсказатели по инструментам. Без артефакта выдаёт Neutral.
type Registry struct {
	mu         sync.RWMutex
	predictors map[string]Predictor
}

func NewRegistry() *Registry {
	return &Registry{predictors: make(map[string]Predictor)}
}

func (r *Registry) Set(instID string, p Predictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictors[instID] = p
}

func (r *Registry) For(instID string) Predictor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.predictors[instID]; ok {
		return p
	}
	return Neutral{}
}

func (r *Registry) Loaded() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.predictors)
}

// LoadDir загружает артефакты для всех инструментов. Отсутствующий или битый
// артефакт не ошибка: инструмент торгуется только по техническим сигналам.
func LoadDir(dir, modelType string, instruments []string) *Registry {
	reg := NewRegistry()
	for _, inst := range instruments {
		path := ArtifactPath(dir, inst, modelType)
		a, err := LoadArtifact(path)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				logger.Warn("[PREDICT] no model for %s (%s)", inst, path)
			} else {
				logger.Error("[PREDICT] load model for %s: %v", inst, err)
			}
			continue
		}
		ad, err := NewAdapter(inst, a)
		if err != nil {
			logger.Error("[PREDICT] model for %s: %v", inst, err)
			continue
		}
		reg.Set(inst, ad)
		logger.Info("[PREDICT] model loaded for %s: type=%s version=%s features=%d trained_at=%s",
			inst, a.ModelType, a.Version, len(a.FeatureColumns), a.TrainedAt.Format("2006-01-02"))
	}
	return reg
}
