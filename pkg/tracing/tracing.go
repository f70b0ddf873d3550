package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	jCfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"

	"futures_bot/pkg/logger"
)

// ServiceName: имя сервиса в jaeger по умолчанию.
const ServiceName = "futures_bot"

const (
	TagInstrument = "bot.instrument"
	TagRunState   = "bot.run_state"
	TagSignal     = "bot.signal"
)

type Config struct {
	ServiceName string
	Host        string
	Port        int
	// SampleRate: доля циклов в трейсах, 0 или >=1 пишет всё.
	SampleRate float64
	// Tags вешаются на каждый спан процесса (инструменты, таймфрейм).
	Tags map[string]string
}

func (c Config) sampler() *jCfg.SamplerConfig {
	if c.SampleRate <= 0 || c.SampleRate >= 1 {
		return &jCfg.SamplerConfig{Type: "const", Param: 1}
	}
	return &jCfg.SamplerConfig{Type: "probabilistic", Param: c.SampleRate}
}

// InitTracer регистрирует jaeger как глобальный трейсер и возвращает closer.
// Без вызова opentracing остаётся на NoopTracer.
func InitTracer(conf Config) (func(), error) {
	name := conf.ServiceName
	if name == "" {
		name = ServiceName
	}
	tags := make([]opentracing.Tag, 0, len(conf.Tags))
	for k, v := range conf.Tags {
		tags = append(tags, opentracing.Tag{Key: k, Value: v})
	}

	cfg := &jCfg.Configuration{
		ServiceName: name,
		Sampler:     conf.sampler(),
		Reporter: &jCfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
		Tags: tags,
	}

	tracer, closer, err := cfg.NewTracer(jCfg.Metrics(metrics.NullFactory))
	if err != nil {
		return nil, fmt.Errorf("jaeger %s: %w", name, err)
	}
	opentracing.SetGlobalTracer(tracer)
	logger.Info("[TRACE] jaeger %s -> %s", name, cfg.Reporter.LocalAgentHostPort)

	return func() {
		if err := closer.Close(); err != nil {
			logger.Error("[TRACE] closing jaeger tracer: %v", err)
		}
	}, nil
}

// StartSpan открывает спан "<component>.<op>". Пустой instrument не ставит тег.
func StartSpan(ctx context.Context, component, op, instrument string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, component+"."+op)
	ext.Component.Set(span, component)
	if instrument != "" {
		span.SetTag(TagInstrument, instrument)
	}
	return span, ctx
}

// Fail помечает спан ошибкой и пишет её в лог спана.
func Fail(span opentracing.Span, err error) {
	ext.Error.Set(span, true)
	if err != nil {
		span.LogKV("event", "error", "message", err.Error())
	}
}
