package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Setup installs a jaeger tracer as the global tracer. With tracing disabled the
// global no-op tracer stays in place.
func Setup(serviceName, agent string, enabled bool) (io.Closer, error) {
	if !enabled {
		return io.NopCloser(nil), nil
	}
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1},
		Reporter:    &jaegercfg.ReporterConfig{LocalAgentHostPort: agent},
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(logrusLogger{}))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	logrus.WithField("agent", agent).Info("jaeger tracing enabled")
	return closer, nil
}

type logrusLogger struct{}

func (logrusLogger) Error(msg string) {
	logrus.WithField("component", "jaeger").Error(msg)
}

func (logrusLogger) Infof(msg string, args ...interface{}) {
	logrus.WithField("component", "jaeger").Debugf(msg, args...)
}
