package llm

import (
	"context"
	"mysql_practice_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// LoggingProvider 记录每次模型调用的耗时、token 用量和错误
type LoggingProvider struct {
	inner Provider
	log   *zap.Logger
}

func WithLogging(p Provider, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingProvider{inner: p, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	model := l.inner.ModelID()
	var in, out int
	if resp != nil {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
	}
	monitoring.ObserveLLM(model, err == nil, in, out, elapsed)

	fields := []zap.Field{
		zap.String("model", model),
		zap.Duration("latency", elapsed),
		zap.Int("input_tokens", in),
		zap.Int("output_tokens", out),
	}
	if err != nil {
		l.log.Warn("LLM request failed", append(fields, zap.Error(err))...)
	} else {
		l.log.Debug("LLM request completed", fields...)
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
