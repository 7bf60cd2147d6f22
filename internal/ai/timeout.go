package ai

import (
	"context"
	"time"
)

type timeoutEmbedder struct {
	inner   IEmbedder
	timeout time.Duration
}

// NewTimeoutEmbedder bounds each provider call with a deadline. A breached
// deadline surfaces as the provider's context error, not an unbounded hang.
func NewTimeoutEmbedder(inner IEmbedder, timeout time.Duration) IEmbedder {
	if timeout <= 0 {
		return inner
	}
	return &timeoutEmbedder{inner: inner, timeout: timeout}
}

func (e *timeoutEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.Embed(ctx, text, taskType)
}

func (e *timeoutEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.EmbedBatch(ctx, texts, taskType)
}

func (e *timeoutEmbedder) ModelName() string {
	return e.inner.ModelName()
}
