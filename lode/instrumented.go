package lode

import (
	"context"

	"github.com/justapithecus/shardkit/metrics"
	"github.com/justapithecus/shardkit/shard"
	"github.com/justapithecus/shardkit/types"
)

// InstrumentedPublisher wraps a shard.Publisher and counts publish
// outcomes on the metrics collector.
type InstrumentedPublisher struct {
	inner     shard.Publisher
	collector *metrics.Collector
}

// NewInstrumentedPublisher wraps a publisher with metrics instrumentation.
func NewInstrumentedPublisher(inner shard.Publisher, collector *metrics.Collector) *InstrumentedPublisher {
	return &InstrumentedPublisher{inner: inner, collector: collector}
}

// Publish delegates to the inner publisher and records success or failure.
func (p *InstrumentedPublisher) Publish(ctx context.Context, info types.ShardInfo) error {
	err := p.inner.Publish(ctx, info)
	if err != nil {
		p.collector.IncPublishFailure()
	} else {
		p.collector.IncPublishSuccess()
	}
	return err
}

// Verify publishers implement shard.Publisher.
var (
	_ shard.Publisher = (*Publisher)(nil)
	_ shard.Publisher = (*InstrumentedPublisher)(nil)
	_ shard.Publisher = (*StubPublisher)(nil)
)
