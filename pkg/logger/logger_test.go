package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
	topic   string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, value.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestCollectorDeduplicatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs",
		Publisher:      pub,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		l.Error("quote fetch failed", String("symbol", "AAPL"), Error(boom))
	}
	l.Error("quote fetch failed", String("symbol", "MSFT"), Error(boom))
	assert.Equal(t, 2, l.collector.Pending())

	l.RemoveCollector()

	entries := pub.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "logs", pub.topic)
	counts := map[interface{}]int{}
	for _, e := range entries {
		counts[e.Fields["symbol"]] = e.Count
	}
	assert.Equal(t, 3, counts["AAPL"])
	assert.Equal(t, 1, counts["MSFT"])
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Publisher:      pub,
	})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	assert.Equal(t, 0, c.Pending())
	c.Close()
	assert.Len(t, pub.entries(), 2)
}

func TestNamedSharesCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})
	l.Named("scheduler").Error("cycle failed")
	assert.Equal(t, 1, l.collector.Pending())
	l.RemoveCollector()
}
