package kafka

import (
	"errors"
	"fmt"
	"time"
)

// ProducerConfig is the writer shared by quote history, alert events and
// the log collector.
type ProducerConfig struct {
	Brokers     []string
	Acks        int // -1 all replicas, 1 leader, 0 none
	MaxAttempts int
	Compression string
	Timeout     time.Duration
	Batch       BatchConfig
	Async       bool

	// KeyedPartitioning keeps every message for one symbol on one partition.
	KeyedPartitioning bool
	AutoCreateTopics  bool
}

// BatchConfig bounds a writer batch by count, size and wait.
type BatchConfig struct {
	Size   int
	Bytes  int64
	Linger time.Duration
}

func defaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Acks:        -1,
		MaxAttempts: 3,
		Compression: "gzip",
		Timeout:     10 * time.Second,
		Batch: BatchConfig{
			Size:   100,
			Bytes:  1 << 20,
			Linger: time.Second,
		},
		KeyedPartitioning: true,
	}
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	switch c.Acks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("unsupported acks %d", c.Acks)
	}
	if _, ok := compressions[c.Compression]; !ok {
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}
	return nil
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithDelivery sets the acknowledgement level and writer retry budget.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.Acks = acks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithCompression picks gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
	}
}

// WithBatching overrides the non-zero fields of b.
func WithBatching(b BatchConfig) ProducerOption {
	return func(c *ProducerConfig) {
		if b.Size > 0 {
			c.Batch.Size = b.Size
		}
		if b.Bytes > 0 {
			c.Batch.Bytes = b.Bytes
		}
		if b.Linger > 0 {
			c.Batch.Linger = b.Linger
		}
	}
}

// WithTimeout bounds each broker read and write.
func WithTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

func WithKeyedPartitioning(keyed bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.KeyedPartitioning = keyed
	}
}

// WithAutoCreateTopics lets the broker create missing topics on first write.
func WithAutoCreateTopics(enabled bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.AutoCreateTopics = enabled
	}
}
