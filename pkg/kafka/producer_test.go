package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []ProducerOption
		want string
	}{
		{"no brokers", nil, "brokers are required"},
		{"bad compression", []ProducerOption{WithBrokers([]string{"k:9092"}), WithCompression("brotli")}, "compression"},
		{"bad acks", []ProducerOption{WithBrokers([]string{"k:9092"}), WithDelivery(2, 0)}, "acks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProducer(tt.opts...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithDelivery(1, 5),
		WithBatching(BatchConfig{Bytes: 4096}),
		WithKeyedPartitioning(false),
		WithAutoCreateTopics(true),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.Equal(t, 5, p.writer.MaxAttempts)
	assert.Equal(t, int64(4096), p.writer.BatchBytes)
	assert.Equal(t, 100, p.writer.BatchSize, "unset batch fields keep defaults")
	assert.True(t, p.writer.AllowAutoTopicCreation)
	_, isHash := p.writer.Balancer.(*kafka.Hash)
	assert.False(t, isHash)
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
