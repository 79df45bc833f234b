package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
finnhub:
  api_key: k
database:
  dsn: "file::memory:"
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "0.0.0.0", c.Server.Host)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, []string{"*"}, c.Server.CORSOrigins)
	assert.Equal(t, 3.0, c.Server.CheckRateCapacity)
	assert.Equal(t, "postgres", c.Database.Driver)
	assert.Equal(t, "US", c.Finnhub.Exchange)
	assert.True(t, c.Refresh.Enabled)
	assert.Equal(t, 10*time.Minute, c.Refresh.Interval)
	assert.Equal(t, 25, c.Refresh.BatchSize)
	assert.Equal(t, 1500*time.Millisecond, c.Refresh.CallDelay)
	assert.Equal(t, time.Minute, c.Refresh.BatchDelay)
	assert.Equal(t, time.Minute, c.Refresh.RateLimitCooldown)
	assert.Equal(t, 5*time.Minute, c.Alerts.Interval)
	assert.Equal(t, "smtp.gmail.com", c.Email.Host)
	assert.Equal(t, 587, c.Email.Port)
	assert.Equal(t, "none", c.History.Backend)
	assert.False(t, c.KafkaEnabled())
	assert.Equal(t, int64(1<<20), c.Kafka.BatchBytes)
	assert.False(t, c.Kafka.AutoCreateTopics)
	assert.Equal(t, 4, c.ClickHouse.MaxOpenConns)
	assert.Equal(t, 2, c.ClickHouse.MaxIdleConns)
}

func TestParseExplicitFalseWins(t *testing.T) {
	c, err := Parse([]byte(minimal + `
refresh:
  enabled: false
  batch_size: 5
metrics:
  enabled: false
`))
	require.NoError(t, err)
	assert.False(t, c.Refresh.Enabled)
	assert.Equal(t, 5, c.Refresh.BatchSize)
	assert.False(t, c.Metrics.Enabled)
	// untouched siblings keep their defaults
	assert.Equal(t, 10*time.Minute, c.Refresh.Interval)
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(`database: {dsn: x}`))
	require.NoError(t, err)

	env := map[string]string{
		"FINNHUB_API_KEY":     "secret",
		"EMAIL_USER":          "a@example.com",
		"EMAIL_PASS":          "pw",
		"SMTP_USER":           "b@example.com",
		"TWILIO_ACCOUNT_SID":  "AC1",
		"TWILIO_AUTH_TOKEN":   "tok",
		"TWILIO_PHONE_NUMBER": "+15550000000",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"HISTORY_BACKEND":     "kafka",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "secret", c.Finnhub.APIKey)
	assert.Equal(t, "b@example.com", c.Email.User, "SMTP_USER overrides EMAIL_USER")
	assert.Equal(t, "pw", c.Email.Password)
	assert.True(t, c.EmailConfigured())
	assert.True(t, c.SMSConfigured())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.KafkaEnabled())
	require.NoError(t, c.Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing api key", `database: {dsn: x}`},
		{"missing dsn", `finnhub: {api_key: k}`},
		{"bad driver", minimal + "  driver: mysql\n"},
		{"zero batch", minimal + "refresh: {batch_size: 0}\n"},
		{"no interval", minimal + "refresh: {interval: 0s}\n"},
		{"negative delay", minimal + "refresh: {call_delay: -1s}\n"},
		{"kafka history without brokers", minimal + "history: {backend: kafka}\n"},
		{"clickhouse history without host", minimal + "history: {backend: clickhouse}\n"},
		{"unknown backend", minimal + "history: {backend: s3}\n"},
		{"events without brokers", minimal + "alerts: {events_topic: ev}\n"},
		{"unknown compression", minimal + "kafka: {compression: brotli}\n"},
		{"bad acks", minimal + "kafka: {required_acks: 2}\n"},
		{"idle above open", minimal + "clickhouse: {max_open_conns: 2, max_idle_conns: 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCronAllowsZeroInterval(t *testing.T) {
	c, err := Parse([]byte(minimal + "refresh: {interval: 0s, cron: \"*/10 * * * *\"}\n"))
	require.NoError(t, err)
	assert.NoError(t, c.Validate())
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database: {dsn: x}`), 0o600))

	t.Setenv("FINNHUB_API_KEY", "")
	_, err := LoadWithEnv(path)
	assert.Error(t, err, "api key is required")

	t.Setenv("FINNHUB_API_KEY", "from-env")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Finnhub.APIKey)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
