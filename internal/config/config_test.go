package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, input string) (*Config, error) {
	t.Helper()
	return ParseBytes([]byte(input))
}

func testValidConfig(t *testing.T, input string) *Config {
	t.Helper()
	c, err := testConfig(t, input)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestEmptyConfig(t *testing.T) {
	c := testValidConfig(t, "")
	assert.Equal(t, RoleAll, c.Pipeline.Role)
	assert.Equal(t, 5000, c.Polling.IntervalMilliseconds)
}

func TestDefaults(t *testing.T) {
	c := testValidConfig(t, "")
	assert.Equal(t, 32, c.Polling.BatchReadLimit)
	assert.Equal(t, 3, c.Transfer.Retry.MaxAttempts)
	assert.Equal(t, "none", c.Transfer.Checksum.Algorithm)
	assert.True(t, c.Idempotency.Enabled)
}

func TestFileSource(t *testing.T) {
	c := testValidConfig(t, `
fileSources:
  - name: "inbox"
    path: "/tmp/in"
    destinationPath: "/tmp/out"
    minStableSeconds: 1
`)
	require.Len(t, c.FileSources, 1)
	fs := c.FileSources[0]
	assert.Equal(t, "inbox", fs.Name)
	assert.Equal(t, "*", fs.Pattern)
	assert.Equal(t, 1, fs.MinStableSeconds)
}

func TestRemoteFileSource_RequiresCredential(t *testing.T) {
	_, err := testConfig(t, `
remoteFileSources:
  - name: "ftpin"
    protocol: "ftp"
    host: "ftp.example.com"
    path: "/in"
`)
	require.Error(t, err)
}

func TestRoutingRule_DefaultFailurePolicy(t *testing.T) {
	c := testValidConfig(t, `
routing:
  rules:
    - match:
        protocol: "local"
      destinations:
        - name: "out"
`)
	require.Len(t, c.Routing.Rules, 1)
	assert.Equal(t, "AllOrNothing", c.Routing.Rules[0].FailurePolicy)
}

func TestInvalidRole(t *testing.T) {
	_, err := testConfig(t, `
pipeline:
  role: "Bogus"
`)
	require.Error(t, err)
}

func TestCronSpec(t *testing.T) {
	s := FileSource{}
	assert.Equal(t, "@every 5000ms", s.CronSpec(5000))
	s.Cron = "@every 1m"
	assert.Equal(t, "@every 1m", s.CronSpec(5000))
}
