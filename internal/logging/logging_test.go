package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, Level("DEBUG"))
	assert.Equal(t, log.WarnLevel, Level("warning"))
	assert.Equal(t, log.ErrorLevel, Level("error"))
	assert.Equal(t, log.InfoLevel, Level("chatty"))
}

func TestSetupWriter(t *testing.T) {
	saved := log.DefaultLogger
	t.Cleanup(func() { log.DefaultLogger = saved })

	var buf bytes.Buffer
	SetupWriter("warn", &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("symbol", "SPY").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "SPY", entry["symbol"])
}
