package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_WritesCallerFieldsAsJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	GetLogger().WithField("job_id", "job-1").Info("claimed job")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "claimed job", entry["msg"])
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Contains(t, entry["function"], "TestGetLogger_WritesCallerFieldsAsJSON")
	assert.Contains(t, entry["file"], "logger_test.go")
	assert.NotNil(t, entry["line"])
}

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, resolveLevel(""))
	assert.Equal(t, log.WarnLevel, resolveLevel("warn"))
	assert.Equal(t, log.DebugLevel, resolveLevel("chatty"))
}
