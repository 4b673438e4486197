package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewBuildsBothEncodings(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := New(Config{Level: "debug", Development: dev, OutputPaths: []string{"stderr"}})
		require.NoError(t, err)
		assert.NotNil(t, logger.Logger)
	}
}

func TestSnippetLoggerTagsID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Snippet("js/a.js").Info("console", zap.String("line", "hi"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "snippet", entries[0].LoggerName)
	assert.Equal(t, "js/a.js", entries[0].ContextMap()["snippet"])
	assert.Equal(t, "hi", entries[0].ContextMap()["line"])
}
