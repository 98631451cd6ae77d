package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false, true)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Msg("hidden")
	logger := Component("crawl")
	logger.Info().Str("url", "https://suno.com").Msg("Found collections")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "crawl", line["component"])
	assert.Equal(t, "https://suno.com", line["url"])
	assert.Equal(t, "Found collections", line["message"])
}

func TestSetup_VerboseConsole(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, true, false)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Msg("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
