package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONOutsideDev(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := logging.Setup("PROD", "debug", &buf)
	logger.Debug().Str("component", "guard").Msg("booting")

	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	require.Contains(t, buf.String(), `"component":"guard"`)
	require.Contains(t, buf.String(), `"message":"booting"`)
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := logging.Setup("PROD", "chatty", &buf)
	logger.Debug().Msg("hidden")

	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	require.Empty(t, buf.String())
}
