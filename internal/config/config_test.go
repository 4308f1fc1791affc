package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONDAY_API_URL", "")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("DETECT_THRESHOLD", "0.6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.MondayAPIURL)
	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.IMAPSecure)
	assert.InDelta(t, 0.6, cfg.DetectThreshold, 1e-9)
	assert.Equal(t, 3, cfg.MondayRetryMax)
}

func TestRequireBoard(t *testing.T) {
	cfg := Config{MondayAPIKey: "key"}
	err := cfg.RequireBoard()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONDAY_BOARD_ID")

	cfg.MondayBoardID = "42"
	assert.NoError(t, cfg.RequireBoard())
}

func TestGetEnvBool(t *testing.T) {
	cases := map[string]bool{"yes": true, "1": true, "ON": true, "no": false, "0": false, "maybe": true}
	for raw, want := range cases {
		t.Setenv("WOBOARD_TEST_BOOL", raw)
		assert.Equal(t, want, getEnvBool("WOBOARD_TEST_BOOL", true), raw)
	}
}
