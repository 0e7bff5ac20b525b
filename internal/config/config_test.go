package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LISTEN_ADDR", "CONTROL_ADDR", "AUTH_TOKEN", "DATA_DIR", "FFMPEG_PATH",
		"CAPTURE_DRIVER", "FPS", "BITRATE_KBPS", "MONITOR_INDEX", "DISPLAY_ROTATION",
		"CLIPBOARD_POLL_INTERVAL", "WAKE_ON_START", "VIDEO_AUTOSTART", "VIEWER_POLICY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("DATA_DIR", t.TempDir())
}

// TestLoad_Defaults verifies defaults apply without file or env.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, defaultListenAddr, cfg.ListenAddr)
	require.Equal(t, defaultControlAddr, cfg.ControlAddr)
	require.Equal(t, 500*time.Millisecond, cfg.ClipboardPollInterval)
	require.Equal(t, "gdigrab", cfg.CaptureDriver)
	require.Equal(t, "replace", cfg.ViewerPolicy)
	require.Empty(t, cfg.AuthToken)
}

// TestLoad_Precedence verifies env overrides .env which overrides the YAML file.
func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := os.Getenv("DATA_DIR")
	file := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(file, []byte("fps: 24\nbitrate_kbps: 3000\nclipboard_poll_interval: 250ms\ncontrol_addr: 127.0.0.1:9000\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BITRATE_KBPS=4000\nAUTH_TOKEN=\"secret\"\n"), 0o600))
	t.Setenv("FPS", "60")

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.FPS)
	require.Equal(t, 4000, cfg.BitrateKbps)
	require.Equal(t, 250*time.Millisecond, cfg.ClipboardPollInterval)
	require.Equal(t, "127.0.0.1:9000", cfg.ControlAddr)
	require.Equal(t, "secret", cfg.AuthToken)
}

// TestLoad_MissingFile verifies an explicit config path must exist.
func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestLoad_InvalidValues verifies validation and parse failures.
func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"FPS":                     "0",
		"DISPLAY_ROTATION":        "4",
		"CLIPBOARD_POLL_INTERVAL": "0s",
		"VIEWER_POLICY":           "share",
		"BITRATE_KBPS":            "fast",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

// TestNormalizeCaptureDriver verifies unknown drivers fall back to gdigrab.
func TestNormalizeCaptureDriver(t *testing.T) {
	require.Equal(t, "d3d11grab", normalizeCaptureDriver(" D3D11GRAB "))
	require.Equal(t, "ddagrab", normalizeCaptureDriver("ddagrab"))
	require.Equal(t, "gdigrab", normalizeCaptureDriver("x11grab"))
}
