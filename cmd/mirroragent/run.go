// Package main starts the mirroring agent.
package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"

	"github.com/frudas24/mirroragent/internal/app"
	"github.com/frudas24/mirroragent/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newRootCmd returns the agent command.
func newRootCmd() *cobra.Command {
	var (
		debug      bool
		configPath string
	)
	cmd := &cobra.Command{
		Use:           "mirroragent",
		Short:         "Screen mirroring agent",
		Long:          "Serves the mirroring control channel and the video stream for this machine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(debug)
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable verbose debug logging")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	return cmd
}

// setupLogging installs the console logger.
func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// run wires the application and blocks until interrupted.
func run(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logStartup(cfg)

	a, err := app.Build(cfg, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	return a.Run(ctx)
}

// logStartup prints startup checks and connection info.
func logStartup(cfg config.Config) {
	log.Info().Msg("mirroragent starting")
	logEnvStatus(cfg)
	logFFmpegStatus(cfg.FFmpegPath)
	log.Info().Str("driver", cfg.CaptureDriver).Msg("capture driver")
	if cfg.ControlAddr != "" {
		log.Info().Str("addr", cfg.ControlAddr).Msg("control listen addr")
	}
	logListenStatus(cfg.ListenAddr)
}

// logEnvStatus reports whether a .env file was found and whether a token is set.
func logEnvStatus(cfg config.Config) {
	envPath := config.EnvPath(cfg)
	if fileExists(envPath) {
		log.Info().Str("path", envPath).Msg("env check: ok")
	} else {
		log.Info().Str("path", envPath).Msg("env check: missing")
	}
	if cfg.AuthToken == "" {
		log.Warn().Msg("AUTH_TOKEN not set, HTTP endpoints are open")
	}
}

// logFFmpegStatus reports whether the ffmpeg binary is discoverable.
func logFFmpegStatus(path string) {
	if filepath.IsAbs(path) {
		if fileExists(path) {
			log.Info().Str("path", path).Msg("ffmpeg check: ok")
		} else {
			log.Warn().Str("path", path).Msg("ffmpeg check: missing")
		}
		return
	}
	resolved, err := exec.LookPath(path)
	switch {
	case err == nil:
		log.Info().Str("path", resolved).Msg("ffmpeg check: ok")
	case errors.Is(err, exec.ErrDot):
		log.Warn().Str("path", resolved).Msg("ffmpeg check: found relative to current dir; use absolute path")
	default:
		log.Warn().Err(err).Msg("ffmpeg check: missing")
	}
}

// logListenStatus reports the listen address and a local URL helper.
func logListenStatus(addr string) {
	log.Info().Str("addr", addr).Msg("listen addr")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	log.Info().Str("url", "http://"+net.JoinHostPort(host, port)).Msg("local url")
}

// fileExists reports whether a path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
