// Package main starts the mirroring agent.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

// main is the entrypoint for the mirroring agent.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}
