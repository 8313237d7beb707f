// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/mregidorgarcia/rc4tabu/pkg/logging"
)

// --- Global Command Variables ---
var (
	logLevel string // Minimum log level (debug/info/warn/error)
	logJSON  bool   // Emit JSON logs on stderr
	logDir   string // Optional directory for JSON log files
	quiet    bool   // Suppress stderr logging

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "rc4tabu",
		Short: "RC4 family keystream generation and Tabu Search state recovery",
		Long: `rc4tabu generates keystream for the RC4 and RC4+ stream ciphers
and runs a Tabu Search attack that recovers the cipher's internal
permutation from observed keystream.

The attack searches the space of S-box permutations by swapping pairs of
entries, scoring each candidate against the target keystream, and using
a tabu list to avoid revisiting recent swaps.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  logDir,
				Service: "rc4tabu",
				JSON:    logJSON,
				Quiet:   quiet,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Emit logs as JSON on stderr")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress stderr logging")

	rootCmd.AddCommand(keystreamCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(attackCmd)
}
