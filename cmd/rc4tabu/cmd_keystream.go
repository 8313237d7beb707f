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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	keystreamVariant string // Cipher variant (classic/plus)
	keystreamKey     string // Secret key (UTF-8 bytes)
	keystreamKeyHex  string // Secret key as hex (overrides --key)
	keystreamLength  int    // Number of keystream bytes
	keystreamN       int    // S-box size (classic only)
	keystreamRaw     bool   // Write raw bytes instead of hex
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// keystreamCmd generates keystream bytes for a given key.
//
// # Examples
//
//	rc4tabu keystream --key Key --length 10
//	rc4tabu keystream --variant plus --key-hex 4b6579 --length 16
//	rc4tabu keystream --key Key --length 1024 --raw > ks.bin
var keystreamCmd = &cobra.Command{
	Use:   "keystream",
	Short: "Generate keystream bytes for a key",
	Long: `Runs the key-scheduling algorithm for the given key and emits the
requested number of keystream bytes. Output is lowercase hex on stdout,
or raw bytes with --raw.`,
	Run: runKeystreamCommand,
}

func init() {
	keystreamCmd.Flags().StringVarP(&keystreamVariant, "variant", "v", "classic",
		"Cipher variant: classic or plus")
	keystreamCmd.Flags().StringVarP(&keystreamKey, "key", "k", "",
		"Secret key (interpreted as UTF-8 bytes)")
	keystreamCmd.Flags().StringVar(&keystreamKeyHex, "key-hex", "",
		"Secret key as hex (overrides --key)")
	keystreamCmd.Flags().IntVarP(&keystreamLength, "length", "l", 16,
		"Number of keystream bytes to generate")
	keystreamCmd.Flags().IntVarP(&keystreamN, "n", "n", 256,
		"S-box size (classic variant only; plus requires 256)")
	keystreamCmd.Flags().BoolVar(&keystreamRaw, "raw", false,
		"Write raw bytes to stdout instead of hex")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runKeystreamCommand(cmd *cobra.Command, args []string) {
	key, err := resolveKey(keystreamKey, keystreamKeyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid key: %v\n", err)
		os.Exit(1)
	}
	if keystreamLength <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid length %d: must be positive\n", keystreamLength)
		os.Exit(1)
	}

	variant, err := rc4.ParseVariant(keystreamVariant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid variant: %v\n", err)
		os.Exit(1)
	}

	oracle, err := rc4.NewOracle(variant, keystreamN, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cipher setup failed: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("generating keystream",
		"variant", variant.String(), "n", keystreamN, "length", keystreamLength)

	ks := oracle.Keystream(keystreamLength)
	if keystreamRaw {
		if _, err := os.Stdout.Write(ks); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(hex.EncodeToString(ks))
}

// resolveKey prefers the hex form when both are given.
func resolveKey(text, hexText string) ([]byte, error) {
	if hexText != "" {
		key, err := hex.DecodeString(hexText)
		if err != nil {
			return nil, fmt.Errorf("decoding hex key: %w", err)
		}
		return key, nil
	}
	if text == "" {
		return nil, fmt.Errorf("a key is required (--key or --key-hex)")
	}
	return []byte(text), nil
}
