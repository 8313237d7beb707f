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
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	encryptVariant string // Cipher variant (classic/plus)
	encryptKey     string // Secret key (UTF-8 bytes)
	encryptKeyHex  string // Secret key as hex (overrides --key)
	encryptDecrypt bool   // Treat input as hex ciphertext, emit plaintext
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// encryptCmd XORs input with keystream. The cipher is symmetric, so the
// same command decrypts; --decrypt only switches the input/output
// encoding (hex in, text out).
//
// # Examples
//
//	rc4tabu encrypt --key Key Plaintext
//	rc4tabu encrypt --key Key --decrypt bbf316e8d940af0ad3
//	echo -n secret | rc4tabu encrypt --key Key
var encryptCmd = &cobra.Command{
	Use:   "encrypt [data]",
	Short: "Encrypt or decrypt data with a key",
	Long: `Derives keystream from the key and XORs it with the input. Input is
taken from the argument, or from stdin when no argument is given.

Encryption reads the input as text and prints hex ciphertext.
With --decrypt the input is read as hex and the plaintext is printed.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runEncryptCommand,
}

func init() {
	encryptCmd.Flags().StringVarP(&encryptVariant, "variant", "v", "classic",
		"Cipher variant: classic or plus")
	encryptCmd.Flags().StringVarP(&encryptKey, "key", "k", "",
		"Secret key (interpreted as UTF-8 bytes)")
	encryptCmd.Flags().StringVar(&encryptKeyHex, "key-hex", "",
		"Secret key as hex (overrides --key)")
	encryptCmd.Flags().BoolVarP(&encryptDecrypt, "decrypt", "d", false,
		"Read input as hex ciphertext and print the plaintext")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runEncryptCommand(cmd *cobra.Command, args []string) {
	key, err := resolveKey(encryptKey, encryptKeyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid key: %v\n", err)
		os.Exit(1)
	}

	variant, err := rc4.ParseVariant(encryptVariant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid variant: %v\n", err)
		os.Exit(1)
	}

	input, err := readInput(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading input: %v\n", err)
		os.Exit(1)
	}
	if encryptDecrypt {
		input, err = hex.DecodeString(string(input))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Decoding hex ciphertext: %v\n", err)
			os.Exit(1)
		}
	}

	oracle, err := rc4.NewOracle(variant, 256, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cipher setup failed: %v\n", err)
		os.Exit(1)
	}

	output, err := oracle.Encrypt(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cipher failed: %v\n", err)
		os.Exit(1)
	}

	if encryptDecrypt {
		fmt.Println(string(output))
		return
	}
	fmt.Println(hex.EncodeToString(output))
}

// readInput returns the argument if present, otherwise all of stdin.
func readInput(args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no input given (argument or stdin)")
	}
	return data, nil
}
