// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rc4

import (
	"fmt"
	"math/rand"
)

// Oracle drives an Engine from a fixed key. It plays the victim in the
// state-recovery attack: given a key it produces ground-truth keystream,
// and it doubles as the plain encrypt/decrypt front for cipher-only
// callers.
//
// Thread Safety: not safe for concurrent use; the oracle owns one cipher
// state that every Keystream call advances.
type Oracle struct {
	engine *Engine
	key    []byte
	state  *State
}

// NewOracle creates an oracle for the given variant, state size, and key,
// running the KSA once so the first Keystream call starts a fresh stream.
//
// Inputs:
//   - v: Cipher variant.
//   - n: State size (VariantPlus forces 256).
//   - key: Non-empty key bytes.
//
// Outputs:
//   - *Oracle: Ready to use oracle.
//   - error: ErrInvalidConfiguration from engine or KSA validation.
func NewOracle(v Variant, n int, key []byte) (*Oracle, error) {
	engine, err := NewEngine(v, n)
	if err != nil {
		return nil, err
	}
	state, err := engine.KSA(key)
	if err != nil {
		return nil, err
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Oracle{engine: engine, key: k, state: state}, nil
}

// Keystream returns the next length bytes of the stream. Consecutive
// calls continue the stream; use Reset to restart it.
func (o *Oracle) Keystream(length int) []byte {
	return o.engine.Keystream(o.state, length)
}

// Reset re-runs the KSA, restarting the keystream from the beginning.
func (o *Oracle) Reset() {
	// KSA cannot fail here; the key was validated at construction.
	o.state, _ = o.engine.KSA(o.key)
}

// State returns a copy of the oracle's current internal state. The copy
// is what an attacker tries to recover from observed output.
func (o *Oracle) State() *State {
	return o.state.Clone()
}

// Encrypt restarts the stream and XORs data against it. Running the
// result through Encrypt again recovers the original bytes.
func (o *Oracle) Encrypt(data []byte) ([]byte, error) {
	o.Reset()
	return EncryptDecrypt(data, o.Keystream(len(data)))
}

// EncryptDecrypt XORs data byte-wise with keystream. Self-inverse:
// applying it twice with the same keystream is the identity.
//
// Inputs:
//   - data: Plaintext or ciphertext bytes.
//   - keystream: At least len(data) keystream bytes.
//
// Outputs:
//   - []byte: The XOR of the two, len(data) long.
//   - error: ErrLengthMismatch when keystream is shorter than data.
func EncryptDecrypt(data, keystream []byte) ([]byte, error) {
	if len(keystream) < len(data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrLengthMismatch, len(data), len(keystream))
	}
	out := make([]byte, len(data))
	for k := range data {
		out[k] = data[k] ^ keystream[k]
	}
	return out, nil
}

// GenerateChallenge creates a random secret state of size n and the
// keystream it produces under the generalized RC4+ PRGA. The pair is the
// attack's ground truth: the keystream is handed to the search, the state
// is what the search tries to recover.
//
// Inputs:
//   - n: State size, one of 64, 128, 256.
//   - length: Keystream bytes to generate, >= 1.
//   - rng: Seeded source; fixes the challenge for reproducible runs.
//
// Outputs:
//   - *State: The secret state (scan indices at zero).
//   - []byte: The keystream the secret state produces.
//   - error: ErrInvalidConfiguration for bad n or length.
func GenerateChallenge(n, length int, rng *rand.Rand) (*State, []byte, error) {
	engine, err := NewRecoveryEngine(n)
	if err != nil {
		return nil, nil, err
	}
	if length < 1 {
		return nil, nil, fmt.Errorf("%w: keystream length must be >= 1, got %d", ErrInvalidConfiguration, length)
	}
	secret := NewRandomState(n, rng)
	return secret, engine.Keystream(secret, length), nil
}
