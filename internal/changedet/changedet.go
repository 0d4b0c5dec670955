// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package changedet implements the change-detection predicate: given a
// backup artifact path and a working-tree path, decide whether they
// differ for restoration purposes. It uses a cheap size check followed by
// a BLAKE3 content hash, the same hash fstree.Capture uses for file
// identity.
package changedet

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Modified reports whether the working-tree entry at workingPath differs
// from the backup artifact at backupPath. The predicate is true whenever
// the directory/file nature, size, or content differ; false only when
// they're equivalent for restoration purposes.
func Modified(backupPath, workingPath string) (bool, error) {
	backupInfo, err := os.Stat(backupPath)
	if err != nil {
		return false, fmt.Errorf("changedet: stat backup %s: %w", backupPath, err)
	}
	workingInfo, err := os.Stat(workingPath)
	if err != nil {
		return false, fmt.Errorf("changedet: stat working %s: %w", workingPath, err)
	}

	if backupInfo.IsDir() != workingInfo.IsDir() {
		return true, nil
	}
	if backupInfo.IsDir() {
		// Directories carry no content of their own; their nature already
		// matched above, so there's nothing further to compare.
		return false, nil
	}
	if backupInfo.Size() != workingInfo.Size() {
		return true, nil
	}

	backupHash, err := hashFile(backupPath)
	if err != nil {
		return false, err
	}
	workingHash, err := hashFile(workingPath)
	if err != nil {
		return false, err
	}
	return backupHash != workingHash, nil
}

func hashFile(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("changedet: open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, fmt.Errorf("changedet: hash %s: %w", path, err)
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
