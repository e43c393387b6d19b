// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/traitscope/config"
)

// Identity derives the registry key for an artifact location.
//
// Description:
//
//	Editor-originated locations may carry a query or fragment suffix;
//	both are stripped before the path is made absolute and cleaned. Two
//	locations naming the same file yield the same identity.
func Identity(location string) (string, error) {
	path := location
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", location, err)
	}
	return abs, nil
}

// checkArtifact enforces the Start preconditions. Every failure wraps
// ErrInvalidArtifact and is rejected before any process is spawned.
func checkArtifact(identity string, cfg *config.Config) error {
	info, err := os.Stat(identity)
	if err != nil {
		return fmt.Errorf("%w: %s: not a saved file: %v", ErrInvalidArtifact, identity, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s: not a regular file", ErrInvalidArtifact, identity)
	}
	if ext := filepath.Ext(identity); !cfg.Recognizes(ext) {
		return fmt.Errorf("%w: %s: unrecognized language extension %q", ErrInvalidArtifact, identity, ext)
	}
	return nil
}

// workDir ensures the per-artifact working directory exists and returns
// it. A pre-existing non-directory at the path is a precondition error.
func workDir(identity string, cfg *config.Config) (string, error) {
	dir := filepath.Join(filepath.Dir(identity), cfg.WorkDirName)
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s exists and is not a directory", ErrInvalidArtifact, dir)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("%w: create %s: %v", ErrInvalidArtifact, dir, err)
		}
	default:
		return "", fmt.Errorf("%w: stat %s: %v", ErrInvalidArtifact, dir, err)
	}
	return dir, nil
}
