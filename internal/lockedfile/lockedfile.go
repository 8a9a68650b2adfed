// Copyright 2025 The ccbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lockedfile provides advisory file-based mutual exclusion,
// serializing builds that share an artifact directory.
package lockedfile

import (
	"fmt"
	"os"
)

// A Mutex guards a critical section through a lock file. The zero value is
// not usable; construct with MutexAt.
type Mutex struct {
	Path string
}

// MutexAt returns a Mutex backed by the file at path. The file is created
// when missing.
func MutexAt(path string) *Mutex {
	return &Mutex{Path: path}
}

// Lock acquires the lock, blocking until it is free, and returns the
// function that releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if mu.Path == "" {
		panic("lockedfile: Mutex has no Path")
	}
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.Path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
