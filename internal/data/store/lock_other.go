//go:build !unix

package store

import "os"

// Advisory locking is only implemented for unix platforms.
func lockFile(f *os.File) error   { return nil }
func unlockFile(f *os.File) error { return nil }

func processAlive(pid int) bool { return false }
