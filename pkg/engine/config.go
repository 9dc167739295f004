package engine

import (
	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/hashalgo"
)

// Config holds the sync engine's tunables, the Go-native form of the
// specification's `state` struct fields relevant to the sync engine.
type Config struct {
	// BlockSize is the size, in bytes, of one block on every disk and
	// parity level.
	BlockSize int
	// Level is the number of parity levels, 1..6.
	Level int

	// HashAlgo/HashSeed are the current hash algorithm and its seed.
	HashAlgo hashalgo.Algorithm
	HashSeed [hashalgo.SeedSize]byte

	// PrevHashAlgo/PrevHashSeed are used to re-verify blocks whose info
	// entry has Rehash set.
	PrevHashAlgo hashalgo.Algorithm
	PrevHashSeed [hashalgo.SeedSize]byte

	// AutosaveBytes is the checkpoint threshold in bytes; 0 disables
	// autosave.
	AutosaveBytes uint64

	// IOErrorLimit bounds how many per-block EIOs are tolerated before
	// a hard bail.
	IOErrorLimit int

	// SkipFallocate disables physical pre-allocation when resizing
	// parity files.
	SkipFallocate bool
	// ForceFull skips the "parity disks not mounted" guard in the
	// driver.
	ForceFull bool
	// Prehash enables the hash pass (C4) before the sync pass.
	Prehash bool
	// ExpectRecoverable inverts the success/failure sense of StateSync:
	// with it set, RunResult.Succeeded reports failure for a run that
	// recorded no error, silent error or IO error (for tests that expect
	// a recoverable error).
	ExpectRecoverable bool
	// ForceAutosaveAt, if >= 0, forces an autosave checkpoint right
	// after that index commits, regardless of the byte threshold.
	ForceAutosaveAt int64
}

// DefaultConfig returns a Config with the specification's typical
// defaults: a 256 KiB block size, single parity level using Blake2b.
func DefaultConfig() Config {
	return Config{
		BlockSize:       block.DefaultSize,
		Level:           1,
		HashAlgo:        hashalgo.Blake2b{},
		PrevHashAlgo:    hashalgo.XXHash{},
		IOErrorLimit:    0,
		ForceAutosaveAt: -1,
	}
}

// AutosaveLimit returns the number of indices that may be processed
// between autosave checkpoints, given diskmax data disks.
func (c Config) AutosaveLimit(diskmax int) uint64 {
	if c.AutosaveBytes == 0 || diskmax == 0 || c.BlockSize == 0 {
		return 0
	}
	return c.AutosaveBytes / (uint64(diskmax) * uint64(c.BlockSize))
}
