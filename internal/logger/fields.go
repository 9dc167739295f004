package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so sync runs can be
// aggregated and queried by disk, block, or phase.
const (
	// ========================================================================
	// Run & Phase
	// ========================================================================
	KeyRunID = "run_id" // identifier of one StateSync invocation
	KeyPhase = "phase"  // state_sync, hash_process, sync_process, autosave

	// ========================================================================
	// Disk & Block Addressing
	// ========================================================================
	KeyDisk        = "disk"         // disk name
	KeyDir         = "dir"          // mount directory for a disk
	KeyBlockIdx    = "block_idx"    // block_off_t index within a disk
	KeyBlockState  = "block_state"  // EMPTY, BLK, CHG, REP, DELETED
	KeyBlockCount  = "block_count"  // number of blocks in a disk or array
	KeyParityLevel = "parity_level" // which parity level (0-based: P, Q, R, ...)

	// ========================================================================
	// File Operations
	// ========================================================================
	KeyPath     = "path"      // full file path
	KeySize     = "size"      // file or block size in bytes
	KeyMtimeSec = "mtime_sec" // file modification time, seconds
	KeyInode    = "inode"     // inode number

	// ========================================================================
	// Hashing
	// ========================================================================
	KeyHashAlgo = "hash_algo" // blake2b, xxhash
	KeyHash     = "hash"      // hex-encoded digest
	KeyRehash   = "rehash"    // whether the block is pending a rehash

	// ========================================================================
	// I/O & Error Classification
	// ========================================================================
	KeyOffset    = "offset"     // byte offset within a file or parity device
	KeyCount     = "count"      // byte count requested
	KeyAttempt   = "attempt"    // retry attempt number
	KeyErrorKind = "error_kind" // io_error, silent_error, mismatch_error

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyOperation  = "operation"   // sub-operation type for complex operations
	KeyProgress   = "progress"    // 0-100 percent complete
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// RunID returns a slog.Attr for the run identifier
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// Phase returns a slog.Attr for the current engine phase
func Phase(phase string) slog.Attr {
	return slog.String(KeyPhase, phase)
}

// Disk returns a slog.Attr for a disk name
func Disk(name string) slog.Attr {
	return slog.String(KeyDisk, name)
}

// Dir returns a slog.Attr for a disk mount directory
func Dir(dir string) slog.Attr {
	return slog.String(KeyDir, dir)
}

// BlockIdx returns a slog.Attr for a block index
func BlockIdx(idx uint64) slog.Attr {
	return slog.Uint64(KeyBlockIdx, idx)
}

// BlockState returns a slog.Attr for a block state name
func BlockState(state string) slog.Attr {
	return slog.String(KeyBlockState, state)
}

// BlockCount returns a slog.Attr for a block count
func BlockCount(n uint64) slog.Attr {
	return slog.Uint64(KeyBlockCount, n)
}

// ParityLevel returns a slog.Attr for a parity level index
func ParityLevel(level int) slog.Attr {
	return slog.Int(KeyParityLevel, level)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Size returns a slog.Attr for a size in bytes
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// MtimeSec returns a slog.Attr for a modification time in seconds
func MtimeSec(sec int64) slog.Attr {
	return slog.Int64(KeyMtimeSec, sec)
}

// Inode returns a slog.Attr for an inode number
func Inode(ino uint64) slog.Attr {
	return slog.Uint64(KeyInode, ino)
}

// HashAlgo returns a slog.Attr for a hash algorithm name
func HashAlgo(name string) slog.Attr {
	return slog.String(KeyHashAlgo, name)
}

// Hash returns a slog.Attr for a hex-encoded digest
func Hash(hex string) slog.Attr {
	return slog.String(KeyHash, hex)
}

// Rehash returns a slog.Attr for the rehash flag
func Rehash(pending bool) slog.Attr {
	return slog.Bool(KeyRehash, pending)
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count
func Count(c uint32) slog.Attr {
	return slog.Any(KeyCount, c)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// ErrorKind returns a slog.Attr for an error classification
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Operation returns a slog.Attr for a sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Progress returns a slog.Attr for percent-complete progress
func Progress(pct int) slog.Attr {
	return slog.Int(KeyProgress, pct)
}
