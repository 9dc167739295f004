// Package raidcodec wraps Reed-Solomon erasure coding as the sync
// engine's RAID codec: raid_gen, raid_rec, and raid_zero from the
// specification.
package raidcodec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Gen computes level parity shards from diskmax data shards, filling
// buffers[diskmax:diskmax+level] in place.
func Gen(diskmax, level int, buffers [][]byte) error {
	enc, err := reedsolomon.New(diskmax, level)
	if err != nil {
		return fmt.Errorf("raidcodec: new encoder: %w", err)
	}
	if err := enc.Encode(buffers[:diskmax+level]); err != nil {
		return fmt.Errorf("raidcodec: encode: %w", err)
	}
	return nil
}

// Rec reconstructs the shards named in failedMap (indices into
// buffers[:diskmax+level]) from the surviving data and parity shards.
// failedMac bounds how many failures are tolerable; callers must ensure
// len(failedMap) <= level before calling.
func Rec(failedMac int, failedMap []int, diskmax, level int, buffers [][]byte) error {
	if len(failedMap) > failedMac {
		return fmt.Errorf("raidcodec: %d failures exceeds tolerance %d", len(failedMap), failedMac)
	}

	total := diskmax + level
	shards := make([][]byte, total)
	copy(shards, buffers[:total])
	for _, idx := range failedMap {
		shards[idx] = nil
	}

	enc, err := reedsolomon.New(diskmax, level)
	if err != nil {
		return fmt.Errorf("raidcodec: new encoder: %w", err)
	}
	if err := enc.Reconstruct(shards); err != nil {
		return fmt.Errorf("raidcodec: reconstruct: %w", err)
	}
	ok, err := enc.Verify(shards)
	if err != nil {
		return fmt.Errorf("raidcodec: verify: %w", err)
	}
	if !ok {
		return fmt.Errorf("raidcodec: reconstructed shards failed verification")
	}

	for _, idx := range failedMap {
		copy(buffers[idx], shards[idx])
	}
	return nil
}

// Zero fills buf with zero bytes; the sync engine uses it to clear the
// data buffers of disk slots that contribute no file data at an index.
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
