package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goparity/goparity/internal/logger"
	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/blockinfo"
	"github.com/goparity/goparity/pkg/content"
	"github.com/goparity/goparity/pkg/disk"
	"github.com/goparity/goparity/pkg/metrics"
	"github.com/goparity/goparity/pkg/paritystore"
	"github.com/goparity/goparity/pkg/progress"
)

// RunResult is the outcome of one StateSync invocation: the hash-pass
// and sync-pass results plus the block range that was actually
// addressed.
type RunResult struct {
	Blockstart block.Off
	Blockmax   block.Off
	Hash       HashResult
	Sync       Result
	// ExpectRecoverable echoes cfg.ExpectRecoverable, so a caller can
	// tell which sense of the return contract applied without having
	// to also thread the input Config through.
	ExpectRecoverable bool
}

// StateSync implements C7: the top-level driver that opens/resizes the
// parity stores, optionally runs the hash pass, runs the sync pass over
// [blockstart, blockmax), and closes every parity handle on every exit
// path.
func StateSync(
	ctx context.Context,
	cfg Config,
	parityCfg paritystore.Config,
	disks *disk.Map,
	info *blockinfo.Array,
	store content.Store,
	reporter progress.Reporter,
	m *metrics.Collectors,
	blockstart block.Off,
	blockcount uint64,
) (RunResult, error) {
	var result RunResult

	parity, err := openParityLevels(parityCfg, cfg.Level, cfg.BlockSize)
	if err != nil {
		return result, fatal("open parity", err)
	}
	defer closeParityLevels(parity)

	smallest, err := smallestAllocated(parity)
	if err != nil {
		return result, fatal("stat parity", err)
	}

	blockmax := disks.BlockMax()
	if blockcount != 0 && uint64(blockstart)+blockcount < uint64(blockmax) {
		blockmax = block.Off(uint64(blockstart) + blockcount)
	}

	if !cfg.ForceFull && smallest < uint64(blockmax) && smallest > 0 {
		return result, fatal("state sync", ErrParityNotMounted)
	}

	for _, p := range parity {
		if err := p.Chsize(uint64(blockmax)); err != nil {
			return result, fatal("resize parity", err)
		}
	}

	e := New(cfg, disks, info, parity, store, reporter, m)

	result.Blockstart = blockstart
	result.Blockmax = blockmax

	runID := uuid.New().String()
	lc := logger.NewLogContext(runID)

	startCtx := logger.WithContext(ctx, lc.WithPhase("state_sync"))
	logger.InfoCtx(startCtx, "state sync starting",
		logger.BlockCount(uint64(blockmax-blockstart)), logger.ParityLevel(cfg.Level))

	if cfg.Prehash {
		hashCtx := logger.WithContext(ctx, lc.WithPhase("hash_process"))
		hashResult, err := e.HashProcess(hashCtx, blockstart, blockmax)
		if err != nil {
			return result, err
		}
		result.Hash = hashResult
		if hashResult.SkipSync {
			logger.WarnCtx(hashCtx, "prehash pass requested early termination, skipping sync pass")
			result.ExpectRecoverable = cfg.ExpectRecoverable
			return result, nil
		}
		if hashResult.Dirty {
			autosaveCtx := logger.WithContext(ctx, lc.WithPhase("autosave"))
			if err := e.autosave(autosaveCtx); err != nil {
				return result, err
			}
		}
	}

	syncCtx := logger.WithContext(ctx, lc.WithPhase("sync_process"))
	syncResult, err := e.SyncProcess(syncCtx, blockstart, blockmax)
	result.Sync = syncResult
	if err != nil {
		return result, err
	}

	if e.dirty {
		autosaveCtx := logger.WithContext(ctx, lc.WithPhase("autosave"))
		if err := e.autosave(autosaveCtx); err != nil {
			return result, err
		}
	}

	logger.InfoCtx(startCtx, "state sync finished",
		logger.Count(uint32(syncResult.Committed)), logger.BlockCount(uint64(blockmax-blockstart)))

	result.ExpectRecoverable = cfg.ExpectRecoverable
	return result, nil
}

// SawRecoverableCondition reports whether this run recorded a per-block
// error, silent error, or IO error anywhere in the hash or sync pass —
// the condition the state_sync return contract calls "recoverable" as
// opposed to the fatal errors StateSync already returns as a Go error.
func (r RunResult) SawRecoverableCondition() bool {
	return r.Hash.Errors > 0 || r.Sync.Errors > 0 || r.Sync.SilentErrors > 0 || r.Sync.IOErrors > 0
}

// Succeeded applies the state_sync return contract to this run: 0/true
// on success, -1/false on unrecoverable error, with ExpectRecoverable
// inverting the sense so a test asserting a recoverable condition fails
// if that condition never actually occurred.
func (r RunResult) Succeeded() bool {
	if r.ExpectRecoverable {
		return r.SawRecoverableCondition()
	}
	return !r.SawRecoverableCondition()
}

func openParityLevels(cfg paritystore.Config, level, blockSize int) ([]*paritystore.Store, error) {
	stores := make([]*paritystore.Store, 0, level)
	for l := 0; l < level; l++ {
		s, err := paritystore.Create(cfg, l, blockSize)
		if err != nil {
			closeParityLevels(stores)
			return nil, fmt.Errorf("level %d: %w", l, err)
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func closeParityLevels(stores []*paritystore.Store) {
	for _, s := range stores {
		_ = s.Close()
	}
}

func smallestAllocated(stores []*paritystore.Store) (uint64, error) {
	var smallest uint64
	for i, s := range stores {
		sz, err := s.AllocatedSize()
		if err != nil {
			return 0, err
		}
		if i == 0 || sz < smallest {
			smallest = sz
		}
	}
	return smallest, nil
}
