package engine

import (
	"context"
	"time"

	"github.com/goparity/goparity/internal/logger"
	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/blockinfo"
	"github.com/goparity/goparity/pkg/content"
	"github.com/goparity/goparity/pkg/raidcodec"
)

// Result summarizes one SyncProcess invocation.
type Result struct {
	Committed    int
	Errors       int
	SilentErrors int
	IOErrors     int
	FixedErrors  int
	Autosaves    int
	Bailed       bool
}

// failedEntry records one disk slot whose block had invalid parity (or
// failed its hash check) at the index currently being synced.
type failedEntry struct {
	diskIdx int
	blk     *block.Block
}

// rehashStash holds a freshly computed current-algorithm hash for a
// block whose stored hash still used the previous algorithm; it is
// only applied once the index commits cleanly.
type rehashStash struct {
	blk  *block.Block
	hash block.Hash
}

// SyncProcess implements C5/C6: the central per-index loop that
// verifies existing blocks, recovers silently corrupted ones via RAID
// reconstruction, and regenerates parity for indices that changed,
// checkpointing periodically per the autosave threshold.
func (e *Engine) SyncProcess(ctx context.Context, blockstart, blockmax block.Off) (Result, error) {
	var result Result
	defer e.closeAll()

	if blockstart == blockmax {
		return result, nil
	}
	if blockstart > blockmax {
		return result, fatal("sync bounds", ErrBlockStartAfterBlockMax)
	}

	// A bail path still syncs every parity level once; a failure there
	// does not replace the error already being returned.
	finished := false
	defer func() {
		if !finished {
			for _, p := range e.parity {
				_ = p.Sync()
			}
		}
	}()

	diskmax := e.disks.DiskMax()
	level := e.cfg.Level
	buffers := make([][]byte, diskmax+level)
	for k := range buffers {
		buffers[k] = make([]byte, e.cfg.BlockSize)
	}

	autosaveLimit := e.cfg.AutosaveLimit(diskmax)
	var autosaveDone uint64
	var ioErrorTotal int

	e.reporter.Begin(uint64(blockmax - blockstart))

	for i := blockstart; i < blockmax; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if e.enabled(i) {
			if err := e.syncIndex(ctx, i, diskmax, level, buffers, &ioErrorTotal, &result); err != nil {
				result.Bailed = true
				return result, err
			}
		}

		if e.cfg.ForceAutosaveAt >= 0 && int64(i) == e.cfg.ForceAutosaveAt {
			if err := e.autosave(ctx); err != nil {
				return result, err
			}
			result.Autosaves++
			autosaveDone = 0
		} else if autosaveLimit > 0 {
			autosaveDone++
			remaining := uint64(blockmax - i - 1)
			if autosaveDone >= autosaveLimit && remaining >= autosaveLimit {
				if err := e.autosave(ctx); err != nil {
					return result, err
				}
				result.Autosaves++
				autosaveDone = 0
			}
		}

		if e.reporter.Update(uint64(i - blockstart + 1)) {
			break
		}
	}

	finished = true
	for _, p := range e.parity {
		if err := p.Sync(); err != nil {
			return result, fatal("final parity sync", err)
		}
	}
	e.reporter.End()

	return result, nil
}

// enabled reports whether index i needs any attention at all: whether
// any disk has a live file there. Every such index is re-verified on
// every sync pass (not only ones with invalid parity) so that silent
// corruption on an already-BLK block, or a pending rehash, surfaces
// even when nothing structurally changed since the last run — see the
// rehash/silent-corruption Open Question decision in DESIGN.md.
func (e *Engine) enabled(i block.Off) bool {
	for _, d := range e.disks.Disks {
		if d.Get(i).HasFile() {
			return true
		}
	}
	return false
}

// syncIndex runs the per-disk verification sub-loop, an optional
// recovery attempt, and the parity generate/commit step for a single
// index. Only fatal conditions are returned as errors; everything else
// is folded into the per-index flags and the running Result counters.
func (e *Engine) syncIndex(ctx context.Context, i block.Off, diskmax, level int, buffers [][]byte, ioErrorTotal *int, result *Result) error {
	pendingRehash := make(map[int]rehashStash)
	rehashPending := e.info.GetRehash(uint32(i))

	var failed []failedEntry
	var errorOnThisBlock, ioErrorOnThisBlock, silentErrorOnThisBlock bool
	parityNeedsUpdate := e.info.GetBad(uint32(i))

	for j, d := range e.disks.Disks {
		b := d.Get(i)
		buf := buffers[j]

		if b == nil {
			raidcodec.Zero(buf)
			continue
		}

		if b.HasInvalidParity() {
			failed = append(failed, failedEntry{diskIdx: j, blk: b})
			if b.State != block.Chg {
				parityNeedsUpdate = true
			}
		}

		if !b.HasFile() {
			raidcodec.Zero(buf)
			continue
		}

		h, oerr := e.ensureOpen(j, b.File)
		if oerr != nil {
			switch classifyOpenErr(oerr) {
			case classWarn:
				logger.WarnCtx(ctx, "file missing or modified during sync",
					logger.Disk(d.Name), logger.BlockIdx(uint64(i)), logger.Err(oerr))
				errorOnThisBlock = true
				continue
			default:
				return fatal("sync open", oerr)
			}
		}

		off := int64(b.FilePos) * int64(e.cfg.BlockSize)
		if rerr := h.ReadBlockAt(buf, off); rerr != nil {
			if classifyOpenErr(rerr) == classIO {
				*ioErrorTotal++
				if e.cfg.IOErrorLimit == 0 || *ioErrorTotal < e.cfg.IOErrorLimit {
					logger.WarnCtx(ctx, "read error during sync",
						logger.Disk(d.Name), logger.BlockIdx(uint64(i)), logger.Err(rerr))
					ioErrorOnThisBlock = true
					continue
				}
				return fatal("sync read", ErrTooManyIOErrors)
			}
			return fatal("sync read", rerr)
		}

		compareAlgo, compareSeed := e.cfg.HashAlgo, e.cfg.HashSeed
		if rehashPending {
			compareAlgo, compareSeed = e.cfg.PrevHashAlgo, e.cfg.PrevHashSeed
		}
		fresh := block.Hash(compareAlgo.Sum(compareSeed, buf))

		if rehashPending {
			newHash := block.Hash(e.cfg.HashAlgo.Sum(e.cfg.HashSeed, buf))
			pendingRehash[j] = rehashStash{blk: b, hash: newHash}
		}

		if b.HasUpdatedHash() {
			if fresh != b.Hash {
				if b.HasInvalidParity() {
					logger.WarnCtx(ctx, "data changed on a block already pending a parity rewrite",
						logger.Disk(d.Name), logger.BlockIdx(uint64(i)))
					errorOnThisBlock = true
					continue
				}
				silentErrorOnThisBlock = true
				failed = append(failed, failedEntry{diskIdx: j, blk: b})
				continue
			}
			continue
		}

		if !parityNeedsUpdate && (b.Hash.IsZero() || b.Hash != fresh) {
			parityNeedsUpdate = true
		}
		b.Hash = fresh
	}

	fixedErrorOnThisBlock := false
	if silentErrorOnThisBlock && !errorOnThisBlock && !ioErrorOnThisBlock {
		fixed, rerr := e.attemptRecovery(diskmax, level, i, buffers, failed)
		if rerr != nil {
			return rerr
		}
		fixedErrorOnThisBlock = fixed
	}

	okToCommitParity := !errorOnThisBlock && !ioErrorOnThisBlock && (!silentErrorOnThisBlock || fixedErrorOnThisBlock)

	parityWritten := false
	parityIOError := false
	if okToCommitParity && parityNeedsUpdate {
		if err := raidcodec.Gen(diskmax, level, buffers); err != nil {
			return fatal("raid gen", err)
		}
		for l := 0; l < level; l++ {
			if werr := e.parity[l].WriteBlock(uint64(i), buffers[diskmax+l]); werr != nil {
				if classifyOpenErr(werr) == classIO {
					*ioErrorTotal++
					if e.cfg.IOErrorLimit != 0 && *ioErrorTotal >= e.cfg.IOErrorLimit {
						return fatal("parity write", ErrTooManyIOErrors)
					}
					parityIOError = true
					continue
				}
				return fatal("parity write", werr)
			}
		}
		parityWritten = !parityIOError
	}

	if okToCommitParity && !parityIOError && (parityWritten || !parityNeedsUpdate) {
		e.commitTransitions(i, parityWritten)
	}

	// A clean commit needs either a successful parity rewrite or no
	// rewrite to have been necessary in the first place (the
	// rehash-only case: all blocks already BLK, nothing but the stored
	// hash changes). A silent error excludes the clean path even when
	// attemptRecovery fixed it, so a reconstructed index still comes
	// back bad next run instead of looking untouched.
	cleanCommit := (parityWritten || !parityNeedsUpdate) && !parityIOError &&
		!errorOnThisBlock && !ioErrorOnThisBlock && !silentErrorOnThisBlock
	rehashApplied := false
	if cleanCommit {
		for _, stash := range pendingRehash {
			stash.blk.Hash = stash.hash
			rehashApplied = true
		}
	}

	// info[i].timestamp only moves for an index whose parity was
	// actually rewritten. Adopting a rehash stash without a rewrite
	// clears the rehash flag and keeps the old timestamp. A plain
	// re-verify of an already-BLK index with nothing pending leaves its
	// info entry (or absence of one) untouched.
	if parityWritten {
		e.info.Set(uint32(i), blockinfo.Make(time.Now().Unix(), false, false))
	} else if rehashApplied {
		e.info.Set(uint32(i), blockinfo.Make(e.info.Get(uint32(i)).Timestamp, false, false))
	}

	hadErrorAtIndex := errorOnThisBlock || ioErrorOnThisBlock || silentErrorOnThisBlock || parityIOError
	if hadErrorAtIndex {
		e.info.SetBad(uint32(i))
	}

	// An index only counts as "committed" when it actually mattered:
	// parity was rewritten, an error of some kind was recorded, or a
	// pending rehash was adopted. A plain re-verification that found
	// nothing wrong leaves no trace in the result, matching "sync twice
	// with no change makes no writes".
	if parityWritten || hadErrorAtIndex || rehashApplied {
		result.Committed++
	}

	if errorOnThisBlock {
		result.Errors++
	}
	if ioErrorOnThisBlock || parityIOError {
		result.IOErrors++
	}
	if silentErrorOnThisBlock {
		result.SilentErrors++
	}
	if fixedErrorOnThisBlock {
		result.FixedErrors++
	}
	if e.metrics != nil {
		e.metrics.BlocksProcessed.Inc()
		if errorOnThisBlock {
			e.metrics.Errors.Inc()
		}
		if silentErrorOnThisBlock {
			e.metrics.SilentErrors.Inc()
		}
		if ioErrorOnThisBlock || parityIOError {
			e.metrics.IOErrors.Inc()
		}
		if fixedErrorOnThisBlock {
			e.metrics.FixedErrors.Inc()
		}
	}

	// Dirty tracks whether the content store needs a rewrite, which is
	// true under exactly the same condition as "this index committed" —
	// a plain re-verify that changed nothing must not force a save.
	e.dirty = e.dirty || parityWritten || hadErrorAtIndex || rehashApplied
	return nil
}

// commitTransitions applies the per-disk block-state table for index i
// now that the parity at i is known consistent with its data disks.
func (e *Engine) commitTransitions(i block.Off, parityWritten bool) {
	for _, d := range e.disks.Disks {
		b := d.Get(i)
		if b == nil {
			continue
		}
		switch b.State {
		case block.Deleted:
			if parityWritten {
				d.Set(i, nil)
			}
		case block.Chg, block.Rep:
			b.State = block.Blk
		}
	}
}

// attemptRecovery rebuilds the shards named by failed via RAID
// reconstruction, checks every reconstructed BLK against its stored
// hash, then restores every reconstructed buffer to its pre-recovery
// content regardless of outcome: sync is only ever allowed to correct
// parity, never the data disk it read from (see DESIGN.md's decision
// on the "discard-then-restore" behaviour).
func (e *Engine) attemptRecovery(diskmax, level int, i block.Off, buffers [][]byte, failed []failedEntry) (fixed bool, err error) {
	if len(failed) == 0 {
		return false, nil
	}

	failedMap := make([]int, 0, len(failed))
	scratch := make(map[int][]byte, len(failed))
	blkCount := 0

	for _, fe := range failed {
		if fe.blk.State == block.Chg && fe.blk.Hash.IsZero() {
			raidcodec.Zero(buffers[fe.diskIdx])
			continue
		}
		if len(failedMap) >= level {
			return false, nil
		}
		buf := make([]byte, len(buffers[fe.diskIdx]))
		copy(buf, buffers[fe.diskIdx])
		scratch[fe.diskIdx] = buf
		failedMap = append(failedMap, fe.diskIdx)
		if fe.blk.State == block.Blk {
			blkCount++
		}
	}

	if blkCount == 0 {
		return false, nil
	}

	for l := 0; l < level; l++ {
		if err := e.parity[l].ReadBlock(uint64(i), buffers[diskmax+l]); err != nil {
			return false, fatal("parity read for recovery", err)
		}
	}

	if err := raidcodec.Rec(level, failedMap, diskmax, level, buffers); err != nil {
		return false, nil
	}

	rehashPending := e.info.GetRehash(uint32(i))
	algo, seed := e.cfg.HashAlgo, e.cfg.HashSeed
	if rehashPending {
		algo, seed = e.cfg.PrevHashAlgo, e.cfg.PrevHashSeed
	}

	matched := true
	for _, fe := range failed {
		if fe.blk.State != block.Blk {
			continue
		}
		got := block.Hash(algo.Sum(seed, buffers[fe.diskIdx]))
		if got != fe.blk.Hash {
			matched = false
			break
		}
	}

	for idx, buf := range scratch {
		copy(buffers[idx], buf)
	}

	return matched, nil
}

// autosave flushes every parity level to stable storage and persists
// the content-file document, implementing C6.
func (e *Engine) autosave(ctx context.Context) error {
	for _, p := range e.parity {
		if err := p.Sync(); err != nil {
			return fatal("autosave parity sync", err)
		}
	}
	doc := e.buildDocument()
	if err := e.store.Save(ctx, doc); err != nil {
		return fatal("autosave state write", err)
	}
	if e.metrics != nil {
		e.metrics.AutosaveTotal.Inc()
	}
	e.dirty = false
	return nil
}

// buildDocument renders the current in-memory disk map and info array
// into the content-file document shape.
func (e *Engine) buildDocument() *content.Document {
	doc := &content.Document{
		HashAlgo:     e.cfg.HashAlgo.ID(),
		HashSeed:     e.cfg.HashSeed,
		PrevHashAlgo: e.cfg.PrevHashAlgo.ID(),
		PrevHashSeed: e.cfg.PrevHashSeed,
	}

	for _, d := range e.disks.Disks {
		dd := content.DiskDoc{Name: d.Name, Dir: d.Dir}
		fileIdx := make(map[*block.File]int)
		bm := d.BlockMax()
		for i := block.Off(0); i < bm; i++ {
			b := d.Get(i)
			if b == nil {
				continue
			}
			fi := -1
			if b.File != nil {
				idx, ok := fileIdx[b.File]
				if !ok {
					idx = len(dd.Files)
					fileIdx[b.File] = idx
					dd.Files = append(dd.Files, content.FileDoc{
						Path:      b.File.Path,
						Size:      b.File.Size,
						MtimeSec:  b.File.MtimeSec,
						MtimeNsec: b.File.MtimeNsec,
						Inode:     b.File.Inode,
						IsCopy:    b.File.IsCopy,
					})
				}
				fi = idx
			}
			dd.Blocks = append(dd.Blocks, content.BlockDoc{
				Index:   uint32(i),
				State:   b.State,
				FileIdx: fi,
				FilePos: b.FilePos,
				Hash:    b.Hash,
			})
		}
		doc.Disks = append(doc.Disks, dd)
	}

	e.info.Range(func(i uint32, info blockinfo.Info) {
		doc.Info = append(doc.Info, content.InfoDoc{
			Index:     i,
			Timestamp: info.Timestamp,
			Bad:       info.Bad,
			Rehash:    info.Rehash,
		})
	})

	return doc
}
