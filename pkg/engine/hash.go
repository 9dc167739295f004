package engine

import (
	"context"

	"github.com/goparity/goparity/internal/logger"
	"github.com/goparity/goparity/pkg/block"
)

// HashResult summarizes one hash-pass invocation.
type HashResult struct {
	// Dirty reports whether any block's hash/state was mutated, so the
	// caller knows whether a state_write is warranted.
	Dirty bool
	// SkipSync reports whether the progress callback requested early
	// termination; when true, the driver must not run the sync pass.
	SkipSync bool
	// Errors counts per-block warnings (stat mismatch, ENOENT/EACCES).
	Errors int
}

// HashProcess implements C4: for every CHG block in [blockstart,
// blockmax) on every disk, read the data and fill block.Hash, promoting
// the block to Rep without touching parity.
func (e *Engine) HashProcess(ctx context.Context, blockstart, blockmax block.Off) (HashResult, error) {
	var result HashResult
	var hashed uint64
	defer e.closeAll()

	for j, d := range e.disks.Disks {
		for i := blockstart; i < blockmax; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			b := d.Get(i)
			if b == nil || b.State != block.Chg {
				continue
			}

			h, err := e.ensureOpen(j, b.File)
			if err != nil {
				switch classifyOpenErr(err) {
				case classWarn:
					logger.WarnCtx(ctx, "file modified or missing during hash pass",
						logger.Disk(d.Name), logger.BlockIdx(uint64(i)), logger.Path(b.File.Path), logger.Err(err))
					result.Errors++
					e.info.SetBad(uint32(i))
					continue
				default:
					return result, fatal("hash pass open", err)
				}
			}

			buf := e.getBuf()
			off := int64(b.FilePos) * int64(e.cfg.BlockSize)
			if err := h.ReadBlockAt(buf, off); err != nil {
				e.putBuf(buf)
				return result, fatal("hash pass read", err)
			}

			algo, seed := e.cfg.HashAlgo, e.cfg.HashSeed
			if e.info.GetRehash(uint32(i)) {
				algo, seed = e.cfg.PrevHashAlgo, e.cfg.PrevHashSeed
			}
			sum := algo.Sum(seed, buf)
			e.putBuf(buf)

			b.Hash = block.Hash(sum)
			b.State = block.Rep
			result.Dirty = true
			e.dirty = true

			hashed++
			if e.reporter.Update(hashed) {
				result.SkipSync = true
				return result, nil
			}
		}
	}

	return result, nil
}

