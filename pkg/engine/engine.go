package engine

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"syscall"

	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/blockinfo"
	"github.com/goparity/goparity/pkg/content"
	"github.com/goparity/goparity/pkg/disk"
	"github.com/goparity/goparity/pkg/handle"
	"github.com/goparity/goparity/pkg/metrics"
	"github.com/goparity/goparity/pkg/paritystore"
	"github.com/goparity/goparity/pkg/progress"
)

// Engine runs the hash and sync passes (C4/C5/C6) over a disk map and
// parity store set. It is not safe for concurrent use by multiple
// goroutines; a single sync invocation is sequential by design (see
// SPEC_FULL.md §5).
type Engine struct {
	cfg    Config
	disks  *disk.Map
	info   *blockinfo.Array
	parity []*paritystore.Store
	store  content.Store

	reporter progress.Reporter
	metrics  *metrics.Collectors

	handles []*handle.Handle
	openSub []string

	bufPool sync.Pool

	dirty bool // content model mutated since last state_write
}

// New builds an Engine ready to run HashProcess/SyncProcess.
func New(cfg Config, disks *disk.Map, info *blockinfo.Array, parity []*paritystore.Store, store content.Store, reporter progress.Reporter, m *metrics.Collectors) *Engine {
	if reporter == nil {
		reporter = progress.Noop{}
	}

	e := &Engine{
		cfg:      cfg,
		disks:    disks,
		info:     info,
		parity:   parity,
		store:    store,
		reporter: reporter,
		metrics:  m,
		handles:  make([]*handle.Handle, disks.DiskMax()),
		openSub:  make([]string, disks.DiskMax()),
	}
	e.bufPool.New = func() any {
		return make([]byte, cfg.BlockSize)
	}
	return e
}

// getBuf draws a block-sized buffer from the pool.
func (e *Engine) getBuf() []byte {
	return e.bufPool.Get().([]byte)
}

// putBuf returns a block-sized buffer to the pool.
func (e *Engine) putBuf(buf []byte) {
	e.bufPool.Put(buf) //nolint:staticcheck // buffer reused verbatim, not resliced
}

// ensureOpen opens f on disk j if it is not already the currently open
// file for that disk slot, closing the previous handle first.
func (e *Engine) ensureOpen(j int, f *block.File) (*handle.Handle, error) {
	if f == nil {
		return nil, nil
	}
	if e.openSub[j] == f.Path && e.handles[j] != nil {
		return e.handles[j], nil
	}

	if e.handles[j] != nil {
		if err := e.handles[j].Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return nil, fatal("close handle", errors.Join(ErrHandleCloseFailed, err))
		}
		e.handles[j] = nil
		e.openSub[j] = ""
	}

	h, size, mtimeSec, mtimeNsec, inode, err := handle.Open(e.disks.Disks[j].Dir, f.Path)
	if err != nil {
		return nil, err
	}
	if !handle.StatMatches(f, size, mtimeSec, mtimeNsec, inode) {
		h.Close()
		return nil, handle.ErrModifiedDuringSync
	}

	e.handles[j] = h
	e.openSub[j] = f.Path
	return h, nil
}

// closeAll closes every open data-disk handle, counting (but not
// propagating) any error encountered along the way.
func (e *Engine) closeAll() {
	for j, h := range e.handles {
		if h == nil {
			continue
		}
		_ = h.Close()
		e.handles[j] = nil
		e.openSub[j] = ""
	}
}

// openErrClass classifies an open/read error into the three
// dispositions the specification's error table distinguishes.
type openErrClass int

const (
	classFatal openErrClass = iota
	classWarn               // ENOENT / EACCES
	classIO                 // EIO
)

func classifyOpenErr(err error) openErrClass {
	if err == nil {
		return classFatal
	}
	if errors.Is(err, syscall.EIO) {
		return classIO
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, handle.ErrModifiedDuringSync) {
		return classWarn
	}
	return classFatal
}
