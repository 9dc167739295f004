// Package disk models the ordered collection of data disks a sync run
// iterates over: the per-disk block arena plus the map that materialises
// disk slots for one run (C3).
package disk

import (
	"github.com/goparity/goparity/pkg/block"
)

// Disk is a named collection of blocks indexed 0..blockmax, backed by a
// directory on the local filesystem.
type Disk struct {
	Name   string
	Dir    string
	blocks map[block.Off]*block.Block
}

// New creates an empty disk named name, mounted at dir.
func New(name, dir string) *Disk {
	return &Disk{Name: name, Dir: dir, blocks: make(map[block.Off]*block.Block)}
}

// Get returns the block at i, or nil if the disk has no slot there
// (equivalent to an implicit Empty block with no entity allocated).
func (d *Disk) Get(i block.Off) *block.Block {
	if d == nil {
		return nil
	}
	return d.blocks[i]
}

// Set stores the block at i.
func (d *Disk) Set(i block.Off, b *block.Block) {
	d.blocks[i] = b
}

// BlockMax returns one past the highest populated index on this disk.
func (d *Disk) BlockMax() block.Off {
	var max block.Off
	for i := range d.blocks {
		if i+1 > max {
			max = i + 1
		}
	}
	return max
}

// Map is the ordered list of data-disk slots materialised for one sync
// run, plus diskmax (the number of data disks participating).
type Map struct {
	Disks []*Disk
}

// NewMap builds a Map over disks in the given order.
func NewMap(disks ...*Disk) *Map {
	return &Map{Disks: disks}
}

// DiskMax returns the number of data disks in the run.
func (m *Map) DiskMax() int {
	return len(m.Disks)
}

// BlockMax returns one past the highest index used by any disk in the
// map.
func (m *Map) BlockMax() block.Off {
	var max block.Off
	for _, d := range m.Disks {
		if bm := d.BlockMax(); bm > max {
			max = bm
		}
	}
	return max
}
