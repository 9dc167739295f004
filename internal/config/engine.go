package config

import (
	"crypto/rand"
	"fmt"

	"github.com/goparity/goparity/pkg/disk"
	"github.com/goparity/goparity/pkg/engine"
	"github.com/goparity/goparity/pkg/hashalgo"
	"github.com/goparity/goparity/pkg/paritystore"
)

// BuildEngineConfig translates the loaded Config into an engine.Config,
// resolving the named hash algorithms and generating fresh random
// seeds for a first run.
//
// seed and prevSeed, when non-zero, are reused from a previously
// persisted content-file document so that hashes remain comparable
// across runs; pass zero values to mint fresh seeds.
func BuildEngineConfig(cfg *SyncConfig, seed, prevSeed [hashalgo.SeedSize]byte) (engine.Config, error) {
	algo, err := hashAlgoByName(cfg.HashAlgo)
	if err != nil {
		return engine.Config{}, err
	}
	prevAlgo, err := hashAlgoByName(cfg.PrevHashAlgo)
	if err != nil {
		return engine.Config{}, err
	}

	if seed == ([hashalgo.SeedSize]byte{}) {
		if _, err := rand.Read(seed[:]); err != nil {
			return engine.Config{}, fmt.Errorf("config: generate hash seed: %w", err)
		}
	}
	if prevSeed == ([hashalgo.SeedSize]byte{}) {
		prevSeed = seed
	}

	ec := engine.DefaultConfig()
	ec.BlockSize = int(cfg.BlockSize)
	ec.Level = cfg.ParityLevel
	ec.HashAlgo = algo
	ec.HashSeed = seed
	ec.PrevHashAlgo = prevAlgo
	ec.PrevHashSeed = prevSeed
	ec.AutosaveBytes = uint64(cfg.AutosaveBytes)
	ec.IOErrorLimit = cfg.IOErrorLimit
	ec.SkipFallocate = cfg.SkipFallocate
	ec.ForceFull = cfg.ForceFull
	ec.Prehash = cfg.Prehash
	ec.ForceAutosaveAt = -1
	return ec, nil
}

// BuildParityConfig translates the loaded Config into a
// paritystore.Config.
func BuildParityConfig(cfg *SyncConfig) paritystore.Config {
	pc := paritystore.DefaultConfig(cfg.ParityDir)
	pc.SkipFallocate = cfg.SkipFallocate
	return pc
}

// BuildDiskMap creates an empty disk.Map with one Disk per configured
// entry, in configuration order; callers populate block state by
// scanning each disk or loading a content-file document afterward.
func BuildDiskMap(disks []DiskConfig) *disk.Map {
	list := make([]*disk.Disk, 0, len(disks))
	for _, d := range disks {
		list = append(list, disk.New(d.Name, d.Dir))
	}
	return disk.NewMap(list...)
}

func hashAlgoByName(name string) (hashalgo.Algorithm, error) {
	switch name {
	case "blake2b":
		return hashalgo.Blake2b{}, nil
	case "xxhash":
		return hashalgo.XXHash{}, nil
	default:
		return nil, fmt.Errorf("config: unknown hash algorithm %q", name)
	}
}
