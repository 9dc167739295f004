package hashalgo

import "testing"

func TestDigest_IsZeroIsReal(t *testing.T) {
	var zero Digest
	nonzero := Digest{1}

	if !IsZero(zero) {
		t.Error("IsZero(zero digest) = false, want true")
	}
	if IsReal(zero) {
		t.Error("IsReal(zero digest) = true, want false")
	}
	if IsZero(nonzero) {
		t.Error("IsZero(nonzero digest) = true, want false")
	}
	if !IsReal(nonzero) {
		t.Error("IsReal(nonzero digest) = false, want true")
	}
}

func TestBlake2b_Deterministic(t *testing.T) {
	var seed [SeedSize]byte
	copy(seed[:], "0123456789abcdef")
	data := []byte("some block data")

	a := Blake2b{}
	d1 := a.Sum(seed, data)
	d2 := a.Sum(seed, data)

	if d1 != d2 {
		t.Errorf("Blake2b.Sum() not deterministic: %x != %x", d1, d2)
	}
	if IsZero(d1) {
		t.Error("Blake2b.Sum() produced the zero digest for non-empty input")
	}
	if a.ID() != IDBlake2b {
		t.Errorf("Blake2b.ID() = %v, want IDBlake2b", a.ID())
	}
}

func TestBlake2b_SeedChangesDigest(t *testing.T) {
	var seed1, seed2 [SeedSize]byte
	copy(seed1[:], "seed-one-16bytes")
	copy(seed2[:], "seed-two-16bytes")
	data := []byte("identical payload")

	a := Blake2b{}
	d1 := a.Sum(seed1, data)
	d2 := a.Sum(seed2, data)

	if d1 == d2 {
		t.Error("Blake2b.Sum() produced the same digest for two different seeds")
	}
}

func TestXXHash_Deterministic(t *testing.T) {
	var seed [SeedSize]byte
	copy(seed[:], "0123456789abcdef")
	data := []byte("some block data")

	a := XXHash{}
	d1 := a.Sum(seed, data)
	d2 := a.Sum(seed, data)

	if d1 != d2 {
		t.Errorf("XXHash.Sum() not deterministic: %x != %x", d1, d2)
	}
	if a.ID() != IDXXHash {
		t.Errorf("XXHash.ID() = %v, want IDXXHash", a.ID())
	}
}

func TestXXHash_TrailingBytesZero(t *testing.T) {
	var seed [SeedSize]byte
	a := XXHash{}
	d := a.Sum(seed, []byte("data"))

	for i := 8; i < Size; i++ {
		if d[i] != 0 {
			t.Errorf("XXHash.Sum() byte %d = %d, want 0 (only 8 bytes of entropy)", i, d[i])
		}
	}
}

func TestForID(t *testing.T) {
	tests := []struct {
		id       ID
		wantID   ID
	}{
		{IDBlake2b, IDBlake2b},
		{IDXXHash, IDXXHash},
		{ID(99), IDBlake2b}, // unknown IDs default to Blake2b
	}

	for _, tc := range tests {
		algo := ForID(tc.id)
		if algo.ID() != tc.wantID {
			t.Errorf("ForID(%v).ID() = %v, want %v", tc.id, algo.ID(), tc.wantID)
		}
	}
}
