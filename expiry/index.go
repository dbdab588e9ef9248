// Package expiry implements the reverse expiry index shared by the voting
// rounds and the disputes: a mapping from a future block number to the
// bounded list of entries due to close at that block. Entries are opaque
// strings; callers encode their own tuples.
//
// Removal is deliberately best-effort. The forward state (round or dispute
// record) stays authoritative, a stale bucket entry is ignored by the sweep,
// never treated as an error.
package expiry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
)

// ErrBucketFull signals that a per-block bucket has reached its hard
// capacity. Callers surface this as a retry-next-block condition.
var ErrBucketFull = errors.New("expiry bucket full")

type Index struct {
	store    Store
	prefix   byte
	capacity int
}

// Store is the slice of the state store the index needs.
type Store interface {
	Set(key, value string)
	Get(key string) *string
	Delete(key string)
}

func New(store Store, prefix byte, capacity int) *Index {
	return &Index{store: store, prefix: prefix, capacity: capacity}
}

// bucketKey packs prefix + big-endian block so buckets sort by height.
func (ix *Index) bucketKey(block uint64) string {
	var buf [9]byte
	buf[0] = ix.prefix
	binary.BigEndian.PutUint64(buf[1:], block)
	return string(buf[:])
}

func (ix *Index) bucket(block uint64) []string {
	ptr := ix.store.Get(ix.bucketKey(block))
	if ptr == nil || *ptr == "" {
		return nil
	}
	var entries []string
	if err := json.Unmarshal([]byte(*ptr), &entries); err != nil {
		// A corrupt bucket only costs the sweep, not the forward state.
		return nil
	}
	return entries
}

func (ix *Index) put(block uint64, entries []string) {
	if len(entries) == 0 {
		ix.store.Delete(ix.bucketKey(block))
		return
	}
	b, err := json.Marshal(entries)
	if err != nil {
		panic(err)
	}
	ix.store.Set(ix.bucketKey(block), string(b))
}

// Insert registers an entry under the given block. Duplicate entries are kept
// out so a re-registered key cannot be swept twice.
func (ix *Index) Insert(block uint64, entry string) error {
	entries := ix.bucket(block)
	for _, e := range entries {
		if e == entry {
			return nil
		}
	}
	if len(entries) >= ix.capacity {
		return ErrBucketFull
	}
	ix.put(block, append(entries, entry))
	return nil
}

// Remove drops an entry from its bucket. Missing buckets or entries are a
// silent no-op.
func (ix *Index) Remove(block uint64, entry string) {
	entries := ix.bucket(block)
	if len(entries) == 0 {
		return
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e == entry {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if found {
		ix.put(block, kept)
	}
}

// Drain takes and deletes the whole bucket for a block. The per-block sweep
// cost is bounded by the bucket capacity.
func (ix *Index) Drain(block uint64) []string {
	entries := ix.bucket(block)
	if len(entries) > 0 {
		ix.store.Delete(ix.bucketKey(block))
	}
	return entries
}

// Entries peeks at a bucket without consuming it.
func (ix *Index) Entries(block uint64) []string {
	return ix.bucket(block)
}
