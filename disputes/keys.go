package disputes

import (
	"encoding/json"
	"strconv"

	"fundgate/host"
)

// Storage key prefixes, one byte each so records sit in disjoint ranges.
const (
	// kDispute stores encoded Dispute records.
	kDispute byte = 0x30
	// kFinaliseOn holds the per-block finalise buckets (managed by expiry.Index).
	kFinaliseOn byte = 0x31
)

// packU64LEInline sprinkles a uint64 into dst in little-endian order so our
// keys stay compact.
func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

// disputeKey builds the storage key for a dispute record.
func disputeKey(id DisputeKey) string {
	var buf [9]byte
	buf[0] = kDispute
	packU64LEInline(id, buf[1:])
	return string(buf[:])
}

// bucketEntry encodes a dispute key for the finalise bucket.
func bucketEntry(id DisputeKey) string {
	return strconv.FormatUint(id, 10)
}

// parseBucketEntry is the inverse; a garbled entry is skipped by the sweep.
func parseBucketEntry(s string) (DisputeKey, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil
}

func encodeDispute(d *Dispute) string {
	b, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func decodeDispute(data string) (*Dispute, error) {
	var d Dispute
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, err
	}
	if d.Votes == nil {
		d.Votes = make(map[host.Address]bool)
	}
	return &d, nil
}
