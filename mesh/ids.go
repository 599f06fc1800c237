// Package mesh implements a policy-gated convergence engine over a
// content-addressed expression graph. A fixed fleet of peer sites
// evaluates computations over opaque byte blobs, replicating data and
// results to whichever peers a pluggable policy reasoner admits.
package mesh

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Tag bytes folded into identity hashes to keep the id spaces of blobs,
// leaf expressions, and inner expressions disjoint.
const (
	tagData byte = 'D'
	tagLeaf byte = 'L'
	tagNode byte = 'I'
)

// Id is an opaque 64-bit fingerprint.
//
// Ids are derived by hashing, so any two sites computing the id of the
// same bytes or the same expression tree agree bit-for-bit. Collision
// resistance is not a goal; stable reproducibility across sites and runs
// is.
type Id struct {
	Bits uint64
}

// DataId identifies a blob by content hash.
type DataId struct{ Id }

// ExprId identifies an expression tree by structure.
type ExprId struct{ Id }

// SiteId identifies one site of the fleet. Assigned at bootstrap, not
// derived by hashing.
type SiteId struct{ Id }

// Sid constructs a SiteId from raw bits.
func Sid(bits uint64) SiteId {
	return SiteId{Id{Bits: bits}}
}

func (d DataId) String() string { return fmt.Sprintf("did:%016x", d.Bits) }
func (e ExprId) String() string { return fmt.Sprintf("eid:%016x", e.Bits) }
func (s SiteId) String() string { return fmt.Sprintf("sid:%016x", s.Bits) }

// idHasher accumulates tagged input and yields a 64-bit fingerprint: the
// first 8 bytes of a SHA-256 digest, big-endian. SHA-256 gives a stable
// byte-for-byte output everywhere; truncation to 64 bits is fine for a
// fingerprint that only needs reproducibility.
type idHasher struct {
	buf []byte
}

func (h *idHasher) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.buf = append(h.buf, b[:]...)
}

func (h *idHasher) writeByte(b byte) {
	h.buf = append(h.buf, b)
}

func (h *idHasher) writeBytes(b []byte) {
	h.buf = append(h.buf, b...)
}

func (h *idHasher) sum() uint64 {
	digest := sha256.Sum256(h.buf)
	return binary.BigEndian.Uint64(digest[:8])
}

// HashData computes the content id of a blob: H(tagData, bytes).
func HashData(data []byte) DataId {
	var h idHasher
	h.writeByte(tagData)
	h.writeBytes(data)
	return DataId{Id{Bits: h.sum()}}
}

// HashLeaf computes the id of the leaf expression wrapping a blob:
// H(did.bits, tagLeaf).
func HashLeaf(did DataId) ExprId {
	var h idHasher
	h.writeUint64(did.Bits)
	h.writeByte(tagLeaf)
	return ExprId{Id{Bits: h.sum()}}
}

// HashNode computes the id of an inner expression from its children's
// ids, in order: H(e1.bits, ..., en.bits, tagNode).
func HashNode(children []ExprId) ExprId {
	var h idHasher
	for _, c := range children {
		h.writeUint64(c.Bits)
	}
	h.writeByte(tagNode)
	return ExprId{Id{Bits: h.sum()}}
}
