package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Domain prefixes for derived addresses and content-addressed IDs.
// Version suffix enables future algorithm migration.
const (
	DomainState   = "reel/state/v1"
	DomainUser    = "reel/user/v1"
	DomainVideo   = "reel/video/v1"
	DomainComment = "reel/comment/v1"
	DomainEvent   = "reel/event/v1"
)

// Address is the hex-encoded storage key of a record.
type Address string

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// Short returns the first 12 hex characters, for log lines.
func (a Address) Short() string {
	if len(a) <= 12 {
		return string(a)
	}
	return string(a[:12])
}

// Identity is an authenticated caller identity, verified by the calling
// layer before it reaches the ledger. The ledger only compares identities.
type Identity string

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + len(p1) + p1 + len(p2) + p2 ...)
// The null byte separates domain from data; the 4-byte big-endian length
// prefixes keep part boundaries unambiguous.
func hashWithDomain(domain string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	var lenBuf [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func be64(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

// StateAddress derives the address of the platform state singleton.
func StateAddress() Address {
	return Address(hashWithDomain(DomainState))
}

// UserAddress derives the address of the user record owned by id.
// At most one user can exist per identity.
func UserAddress(id Identity) Address {
	return Address(hashWithDomain(DomainUser, []byte(id)))
}

// VideoAddress derives the address of the video with the given sequence
// index. Callers read the index from PlatformState.VideoCount.
func VideoAddress(seq uint64) Address {
	return Address(hashWithDomain(DomainVideo, be64(seq)))
}

// CommentAddress derives the address of a comment from its video's sequence
// index and its own per-video sequence index.
func CommentAddress(videoSeq, commentSeq uint64) Address {
	return Address(hashWithDomain(DomainComment, be64(videoSeq), be64(commentSeq)))
}
