// Package key derives the map keys the vault, orderbook and market packages
// index their records by. §6 requires the position key be reproducible by
// external systems from its three (or four) components, so it is hashed
// deterministically rather than left as a Go struct used only as a map key.
package key

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/sha3"
)

// ErrAccountEmpty and ErrTokenEmpty guard the component inputs every key
// derivation needs.
var (
	ErrAccountEmpty = errors.New("key: account is empty")
	ErrTokenEmpty   = errors.New("key: token is empty")
)

// Position is the 32-byte identifier of a (account, indexToken, isLong)
// triple — getPositionKey in §6, single-market form.
type Position [32]byte

// Request is the 32-byte identifier of a (account, perAccountIndex) pair —
// the Market/OrderBook request key in §3/§6.
type Request [32]byte

// GeneratePositionKey hashes account, indexToken and isLong into a Position
// key. The encoding is length-prefixed so "BTClong"/"BTCl"+"ong" style
// ambiguity between concatenated fields can never collide.
func GeneratePositionKey(account, indexToken string, isLong bool) (Position, error) {
	if account == "" {
		return Position{}, ErrAccountEmpty
	}
	if indexToken == "" {
		return Position{}, ErrTokenEmpty
	}
	h := sha3.NewLegacyKeccak256()
	writeLengthPrefixed(h, account)
	writeLengthPrefixed(h, indexToken)
	if isLong {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	var out Position
	copy(out[:], h.Sum(nil))
	return out, nil
}

// GenerateRequestKey hashes account and a per-account monotonic index into a
// Request key, used by both Market (delayed requests) and OrderBook
// (conditional orders) to name their records.
func GenerateRequestKey(account string, index uint64) (Request, error) {
	if account == "" {
		return Request{}, ErrAccountEmpty
	}
	h := sha3.NewLegacyKeccak256()
	writeLengthPrefixed(h, account)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	h.Write(idx[:])
	var out Request
	copy(out[:], h.Sum(nil))
	return out, nil
}

func writeLengthPrefixed(h interface{ Write([]byte) (int, error) }, s string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(s)))
	h.Write(length[:])
	h.Write([]byte(s))
}
