package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"
)

// Set of hash algorithms that can be used to hash blocks.
const (
	SHA256    = "sha256"
	Keccak256 = "keccak256"
)

// ZeroHash represents the previous block hash carried by the genesis block.
const ZeroHash string = "0"

// =============================================================================

// Hasher produces the content hash for a block. The zero value hashes
// with SHA256.
type Hasher struct {
	algorithm string
	sum       func(data []byte) []byte
}

// NewHasher constructs a hasher for the specified algorithm. An empty
// algorithm selects SHA256.
func NewHasher(algorithm string) (Hasher, error) {
	switch algorithm {
	case "", SHA256:
		return Hasher{algorithm: SHA256, sum: sha256Sum}, nil

	case Keccak256:
		return Hasher{algorithm: Keccak256, sum: keccak256Sum}, nil
	}

	return Hasher{}, fmt.Errorf("unknown hash algorithm %q", algorithm)
}

// Algorithm returns the name of the hash algorithm in use.
func (h Hasher) Algorithm() string {
	if h.algorithm == "" {
		return SHA256
	}
	return h.algorithm
}

// Hash returns the hex encoded digest for the set of block fields. The
// fields are concatenated in a fixed order and the transactions are
// serialized as JSON, so the same values always produce the same hash.
func (h Hasher) Hash(number uint64, prevBlockHash string, timeStamp uint64, trans []Tx, nonce uint64) string {
	return h.hashNonce(h.prefix(number, prevBlockHash, timeStamp, trans), nonce)
}

// prefix builds the portion of the hash input that doesn't change while
// the nonce is being searched for.
func (h Hasher) prefix(number uint64, prevBlockHash string, timeStamp uint64, trans []Tx) []byte {
	if trans == nil {
		trans = []Tx{}
	}

	data, err := json.Marshal(trans)
	if err != nil {
		data = []byte("[]")
	}

	buf := make([]byte, 0, 64+len(prevBlockHash)+len(data))
	buf = strconv.AppendUint(buf, number, 10)
	buf = append(buf, prevBlockHash...)
	buf = strconv.AppendUint(buf, timeStamp, 10)
	buf = append(buf, data...)

	return buf
}

// hashNonce appends the nonce to the prefix and hashes the result.
func (h Hasher) hashNonce(prefix []byte, nonce uint64) string {
	sum := h.sum
	if sum == nil {
		sum = sha256Sum
	}

	data := strconv.AppendUint(prefix[:len(prefix):len(prefix)], nonce, 10)
	return hex.EncodeToString(sum(data))
}

// =============================================================================

func sha256Sum(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}

func keccak256Sum(data []byte) []byte {
	return crypto.Keccak256(data)
}
