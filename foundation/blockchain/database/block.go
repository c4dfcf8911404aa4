package database

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// cancelCheck is the number of hash attempts between checks of the
// mining context.
const cancelCheck = 1 << 10

// hashLength is the number of hex characters produced by every supported
// hash algorithm.
const hashLength = 64

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Block number in the chain, starting at 0.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was mined in milliseconds.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader `json:"header"`
	Hash   string      `json:"hash"`
	Trans  []Tx        `json:"trans"`
}

// NewBlock constructs an unsealed block with a nonce of zero and the hash
// for that nonce.
func NewBlock(number uint64, timeStamp uint64, trans []Tx, prevBlockHash string, hasher Hasher) Block {
	nb := Block{
		Header: BlockHeader{
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     timeStamp,
		},
		Trans: cloneTrans(trans),
	}
	nb.Hash = nb.RecomputeHash(hasher)

	return nb
}

// RecomputeHash returns the hash for the current field values of the block.
func (b Block) RecomputeHash(hasher Hasher) string {
	return hasher.Hash(b.Header.Number, b.Header.PrevBlockHash, b.Header.TimeStamp, b.Trans, b.Header.Nonce)
}

// IsSolved reports whether the block hash meets the difficulty.
func (b Block) IsSolved(difficulty uint) bool {
	return isHashSolved(difficulty, b.Hash)
}

// clone returns a copy of the block that shares no memory with the original.
func (b Block) clone() Block {
	b.Trans = cloneTrans(b.Trans)
	return b
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Hasher     Hasher
	Difficulty uint
	PrevBlock  Block
	Trans      []Tx
	TimeStamp  uint64
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block from the transactions and performs the work to
// find a nonce that solves the cryptographic POW puzzle. The transactions are
// sealed as part of the block.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if args.Difficulty > hashLength {
		return Block{}, fmt.Errorf("difficulty %d can't be solved by a %d character hash", args.Difficulty, hashLength)
	}

	trans := make([]Tx, len(args.Trans))
	for i, tx := range args.Trans {
		trans[i] = tx.Seal()
	}

	timeStamp := args.TimeStamp
	if timeStamp == 0 {
		timeStamp = uint64(time.Now().UTC().UnixMilli())
	}

	nb := NewBlock(args.PrevBlock.Header.Number+1, timeStamp, trans, args.PrevBlock.Hash, args.Hasher)

	if err := nb.performPOW(ctx, args.Hasher, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, hasher Hasher, difficulty uint, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, difficulty)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Header.Number)

	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	if ctx.Err() != nil {
		ev("database: PerformPOW: MINING: CANCELLED")
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	prefix := hasher.prefix(b.Header.Number, b.Header.PrevBlockHash, b.Header.TimeStamp, b.Trans)

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		attempts++

		hash := hasher.hashNonce(prefix, nonce)
		if isHashSolved(difficulty, hash) {
			b.Header.Nonce = nonce
			b.Hash = hash

			ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
			return nil
		}

		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if attempts%cancelCheck == 0 && ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", attempts)
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
	}
}

// isHashSolved checks the hash to make sure it complies with the POW
// rules. We need to match a difficulty number of leading 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if int(difficulty) > len(hash) {
		return false
	}

	for i := range int(difficulty) {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// =============================================================================

// ValidateArgs represents the set of rules blocks are checked against.
type ValidateArgs struct {
	Hasher     Hasher
	Difficulty uint
	VerifyPOW  bool
}

// ValidateBlock takes a block and validates it to be the next block after
// the previous block.
func ValidateBlock(block Block, prevBlock Block, args ValidateArgs) error {
	if hash := block.RecomputeHash(args.Hasher); hash != block.Hash {
		return fmt.Errorf("%w: blk[%d]: hash doesn't match content, got %s, exp %s", ErrInvalidBlock, block.Header.Number, block.Hash, hash)
	}

	if block.Header.Number != prevBlock.Header.Number+1 {
		return fmt.Errorf("%w: blk[%d]: not the next number, exp %d", ErrChainLinkage, block.Header.Number, prevBlock.Header.Number+1)
	}

	if block.Header.PrevBlockHash != prevBlock.Hash {
		return fmt.Errorf("%w: blk[%d]: parent hash doesn't match, got %s, exp %s", ErrChainLinkage, block.Header.Number, block.Header.PrevBlockHash, prevBlock.Hash)
	}

	if args.VerifyPOW && !block.IsSolved(args.Difficulty) {
		return fmt.Errorf("%w: blk[%d]: hash %s doesn't solve difficulty %d", ErrInvalidBlock, block.Header.Number, block.Hash, args.Difficulty)
	}

	for _, tx := range block.Trans {
		if tx.Status != TxSealed {
			return fmt.Errorf("%w: blk[%d]: tx[%s] is not sealed", ErrInvalidBlock, block.Header.Number, tx.ID)
		}

		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: blk[%d]: %w", ErrInvalidBlock, block.Header.Number, err)
		}
	}

	return nil
}

// =============================================================================

func cloneTrans(trans []Tx) []Tx {
	if trans == nil {
		return []Tx{}
	}
	return slices.Clone(trans)
}
