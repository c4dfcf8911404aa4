package database

import (
	"fmt"
	"slices"
)

// genesisTimeStamp is the fixed time of the genesis block,
// 2024-01-01T00:00:00Z in milliseconds.
const genesisTimeStamp = 1704067200000

// GenesisBlock constructs the fixed first block of every chain. The
// genesis block is exempt from the proof of work.
func GenesisBlock(hasher Hasher) Block {
	return NewBlock(0, genesisTimeStamp, []Tx{}, ZeroHash, hasher)
}

// =============================================================================

// Chain is an ordered sequence of blocks anchored by the genesis block. A
// Chain value is never modified in place, Append returns a new value, so a
// copy can be read while a new block is being added.
type Chain struct {
	blocks []Block
}

// NewChain constructs a chain holding only the genesis block.
func NewChain(hasher Hasher) Chain {
	return Chain{blocks: []Block{GenesisBlock(hasher)}}
}

// ToChain constructs a chain from a set of blocks as they were stored. No
// validation is performed, use Validate before trusting the result.
func ToChain(blocks []Block) (Chain, error) {
	if len(blocks) == 0 {
		return Chain{}, ErrEmptyChain
	}

	cpy := make([]Block, len(blocks))
	for i, block := range blocks {
		cpy[i] = block.clone()
	}

	return Chain{blocks: cpy}, nil
}

// Len returns the number of blocks in the chain.
func (c Chain) Len() int {
	return len(c.blocks)
}

// Latest returns the block at the tail of the chain.
func (c Chain) Latest() (Block, error) {
	if len(c.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}

	return c.blocks[len(c.blocks)-1], nil
}

// Block returns the block for the specified number.
func (c Chain) Block(number uint64) (Block, error) {
	if number >= uint64(len(c.blocks)) {
		return Block{}, fmt.Errorf("block %d does not exist", number)
	}

	return c.blocks[number].clone(), nil
}

// Blocks returns a copy of the blocks in chain order.
func (c Chain) Blocks() []Block {
	out := make([]Block, len(c.blocks))
	for i, block := range c.blocks {
		out[i] = block.clone()
	}

	return out
}

// TotalTransactions returns the number of transactions sealed in the chain.
func (c Chain) TotalTransactions() int {
	var total int
	for _, block := range c.blocks {
		total += len(block.Trans)
	}

	return total
}

// Append returns a new chain with the block added to the tail. The block
// must carry the next number and the hash of the latest block.
func (c Chain) Append(block Block) (Chain, error) {
	latest, err := c.Latest()
	if err != nil {
		return Chain{}, err
	}

	if block.Header.Number != latest.Header.Number+1 {
		return Chain{}, fmt.Errorf("%w: got number %d, exp %d", ErrChainLinkage, block.Header.Number, latest.Header.Number+1)
	}

	if block.Header.PrevBlockHash != latest.Hash {
		return Chain{}, fmt.Errorf("%w: got parent %s, exp %s", ErrChainLinkage, block.Header.PrevBlockHash, latest.Hash)
	}

	// Clip forces append to allocate so readers of c are never affected.
	blocks := append(slices.Clip(c.blocks), block.clone())

	return Chain{blocks: blocks}, nil
}

// =============================================================================

// Validate replays the chain and returns an error describing the first
// block that doesn't hold up. The genesis block must match the fixed
// genesis content and every other block must pass ValidateBlock.
func Validate(chain Chain, args ValidateArgs) error {
	if len(chain.blocks) == 0 {
		return ErrEmptyChain
	}

	genesis := chain.blocks[0]
	if genesis.Hash != GenesisBlock(args.Hasher).Hash || genesis.RecomputeHash(args.Hasher) != genesis.Hash {
		return fmt.Errorf("%w: genesis block doesn't match", ErrInvalidBlock)
	}

	for i := 1; i < len(chain.blocks); i++ {
		if err := ValidateBlock(chain.blocks[i], chain.blocks[i-1], args); err != nil {
			return err
		}
	}

	return nil
}

// IsValid reports whether Validate finds no problems with the chain.
func IsValid(chain Chain, args ValidateArgs) bool {
	return Validate(chain, args) == nil
}
