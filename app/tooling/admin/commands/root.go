// Package commands contains the admin commands for inspecting a ledger
// store and talking to a running ledger service.
package commands

import (
	"fmt"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage"
	"github.com/ardanlabs/blockbank/foundation/blockchain/genesis"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	storageKind string
	dbPath      string
	genesisPath string
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer a ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageKind, "storage", "s", storage.KindDisk, "Kind of storage holding the ledger: disk, leveldb.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/ledger.json", "Path to the ledger storage.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zblock/genesis.json", "Path to the genesis file.")
}

// Execute runs the command named on the command line.
func Execute(build string) error {
	rootCmd.Version = build

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		return err
	}

	return nil
}

// =============================================================================

// store is the read only view of a persisted ledger used by the commands.
type store struct {
	genesis genesis.Genesis
	hasher  database.Hasher
	chain   database.Chain
	pending []database.Tx
}

// openStore loads the genesis file and the persisted record. Nothing is
// written back to the storage.
func openStore() (store, error) {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return store{}, fmt.Errorf("loading genesis: %w", err)
	}

	hasher, err := gen.Hasher()
	if err != nil {
		return store{}, err
	}

	if storageKind == storage.KindMemory {
		return store{}, fmt.Errorf("memory storage can't be inspected")
	}

	strg, err := storage.Open(storageKind, dbPath)
	if err != nil {
		return store{}, fmt.Errorf("opening storage: %w", err)
	}
	defer strg.Close()

	record, err := strg.Load()
	if err != nil {
		return store{}, fmt.Errorf("loading ledger: %w", err)
	}

	chain, err := database.ToChain(record.Chain)
	if err != nil {
		return store{}, err
	}

	s := store{
		genesis: gen,
		hasher:  hasher,
		chain:   chain,
		pending: record.PendingPool,
	}

	return s, nil
}

// validate replays the chain with the proof of work checked.
func (s store) validate() error {
	args := database.ValidateArgs{
		Hasher:     s.hasher,
		Difficulty: s.genesis.Difficulty,
		VerifyPOW:  true,
	}

	return database.Validate(s.chain, args)
}
