// Package storage constructs the ledger storage implementations by name.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/leveldb"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/memory"
)

// Set of supported storage kinds.
const (
	KindDisk    = "disk"
	KindLevelDB = "leveldb"
	KindMemory  = "memory"
)

// Open constructs the storage of the specified kind. For disk the path is
// the ledger file, for leveldb the path is the database directory. The
// path is ignored for memory.
func Open(kind string, path string) (database.Storage, error) {
	switch kind {
	case KindDisk, "":
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "ledger.json")
		}
		return disk.New(path)

	case KindLevelDB:
		return leveldb.New(path)

	case KindMemory:
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
