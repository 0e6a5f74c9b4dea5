package leveldb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/leveldb"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_LevelDB(t *testing.T) {
	ldb, err := leveldb.NewMemory()
	if err != nil {
		t.Fatalf("Should be able to open leveldb: %s", err)
	}
	defer ldb.Close()

	// Write out of order to show iteration follows the block index.
	for _, i := range []uint64{2, 1, 10, 3} {
		if err := ldb.Write(database.BlockData{Index: i, Timestamp: "t", Data: []byte(`"x"`)}); err != nil {
			t.Fatalf("Should be able to write block %d: %s", i, err)
		}
	}

	if err := ldb.Write(database.BlockData{Index: 3}); err == nil {
		t.Fatalf("Should not be able to overwrite block 3")
	}

	if _, err := ldb.GetBlock(4); !errors.Is(err, database.ErrBlockNotFound) {
		t.Fatalf("Should not find block 4: %v", err)
	}

	var got []uint64
	iter := ldb.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			t.Fatalf("Should be able to iterate: %s", err)
		}
		got = append(got, blockData.Index)
	}

	exp := []uint64{1, 2, 3, 10}
	if len(got) != len(exp) {
		t.Fatalf("Should iterate over %d blocks, got %v", len(exp), got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("Should iterate in index order, got %v, exp %v", got, exp)
		}
	}
}

func Test_LevelDBReopen(t *testing.T) {
	dir := t.TempDir()

	ldb, err := leveldb.New(dir)
	if err != nil {
		t.Fatalf("Should be able to open leveldb: %s", err)
	}

	db, err := database.New(database.Config{Difficulty: 1, Storage: ldb})
	if err != nil {
		t.Fatalf("Should be able to construct a database: %s", err)
	}

	for i, data := range []string{"one", "two"} {
		if _, err := db.Append(context.Background(), uint64(i+1), "t", data); err != nil {
			t.Fatalf("Should be able to append block %d: %s", i+1, err)
		}
	}
	latest := db.LatestBlock()

	if err := db.Close(); err != nil {
		t.Fatalf("Should be able to close the database: %s", err)
	}

	ldb, err = leveldb.New(dir)
	if err != nil {
		t.Fatalf("Should be able to reopen leveldb: %s", err)
	}
	defer ldb.Close()

	db, err = database.New(database.Config{Difficulty: 1, Storage: ldb})
	if err != nil {
		t.Fatalf("Should be able to load the chain: %s", err)
	}

	if db.Length() != 3 || db.LatestBlock().Hash != latest.Hash {
		t.Fatalf("Should load the same chain, got %d blocks", db.Length())
	}

	if !db.Validate() {
		t.Fatalf("Should load a valid chain")
	}
}

func Test_LevelDBRelease(t *testing.T) {
	ldb, err := leveldb.NewMemory()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open leveldb: %s", failed, err)
	}
	defer ldb.Close()

	for i := uint64(1); i <= 3; i++ {
		if err := ldb.Write(database.BlockData{Index: i, Timestamp: "t", Data: []byte(`"x"`)}); err != nil {
			t.Fatalf("\t%s\tShould be able to write block %d: %s", failed, i, err)
		}
	}

	t.Log("Given the need to stop iterating before the end of the chain.")
	{
		iter := ldb.ForEach()
		if _, err := iter.Next(); err != nil {
			t.Fatalf("\t%s\tShould be able to read the first block: %s", failed, err)
		}

		r, ok := iter.(database.Releaser)
		if !ok {
			t.Fatalf("\t%s\tShould be able to release the iterator.", failed)
		}
		r.Release()
		r.Release()
		t.Logf("\t%s\tShould be able to release the iterator twice.", success)

		if _, err := iter.Next(); !errors.Is(err, database.ErrEndOfChain) {
			t.Fatalf("\t%s\tShould be at the end of the chain once released, got %v", failed, err)
		}
		if !iter.Done() {
			t.Fatalf("\t%s\tShould report done once released.", failed)
		}
		t.Logf("\t%s\tShould be at the end of the chain once released.", success)
	}
}
