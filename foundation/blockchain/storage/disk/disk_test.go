package disk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/disk"
)

func Test_Disk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")

	d, err := disk.New(dir)
	if err != nil {
		t.Fatalf("Should be able to create the disk storage: %s", err)
	}
	defer d.Close()

	for i := uint64(1); i <= 3; i++ {
		bd := database.BlockData{Index: i, Timestamp: "t", Data: []byte(`{"a":1}`), Hash: "h"}
		if err := d.Write(bd); err != nil {
			t.Fatalf("Should be able to write block %d: %s", i, err)
		}
	}

	if err := d.Write(database.BlockData{Index: 2}); err == nil {
		t.Fatalf("Should not be able to overwrite block 2")
	}

	if _, err := os.Stat(filepath.Join(dir, "2.json")); err != nil {
		t.Fatalf("Should have a file for block 2: %s", err)
	}

	bd, err := d.GetBlock(3)
	if err != nil {
		t.Fatalf("Should be able to get block 3: %s", err)
	}
	if bd.Index != 3 || bd.Hash != "h" {
		t.Fatalf("Should get back block 3, got %+v", bd)
	}

	if _, err := d.GetBlock(4); !errors.Is(err, database.ErrBlockNotFound) {
		t.Fatalf("Should not find block 4: %v", err)
	}

	var count uint64
	iter := d.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			t.Fatalf("Should be able to iterate: %s", err)
		}
		count++
		if blockData.Index != count {
			t.Fatalf("Should iterate in order, got %d, exp %d", blockData.Index, count)
		}
	}

	if count != 3 {
		t.Fatalf("Should iterate over 3 blocks, got %d", count)
	}
}

func Test_DiskCorrupt(t *testing.T) {
	dir := t.TempDir()

	d, err := disk.New(dir)
	if err != nil {
		t.Fatalf("Should be able to create the disk storage: %s", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "1.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("Should be able to write a corrupt block: %s", err)
	}

	iter := d.ForEach()
	if _, err := iter.Next(); err == nil || iter.Done() {
		t.Fatalf("Should report the corrupt block")
	}
}
