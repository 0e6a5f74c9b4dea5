package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/identity"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_KeyPath(t *testing.T) {
	tt := []struct {
		name string
		dir  string
		file string
		exp  string
	}{
		{"bare", "zblock/accounts/", "kennedy", filepath.Join("zblock", "accounts", "kennedy.ecdsa")},
		{"ext", "zblock/accounts", "kennedy.ecdsa", filepath.Join("zblock", "accounts", "kennedy.ecdsa")},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if got := keyPath(tst.dir, tst.file); got != tst.exp {
				t.Fatalf("\t%s\tShould get %q, got %q", failed, tst.exp, got)
			}
		}
		t.Run(tst.name, f)
	}
}

func Test_Generate(t *testing.T) {
	path := keyPath(t.TempDir(), "bill")

	t.Log("Given the need to generate and reload a key file.")
	{
		id, err := generate(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a key file: %s", failed, err)
		}

		loaded, err := identity.Load(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the key file: %s", failed, err)
		}

		if loaded.Account() != id.Account() {
			t.Fatalf("\t%s\tShould load the same account, got %s, exp %s", failed, loaded.Account(), id.Account())
		}
		t.Logf("\t%s\tShould load the same account.", success)

		if _, err := generate(path); err == nil {
			t.Fatalf("\t%s\tShould not overwrite an existing key file.", failed)
		}
		t.Logf("\t%s\tShould not overwrite an existing key file.", success)
	}
}

func Test_SubmitBlock(t *testing.T) {
	var got []string

	h := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/block" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got = append(got, string(req.Data))

		json.NewEncoder(w).Encode(database.Block{Index: 1, Data: req.Data, Hash: "00ab"})
	}
	srv := httptest.NewServer(http.HandlerFunc(h))
	defer srv.Close()

	t.Log("Given the need to submit block data to a node.")
	{
		if _, err := submitBlock(srv.Client(), srv.URL, `{"to":"bob"}`); err != nil {
			t.Fatalf("\t%s\tShould be able to submit JSON data: %s", failed, err)
		}

		block, err := submitBlock(srv.Client(), srv.URL, "hello world")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to submit text data: %s", failed, err)
		}

		if block.Index != 1 || block.Data != "hello world" {
			t.Fatalf("\t%s\tShould get the block back, got %+v", failed, block)
		}

		if len(got) != 2 || got[0] != `{"to":"bob"}` || got[1] != `"hello world"` {
			t.Fatalf("\t%s\tShould send JSON as is and text as a string, got %v", failed, got)
		}
		t.Logf("\t%s\tShould send the data.", success)

		if _, err := submitBlock(srv.Client(), srv.URL+"/missing", "x"); err == nil || !strings.Contains(err.Error(), "404") {
			t.Fatalf("\t%s\tShould report the node status, got %v", failed, err)
		}
		t.Logf("\t%s\tShould report the node status.", success)
	}
}
