package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/app/services/node/handlers"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newMux(t *testing.T) http.Handler {
	mux, _ := newMuxWithEvents(t)
	return mux
}

func newMuxWithEvents(t *testing.T) (http.Handler, *events.Events) {
	evts := events.New(events.DefaultBuffer)
	t.Cleanup(evts.Shutdown)

	ev := func(v string, args ...any) {
		evts.Send(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Difficulty:    1,
		MiningTimeout: time.Minute,
		StorageType:   state.StorageMemory,
		EvHandler:     ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}
	t.Cleanup(func() { st.Shutdown() })

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		State:       st,
		Evts:        evts,
		CorsOrigins: []string{"*"},
	})

	return mux, evts
}

func call(mux http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	return w
}

// =============================================================================

func Test_Chain(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to mine and read blocks through the api.")
	{
		w := call(mux, http.MethodGet, "/v1/genesis", "")
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a status code of 200 for genesis: %d", failed, w.Code)
		}

		var genesis database.Block
		if err := json.NewDecoder(w.Body).Decode(&genesis); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the genesis block: %s", failed, err)
		}
		if genesis.Hash != database.Genesis().Hash {
			t.Fatalf("\t%s\tShould get the genesis hash, got %s", failed, genesis.Hash)
		}
		t.Logf("\t%s\tShould get the genesis block.", success)

		w = call(mux, http.MethodPost, "/v1/block", `{"data": {"to": "bob", "amount": 10}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a status code of 200 for mining: %d %s", failed, w.Code, w.Body)
		}

		var mined database.Block
		if err := json.NewDecoder(w.Body).Decode(&mined); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the mined block: %s", failed, err)
		}
		if mined.Index != 1 || mined.PreviousHash != genesis.Hash || !strings.HasPrefix(mined.Hash, "0") {
			t.Fatalf("\t%s\tShould mine block 1 onto genesis, got %+v", failed, mined)
		}
		t.Logf("\t%s\tShould mine a block.", success)

		w = call(mux, http.MethodGet, "/v1/blocks/1", "")
		var got database.Block
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("\t%s\tShould be able to decode block 1: %s", failed, err)
		}
		if got.Hash != mined.Hash {
			t.Fatalf("\t%s\tShould get the mined block back, got %s", failed, got.Hash)
		}
		t.Logf("\t%s\tShould get the block by index.", success)

		w = call(mux, http.MethodGet, "/v1/blockchain", "")
		var bc struct {
			Difficulty uint             `json:"difficulty"`
			Length     int              `json:"length"`
			Blocks     []database.Block `json:"blocks"`
		}
		if err := json.NewDecoder(w.Body).Decode(&bc); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the chain: %s", failed, err)
		}
		if bc.Difficulty != 1 || bc.Length != 2 || len(bc.Blocks) != 2 {
			t.Fatalf("\t%s\tShould get a chain of 2 at difficulty 1, got %d/%d/%d", failed, bc.Difficulty, bc.Length, len(bc.Blocks))
		}
		t.Logf("\t%s\tShould get the full chain.", success)

		w = call(mux, http.MethodGet, "/v1/blockchain/validate", "")
		var val struct {
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(w.Body).Decode(&val); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the validation: %s", failed, err)
		}
		if !val.Valid || val.Error != "" {
			t.Fatalf("\t%s\tShould get a valid chain, got %+v", failed, val)
		}
		t.Logf("\t%s\tShould validate the chain.", success)
	}
}

func Test_BadRequests(t *testing.T) {
	mux := newMux(t)

	tt := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"missing", http.MethodGet, "/v1/blocks/7", "", http.StatusNotFound, ""},
		{"index", http.MethodGet, "/v1/blocks/abc", "", http.StatusBadRequest, ""},
		{"nodata", http.MethodPost, "/v1/block", `{}`, http.StatusBadRequest, "data"},
		{"nulldata", http.MethodPost, "/v1/block", `{"data": null}`, http.StatusBadRequest, "data"},
		{"unknown", http.MethodPost, "/v1/block", `{"data": 1, "extra": 2}`, http.StatusBadRequest, ""},
		{"badjson", http.MethodPost, "/v1/block", `{"data"`, http.StatusBadRequest, ""},
		{"recipient", http.MethodPost, "/v1/transaction", `{"sender": "a", "amount": 5}`, http.StatusBadRequest, "recipient"},
		{"amount", http.MethodPost, "/v1/transaction", `{"sender": "a", "recipient": "b", "amount": 0}`, http.StatusBadRequest, "amount"},
	}

	t.Log("Given the need to reject bad requests.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				w := call(mux, tst.method, tst.path, tst.body)
				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d, got %d: %s", failed, testID, tst.status, w.Code, w.Body)
				}

				var resp errs.Response
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error: %s", failed, testID, err)
				}

				if tst.field != "" {
					if _, exists := resp.Fields[tst.field]; !exists {
						t.Fatalf("\t%s\tTest %d:\tShould report field %q, got %v", failed, testID, tst.field, resp.Fields)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould receive a status code of %d.", success, testID, tst.status)
			}
			t.Run(tst.name, f)
		}
	}
}

func Test_Transaction(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to acknowledge a transaction.")
	{
		w := call(mux, http.MethodPost, "/v1/transaction", `{"sender": "alice", "recipient": "bob", "amount": 10}`)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a status code of 200: %d", failed, w.Code)
		}

		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(w.Body).Decode(&msg); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the message: %s", failed, err)
		}

		const exp = "Transaction from alice to bob for 10 processed successfully"
		if msg.Message != exp {
			t.Fatalf("\t%s\tShould get %q, got %q", failed, exp, msg.Message)
		}
		t.Logf("\t%s\tShould echo the transaction.", success)

		w = call(mux, http.MethodGet, "/v1/blockchain", "")
		var bc struct {
			Length int `json:"length"`
		}
		if err := json.NewDecoder(w.Body).Decode(&bc); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the chain: %s", failed, err)
		}
		if bc.Length != 1 {
			t.Fatalf("\t%s\tShould leave the chain untouched, got length %d", failed, bc.Length)
		}
		t.Logf("\t%s\tShould leave the chain untouched.", success)
	}
}

func Test_Account(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to generate an account.")
	{
		w := call(mux, http.MethodGet, "/v1/account", "")
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a status code of 200: %d", failed, w.Code)
		}

		var acct struct {
			Account    string `json:"account"`
			PublicKey  string `json:"publicKey"`
			PrivateKey string `json:"privateKey"`
		}
		if err := json.NewDecoder(w.Body).Decode(&acct); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the account: %s", failed, err)
		}

		if !strings.HasPrefix(acct.Account, "0x") || len(acct.Account) != 42 {
			t.Fatalf("\t%s\tShould get a 0x account of 42 characters, got %q", failed, acct.Account)
		}
		if len(acct.PrivateKey) != 66 || len(acct.PublicKey) != 132 {
			t.Fatalf("\t%s\tShould get hex keys, got %d/%d characters", failed, len(acct.PrivateKey), len(acct.PublicKey))
		}
		t.Logf("\t%s\tShould generate an account.", success)
	}
}

func Test_Cors(t *testing.T) {
	mux := newMux(t)

	t.Log("Given the need to allow cross site requests.")
	{
		w := call(mux, http.MethodGet, "/v1/genesis", "")
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a status code of 200: %d", failed, w.Code)
		}

		if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
			t.Fatalf("\t%s\tShould allow any origin, got %q", failed, origin)
		}
		t.Logf("\t%s\tShould receive the CORS headers.", success)
	}
}

func Test_EventStream(t *testing.T) {
	mux, evts := newMuxWithEvents(t)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Log("Given the need to watch the node mine over a websocket.")
	{
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to connect: %s", failed, err)
		}
		defer conn.Close()
		t.Logf("\t%s\tShould be able to connect.", success)

		// The listener registers right after the upgrade completes.
		deadline := time.Now().Add(5 * time.Second)
		for evts.Listeners() == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould register the listener.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}

		resp, err := srv.Client().Post(srv.URL+"/v1/block", "application/json", strings.NewReader(`{"data": "hello"}`))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		resp.Body.Close()

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("\t%s\tShould receive the solved event: %s", failed, err)
			}

			if strings.Contains(string(msg), "MINING: SOLVED") {
				break
			}
		}
		t.Logf("\t%s\tShould receive the solved event.", success)
	}
}
