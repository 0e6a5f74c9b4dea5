package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	url     string
	data    string
	timeout time.Duration
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Submit data to be mined into a new block",
	Run:   blockRun,
}

func init() {
	rootCmd.AddCommand(blockCmd)
	blockCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:3000", "Url of the node.")
	blockCmd.Flags().StringVarP(&data, "data", "d", "", "Data to store, JSON or plain text.")
	blockCmd.Flags().DurationVarP(&timeout, "timeout", "t", time.Minute, "Time to wait for the block to be mined.")
	blockCmd.MarkFlagRequired("data")
}

func blockRun(cmd *cobra.Command, args []string) {
	client := http.Client{Timeout: timeout}

	block, err := submitBlock(&client, url, data)
	if err != nil {
		log.Fatal(err)
	}

	out, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(out))
}

// submitBlock posts the data to the node and returns the mined block. Data
// that isn't valid JSON is sent as a string.
func submitBlock(client *http.Client, url string, data string) (database.Block, error) {
	payload := json.RawMessage(data)
	if !json.Valid(payload) {
		s, err := json.Marshal(data)
		if err != nil {
			return database.Block{}, err
		}
		payload = s
	}

	body, err := json.Marshal(struct {
		Data json.RawMessage `json:"data"`
	}{
		Data: payload,
	})
	if err != nil {
		return database.Block{}, err
	}

	resp, err := client.Post(fmt.Sprintf("%s/v1/block", url), "application/json", bytes.NewReader(body))
	if err != nil {
		return database.Block{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return database.Block{}, fmt.Errorf("node responded %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var block database.Block
	if err := json.NewDecoder(resp.Body).Decode(&block); err != nil {
		return database.Block{}, fmt.Errorf("decoding block: %w", err)
	}

	return block, nil
}
