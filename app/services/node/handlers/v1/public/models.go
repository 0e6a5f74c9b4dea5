package public

import (
	"bytes"
	"encoding/json"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

type blockchain struct {
	Difficulty uint             `json:"difficulty"`
	Length     int              `json:"length"`
	Blocks     []database.Block `json:"blocks"`
}

type validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type account struct {
	Account    string `json:"account"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// =============================================================================

// newBlock is the payload for mining a new block. Any JSON value other
// than null is accepted as the data and is hashed exactly as received.
type newBlock struct {
	Data json.RawMessage `json:"data" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (nb newBlock) Validate() error {
	if err := validate.Check(nb); err != nil {
		return err
	}

	if string(bytes.TrimSpace(nb.Data)) == "null" {
		return validate.FieldErrors{{Field: "data", Error: "data is a required field"}}
	}

	return nil
}

type newTransaction struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
}

// Validate checks the data in the model is considered clean.
func (nt newTransaction) Validate() error {
	return validate.Check(nt)
}

type message struct {
	Message string `json:"message"`
}
