package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	ErrMalformedTransaction = fmt.Errorf("transaction cannot be deserialized")
)

// TxInput is the view of a transaction input held by a snapshot.
type TxInput struct {
	PrevTxID string
	PrevOut  uint32
	Signed   bool
}

// TxOutput is the view of a transaction output held by a snapshot.
type TxOutput struct {
	Value   int64
	Script  string
	Address string
}

// TxSnapshot is an immutable copy of the transaction presented for review,
// together with its signature state, captured when the signing session is
// created. The live transaction might be mutated by background processes
// while the session is open, therefore all session logic works against this
// snapshot and never against the original.
type TxSnapshot struct {
	TxID      string
	TxHex     string
	Inputs    []TxInput
	Outputs   []TxOutput
	Complete  bool
	SizeBytes int
}

// NewTxSnapshot deserializes the given transaction in hex format and returns
// a snapshot of it. Failing to deserialize returns ErrMalformedTransaction,
// meaning no session must be created for the presented transaction.
func NewTxSnapshot(txHex string, net *chaincfg.Params) (*TxSnapshot, error) {
	buf, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedTransaction, err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(buf)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedTransaction, err)
	}
	if len(tx.TxIn) == 0 {
		return nil, fmt.Errorf("%w: transaction has no inputs", ErrMalformedTransaction)
	}

	// Work on a deep copy, the caller keeps ownership of its own buffer.
	txCopy := tx.Copy()

	inputs := make([]TxInput, 0, len(txCopy.TxIn))
	complete := true
	for _, in := range txCopy.TxIn {
		signed := len(in.SignatureScript) > 0 || len(in.Witness) > 0
		if !signed {
			complete = false
		}
		inputs = append(inputs, TxInput{
			PrevTxID: in.PreviousOutPoint.Hash.String(),
			PrevOut:  in.PreviousOutPoint.Index,
			Signed:   signed,
		})
	}

	outputs := make([]TxOutput, 0, len(txCopy.TxOut))
	for _, out := range txCopy.TxOut {
		var addr string
		if net != nil {
			_, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, net)
			if err == nil && len(addrs) > 0 {
				addr = addrs[0].EncodeAddress()
			}
		}
		outputs = append(outputs, TxOutput{
			Value:   out.Value,
			Script:  hex.EncodeToString(out.PkScript),
			Address: addr,
		})
	}

	return &TxSnapshot{
		TxID:      txCopy.TxHash().String(),
		TxHex:     txHex,
		Inputs:    inputs,
		Outputs:   outputs,
		Complete:  complete,
		SizeBytes: txCopy.SerializeSize(),
	}, nil
}

// ShortID returns the first 8 chars of the txid, used for export file naming.
func (s *TxSnapshot) ShortID() string {
	if len(s.TxID) < 8 {
		return s.TxID
	}
	return s.TxID[:8]
}

// ExportFilename returns the conventional name for the exported transaction
// file, distinguishing fully signed from unsigned transactions.
func (s *TxSnapshot) ExportFilename() string {
	if s.Complete {
		return fmt.Sprintf("signed_%s.txn", s.ShortID())
	}
	return "unsigned.txn"
}
