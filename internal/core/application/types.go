package application

import (
	"encoding/json"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

// SessionInfo is the view of a signing session returned to interfaces.
type SessionInfo struct {
	ID            string
	State         string
	Multisig      bool
	TimeRemaining int64
	Saved         bool
	CanSign       bool
	CanBroadcast  bool
	Description   string
	Tx            *TxDetails
}

// TxDetails aggregates snapshot data with the wallet's view of the tx.
type TxDetails struct {
	TxID              string
	Status            string
	Amount            int64
	Fee               int64
	SizeBytes         int
	MempoolDepthBytes int64
	MinedTimestamp    int64
	NumInputs         int
	NumOutputs        int
	Complete          bool
}

// ExportedTx is a serialized tx document with its suggested filename.
type ExportedTx struct {
	Filename string
	Body     []byte
}

type txDocInput struct {
	PrevTxID string `json:"prev_txid"`
	PrevOut  uint32 `json:"prev_out"`
	Signed   bool   `json:"signed"`
}

type txDocOutput struct {
	Address string `json:"address,omitempty"`
	Script  string `json:"script"`
	Value   int64  `json:"value"`
}

type txDocument struct {
	TxID     string        `json:"txid"`
	Hex      string        `json:"hex"`
	Complete bool          `json:"complete"`
	Fee      int64         `json:"fee,omitempty"`
	Inputs   []txDocInput  `json:"inputs"`
	Outputs  []txDocOutput `json:"outputs"`
}

func newTxDocument(snapshot *domain.TxSnapshot, fee int64) ([]byte, error) {
	ins := make([]txDocInput, 0, len(snapshot.Inputs))
	for _, in := range snapshot.Inputs {
		ins = append(ins, txDocInput{
			PrevTxID: in.PrevTxID,
			PrevOut:  in.PrevOut,
			Signed:   in.Signed,
		})
	}
	outs := make([]txDocOutput, 0, len(snapshot.Outputs))
	for _, out := range snapshot.Outputs {
		outs = append(outs, txDocOutput{
			Address: out.Address,
			Script:  out.Script,
			Value:   out.Value,
		})
	}
	doc := txDocument{
		TxID:     snapshot.TxID,
		Hex:      snapshot.TxHex,
		Complete: snapshot.Complete,
		Fee:      fee,
		Inputs:   ins,
		Outputs:  outs,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func newSessionInfo(
	session *domain.SigningSession, txInfo *ports.TxInfo, canSign bool,
) *SessionInfo {
	info := &SessionInfo{
		ID:            session.ID,
		State:         session.State.String(),
		Multisig:      session.Multisig,
		TimeRemaining: session.TimeRemaining,
		Saved:         session.Saved,
		CanSign:       session.CanSign(canSign),
		Description:   session.Description,
	}
	details := &TxDetails{
		TxID:       session.Snapshot.TxID,
		SizeBytes:  session.Snapshot.SizeBytes,
		NumInputs:  len(session.Snapshot.Inputs),
		NumOutputs: len(session.Snapshot.Outputs),
		Complete:   session.Snapshot.Complete,
	}
	if txInfo != nil {
		details.Status = txInfo.Status
		details.Amount = txInfo.Amount
		details.Fee = txInfo.Fee
		details.MempoolDepthBytes = txInfo.MempoolDepthBytes
		details.MinedTimestamp = txInfo.MinedTimestamp
		info.CanBroadcast = session.CanBroadcast(txInfo.CanBroadcast)
	}
	info.Tx = details
	return info
}
