package domain_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/exoslabs/cosigner/internal/core/domain"
)

func TestNewTxSnapshot(t *testing.T) {
	t.Run("unsigned_tx", func(t *testing.T) {
		txHex := randomTxHex(t, 2, 0)

		snapshot, err := domain.NewTxSnapshot(txHex, &chaincfg.RegressionNetParams)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		require.Equal(t, txHex, snapshot.TxHex)
		require.Len(t, snapshot.Inputs, 2)
		require.Len(t, snapshot.Outputs, 1)
		require.False(t, snapshot.Complete)
		for _, in := range snapshot.Inputs {
			require.False(t, in.Signed)
		}
		require.NotEmpty(t, snapshot.TxID)
		require.Greater(t, snapshot.SizeBytes, 0)
		require.Equal(t, "unsigned.txn", snapshot.ExportFilename())
	})

	t.Run("partially_signed_tx", func(t *testing.T) {
		txHex := randomTxHex(t, 2, 1)

		snapshot, err := domain.NewTxSnapshot(txHex, &chaincfg.RegressionNetParams)
		require.NoError(t, err)
		require.False(t, snapshot.Complete)
		require.True(t, snapshot.Inputs[0].Signed)
		require.False(t, snapshot.Inputs[1].Signed)
		require.Equal(t, "unsigned.txn", snapshot.ExportFilename())
	})

	t.Run("fully_signed_tx", func(t *testing.T) {
		txHex := randomTxHex(t, 2, 2)

		snapshot, err := domain.NewTxSnapshot(txHex, &chaincfg.RegressionNetParams)
		require.NoError(t, err)
		require.True(t, snapshot.Complete)
		require.Equal(
			t, "signed_"+snapshot.TxID[:8]+".txn", snapshot.ExportFilename(),
		)
	})
}

func TestNewTxSnapshotMalformed(t *testing.T) {
	tests := []struct {
		name  string
		txHex string
	}{
		{"not_hex", "not an hex string"},
		{"truncated", "0200000001ab"},
		{"garbage", hex.EncodeToString([]byte("random garbage bytes here"))},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := domain.NewTxSnapshot(
				tt.txHex, &chaincfg.RegressionNetParams,
			)
			require.ErrorIs(t, err, domain.ErrMalformedTransaction)
			require.Nil(t, snapshot)
		})
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	txHex := randomTxHex(t, 1, 0)

	snapshot, err := domain.NewTxSnapshot(txHex, &chaincfg.RegressionNetParams)
	require.NoError(t, err)

	// mutating the snapshot of one session must not affect another snapshot
	// taken from the same raw tx.
	other, err := domain.NewTxSnapshot(txHex, &chaincfg.RegressionNetParams)
	require.NoError(t, err)

	snapshot.Inputs[0].Signed = true
	require.False(t, other.Inputs[0].Signed)
}

func randomTxHex(t *testing.T, numIns, numSigned int) string {
	t.Helper()

	tx := wire.NewMsgTx(2)
	for i := 0; i < numIns; i++ {
		var prevHash chainhash.Hash
		// nolint:errcheck
		rand.Read(prevHash[:])
		in := wire.NewTxIn(wire.NewOutPoint(&prevHash, uint32(i)), nil, nil)
		if i < numSigned {
			in.Witness = wire.TxWitness{make([]byte, 72), make([]byte, 33)}
		}
		tx.AddTxIn(in)
	}
	script := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	tx.AddTxOut(wire.NewTxOut(100000, script))

	buf := bytes.Buffer{}
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}
