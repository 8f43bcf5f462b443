package application_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

// ports.WalletService
type mockWalletSvc struct {
	mock.Mock
}

func newMockedWalletSvc() *mockWalletSvc {
	return &mockWalletSvc{}
}

func (m *mockWalletSvc) GetWalletInfo(
	ctx context.Context,
) (*ports.WalletInfo, error) {
	args := m.Called(ctx)
	var res *ports.WalletInfo
	if a := args.Get(0); a != nil {
		res = a.(*ports.WalletInfo)
	}
	return res, args.Error(1)
}

func (m *mockWalletSvc) GetTxInfo(
	ctx context.Context, txHex string,
) (*ports.TxInfo, error) {
	args := m.Called(ctx, txHex)
	var res *ports.TxInfo
	if a := args.Get(0); a != nil {
		res = a.(*ports.TxInfo)
	}
	return res, args.Error(1)
}

func (m *mockWalletSvc) CanSign(
	ctx context.Context, txHex string,
) (bool, error) {
	args := m.Called(ctx, txHex)
	return args.Bool(0), args.Error(1)
}

func (m *mockWalletSvc) SignTx(
	ctx context.Context, txHex string,
) (string, error) {
	args := m.Called(ctx, txHex)
	return args.String(0), args.Error(1)
}

func (m *mockWalletSvc) BroadcastTx(
	ctx context.Context, txHex, description string,
) (string, error) {
	args := m.Called(ctx, txHex, description)
	return args.String(0), args.Error(1)
}

func (m *mockWalletSvc) SaveTx(
	ctx context.Context, txHex, description string,
) error {
	args := m.Called(ctx, txHex, description)
	return args.Error(0)
}

// ports.LockCoordinator
type mockLockCoordinator struct {
	mock.Mock
}

func newMockedLockCoordinator() *mockLockCoordinator {
	return &mockLockCoordinator{}
}

func (m *mockLockCoordinator) GetLock(
	ctx context.Context, walletHash string,
) (*domain.LockRecord, error) {
	args := m.Called(ctx, walletHash)
	var res *domain.LockRecord
	if a := args.Get(0); a != nil {
		res = a.(*domain.LockRecord)
	}
	return res, args.Error(1)
}

func (m *mockLockCoordinator) DeleteLock(
	ctx context.Context, walletHash string,
) error {
	args := m.Called(ctx, walletHash)
	return args.Error(0)
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

func randomHex(size int) string {
	buf := make([]byte, size)
	// nolint:errcheck
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
