package electrumd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/exoslabs/cosigner/internal/core/ports"
)

// service implements ports.WalletService against the JSON RPC interface of
// an electrum-like wallet daemon holding the keys of this cosigner.
type service struct {
	client *rpcClient

	log func(format string, a ...interface{})
}

func NewWalletService(addr string, timeout int) (ports.WalletService, error) {
	client, err := newRpcClient(addr, timeout)
	if err != nil {
		return nil, err
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("wallet service: %s", format)
		log.Debugf(format, a...)
	}
	return &service{client, logFn}, nil
}

type walletInfoResponse struct {
	WalletHash string `json:"wallet_hash"`
	Multisig   bool   `json:"multisig"`
}

func (s *service) GetWalletInfo(ctx context.Context) (*ports.WalletInfo, error) {
	var resp walletInfoResponse
	if err := s.client.call(ctx, "getwalletinfo", nil, &resp); err != nil {
		return nil, err
	}
	return &ports.WalletInfo{
		WalletHash: resp.WalletHash,
		Multisig:   resp.Multisig,
	}, nil
}

type txInfoResponse struct {
	Txid              string `json:"txid"`
	Status            string `json:"status"`
	Amount            int64  `json:"amount"`
	Fee               int64  `json:"fee"`
	Size              int    `json:"size"`
	MempoolDepthBytes int64  `json:"mempool_depth_bytes"`
	MinedTimestamp    int64  `json:"mined_timestamp"`
	CanBroadcast      bool   `json:"can_broadcast"`
}

func (s *service) GetTxInfo(
	ctx context.Context, txHex string,
) (*ports.TxInfo, error) {
	var resp txInfoResponse
	if err := s.client.call(
		ctx, "gettxinfo", []interface{}{txHex}, &resp,
	); err != nil {
		return nil, err
	}
	return &ports.TxInfo{
		TxID:              resp.Txid,
		Status:            resp.Status,
		Amount:            resp.Amount,
		Fee:               resp.Fee,
		SizeBytes:         resp.Size,
		MempoolDepthBytes: resp.MempoolDepthBytes,
		MinedTimestamp:    resp.MinedTimestamp,
		CanBroadcast:      resp.CanBroadcast,
	}, nil
}

func (s *service) CanSign(ctx context.Context, txHex string) (bool, error) {
	var canSign bool
	if err := s.client.call(
		ctx, "cansigntx", []interface{}{txHex}, &canSign,
	); err != nil {
		return false, err
	}
	return canSign, nil
}

func (s *service) SignTx(ctx context.Context, txHex string) (string, error) {
	var signedHex string
	if err := s.client.call(
		ctx, "signtransaction", []interface{}{txHex}, &signedHex,
	); err != nil {
		return "", err
	}
	s.log("signed tx")
	return signedHex, nil
}

func (s *service) BroadcastTx(
	ctx context.Context, txHex, description string,
) (string, error) {
	var txid string
	if err := s.client.call(
		ctx, "broadcast", []interface{}{txHex, description}, &txid,
	); err != nil {
		return "", err
	}
	s.log("broadcasted tx %s", txid)
	return txid, nil
}

func (s *service) SaveTx(ctx context.Context, txHex, description string) error {
	var saved bool
	if err := s.client.call(
		ctx, "addtransaction", []interface{}{txHex, description}, &saved,
	); err != nil {
		return err
	}
	if !saved {
		return fmt.Errorf("wallet refused to store the tx")
	}
	return nil
}
