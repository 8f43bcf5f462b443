package ports

import "context"

// TxInfo holds the wallet's view of the transaction under review.
type TxInfo struct {
	TxID              string
	Status            string
	Amount            int64
	Fee               int64
	SizeBytes         int
	MempoolDepthBytes int64
	MinedTimestamp    int64
	CanBroadcast      bool
}

// WalletInfo holds the identity info of the wallet served by the wallet
// daemon.
type WalletInfo struct {
	WalletHash string
	Multisig   bool
}

// WalletService is the abstraction for the wallet daemon performing the
// actual transaction operations. Signing and broadcasting are long-running:
// the controller invokes them from dedicated goroutines and stays responsive
// to close/cancel while they are in flight.
type WalletService interface {
	// GetWalletInfo returns identity info about the wallet, ie. its hash
	// used as key at the lock coordination point and whether it requires
	// cooperative signing.
	GetWalletInfo(ctx context.Context) (*WalletInfo, error)
	// GetTxInfo returns the wallet's view of the given transaction.
	GetTxInfo(ctx context.Context, txHex string) (*TxInfo, error)
	// CanSign returns whether the wallet can contribute a signature to the
	// given transaction.
	CanSign(ctx context.Context, txHex string) (bool, error)
	// SignTx asks the wallet to sign the given transaction and returns the
	// updated transaction in hex format. For multisig wallets a successful
	// request implicitly creates or refreshes the cooperative lock.
	SignTx(ctx context.Context, txHex string) (string, error)
	// BroadcastTx publishes the given final transaction to the network and
	// returns its txid.
	BroadcastTx(ctx context.Context, txHex, description string) (string, error)
	// SaveTx persists the given transaction into the wallet storage.
	SaveTx(ctx context.Context, txHex, description string) error
}
