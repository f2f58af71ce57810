package solana

import "context"

// RPCClient defines the Solana/DAS JSON-RPC calls the audit needs.
type RPCClient interface {
	// GetAsset retrieves DAS asset metadata for a mint.
	GetAsset(ctx context.Context, id string) (*Asset, error)

	// GetTokenLargestAccounts retrieves up to 20 largest token accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTransaction retrieves a transaction by signature.
	// Returns nil, nil when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction status and balance changes.
type TransactionMeta struct {
	Err          interface{}
	PreBalances  []int64 // lamports, indexed like Message.AccountKeys
	PostBalances []int64
}

// Failed reports whether the transaction failed on-chain.
func (m *TransactionMeta) Failed() bool {
	return m == nil || m.Err != nil
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// IndexOf returns the position of key in the account list, or -1.
func (m *TransactionMessage) IndexOf(key string) int {
	if m == nil {
		return -1
	}
	for i, k := range m.AccountKeys {
		if k == key {
			return i
		}
	}
	return -1
}
