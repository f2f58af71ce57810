package solana

// Asset is the subset of a DAS getAsset result used for metadata checks.
type Asset struct {
	ID        string         `json:"id"`
	Interface string         `json:"interface"`
	Mutable   bool           `json:"mutable"`
	Burnt     bool           `json:"burnt"`
	Ownership AssetOwnership `json:"ownership"`
}

// AssetOwnership holds DAS ownership flags.
type AssetOwnership struct {
	Frozen         bool   `json:"frozen"`
	Delegated      bool   `json:"delegated"`
	Owner          string `json:"owner"`
	OwnershipModel string `json:"ownership_model"`
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address        string `json:"address"`
	Amount         string `json:"amount"` // raw amount, string-encoded integer
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}
