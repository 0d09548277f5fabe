package domain

// TokenRecord represents a token discovered on chain via a factory contract.
// Immutable once constructed; records are compared by Address.
type TokenRecord struct {
	Address   string  // canonical lowercase 0x hex, unique key
	Name      string  // free text, may be empty
	Symbol    string  // free text, may be empty
	Creator   string  // deployer address, canonical lowercase 0x hex
	CreatedAt int64   // creation timestamp in milliseconds (estimated for RPC)
	ImageURL  *string // optional metadata image (nullable)
}
