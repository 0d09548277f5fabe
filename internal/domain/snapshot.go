package domain

// HistoricalSnapshot is the first-seen, immutable record of a token address.
// Corresponds to token_snapshots table in PostgreSQL. Created at most once
// per address and never updated afterwards.
type HistoricalSnapshot struct {
	Address     string // PRIMARY KEY, canonical lowercase 0x hex
	Name        string
	Symbol      string
	Creator     string
	CreatedAt   int64 // token creation timestamp (ms)
	FirstSeenAt int64 // when this system first observed the token (ms)
}
