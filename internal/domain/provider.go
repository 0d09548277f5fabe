package domain

// ProviderKind selects the chain data provider at configuration time.
type ProviderKind string

const (
	ProviderRPC   ProviderKind = "rpc"
	ProviderGraph ProviderKind = "graph"
)

// String returns the string representation of ProviderKind.
func (k ProviderKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known provider.
func (k ProviderKind) IsValid() bool {
	return k == ProviderRPC || k == ProviderGraph
}
