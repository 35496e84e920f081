package configuration

// GenesisAlloc seeds the token balance of one account in the genesis state.
type GenesisAlloc struct {
	Address string
	Balance uint64
}

type GenesisConfiguration struct {
	Timestamp uint64
	Issuer    string
	Alloc     []GenesisAlloc
}

func DefGenesisConfiguration() *GenesisConfiguration {
	return &GenesisConfiguration{}
}
