package types

import "strings"

// ChainFamily classifies a network or a raw key into a blockchain family.
// Callers always state the family explicitly; nothing is inferred from
// key material.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

// Valid reports whether f names a supported family.
func (f ChainFamily) Valid() bool {
	return f == ChainEVM || f == ChainSolana
}

// Network represents supported blockchain networks
type Network string

const (
	// EVM Networks
	NetworkEthereum    Network = "ethereum"
	NetworkSepolia     Network = "sepolia" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet

	// Solana Networks
	NetworkSolana       Network = "solana"
	NetworkSolanaDevnet Network = "solana-devnet" // testnet
)

// EVMChainIDs maps EVM networks to their EIP-155 chain IDs.
var EVMChainIDs = map[Network]uint64{
	NetworkEthereum:    1,
	NetworkSepolia:     11155111,
	NetworkBase:        8453,
	NetworkBaseSepolia: 84532,
	NetworkPolygon:     137,
	NetworkPolygonAmoy: 80002,
}

// Helper functions for network classification
func (n Network) IsEVM() bool {
	_, ok := EVMChainIDs[n]
	return ok
}

func (n Network) IsSolana() bool {
	return n == NetworkSolana || n == NetworkSolanaDevnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkSepolia || n == NetworkBaseSepolia || n == NetworkPolygonAmoy || n == NetworkSolanaDevnet
}

// Family returns the chain family the network belongs to.
func (n Network) Family() (ChainFamily, bool) {
	switch {
	case n.IsEVM():
		return ChainEVM, true
	case n.IsSolana():
		return ChainSolana, true
	default:
		return "", false
	}
}

func (n Network) String() string {
	return string(n)
}

// ResolveNetwork matches a network name case-insensitively against the
// known networks.
func ResolveNetwork(name string) (Network, bool) {
	n := Network(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := n.Family(); !ok {
		return "", false
	}
	return n, true
}

// TokenStandard represents different token standards
type TokenStandard string

const (
	TokenStandardERC20 TokenStandard = "erc20"
	TokenStandardSPL   TokenStandard = "spl"
)

// TokenInfo describes one payable asset on a network.
type TokenInfo struct {
	Standard TokenStandard `json:"standard"`

	// Contract address (EVM) or mint address (Solana).
	Address string `json:"address"`

	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`

	// Name and Version identify the EIP-712 signing domain of the
	// asset contract. Empty for SPL tokens.
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// TokenCatalog maps each network to the assets payable on it.
type TokenCatalog map[Network][]TokenInfo

// DefaultTokenCatalog returns the built-in catalog of USDC deployments.
// Hosts with other assets supply their own catalog.
func DefaultTokenCatalog() TokenCatalog {
	return TokenCatalog{
		NetworkEthereum: {
			{Standard: TokenStandardERC20, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6, Name: "USD Coin", Version: "2"},
		},
		NetworkSepolia: {
			{Standard: TokenStandardERC20, Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Symbol: "USDC", Decimals: 6, Name: "USDC", Version: "2"},
		},
		NetworkBase: {
			{Standard: TokenStandardERC20, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: 6, Name: "USD Coin", Version: "2"},
		},
		NetworkBaseSepolia: {
			{Standard: TokenStandardERC20, Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Symbol: "USDC", Decimals: 6, Name: "USDC", Version: "2"},
		},
		NetworkPolygon: {
			{Standard: TokenStandardERC20, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Symbol: "USDC", Decimals: 6, Name: "USD Coin", Version: "2"},
		},
		NetworkPolygonAmoy: {
			{Standard: TokenStandardERC20, Address: "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582", Symbol: "USDC", Decimals: 6, Name: "USDC", Version: "2"},
		},
		NetworkSolana: {
			{Standard: TokenStandardSPL, Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6},
		},
		NetworkSolanaDevnet: {
			{Standard: TokenStandardSPL, Address: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", Symbol: "USDC", Decimals: 6},
		},
	}
}

// Find matches an asset on a network by symbol (case-insensitive) or by
// address. EVM addresses compare case-insensitively, Solana mints are
// case-sensitive base58.
func (c TokenCatalog) Find(network Network, asset string) (TokenInfo, bool) {
	asset = strings.TrimSpace(asset)
	for _, tok := range c[network] {
		if strings.EqualFold(tok.Symbol, asset) {
			return tok, true
		}
		if network.IsEVM() && strings.EqualFold(tok.Address, asset) {
			return tok, true
		}
		if network.IsSolana() && tok.Address == asset {
			return tok, true
		}
	}
	return TokenInfo{}, false
}
