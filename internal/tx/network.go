package tx

import "fmt"

// Network identifies an Ethereum network and its explorer subdomain.
type Network struct {
	Name           string
	ChainID        uint64
	ExplorerPrefix string // empty for mainnet, "sepolia." etc. otherwise
}

// Known networks.
//
//nolint:gochecknoglobals // static chain metadata
var (
	Mainnet = Network{Name: "mainnet", ChainID: 1}
	Sepolia = Network{Name: "sepolia", ChainID: 11155111, ExplorerPrefix: "sepolia."}
	Holesky = Network{Name: "holesky", ChainID: 17000, ExplorerPrefix: "holesky."}
)

// NetworkByName resolves a configured network name.
func NetworkByName(name string) (Network, bool) {
	switch name {
	case "", "mainnet":
		return Mainnet, true
	case "sepolia":
		return Sepolia, true
	case "holesky":
		return Holesky, true
	default:
		return Network{}, false
	}
}

// ExplorerTxURL builds the block-explorer link for a submitted
// transaction.
func (n Network) ExplorerTxURL(id TxID) string {
	return fmt.Sprintf("https://%setherscan.io/tx/%s", n.ExplorerPrefix, id)
}
