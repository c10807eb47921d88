package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/termfi/vaultd/internal/domain"
)

// Well-known logical contract names.
const (
	ContractController      = "Controller"
	ContractSeriesDirectory = "SeriesDirectory"
)

// Registry is the static address book mapping logical contract names to
// deployed addresses. It is loaded once from configuration at startup and
// read-only afterwards.
type Registry struct {
	addrs map[string]common.Address
}

// NewRegistry validates every configured address and builds the book.
// A malformed address is a configuration error, not something to tolerate.
func NewRegistry(entries map[string]string) (*Registry, error) {
	addrs := make(map[string]common.Address, len(entries))
	for name, raw := range entries {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("chain: contract %q address %q: %w", name, raw, domain.ErrInvalidAddress)
		}
		addrs[name] = common.HexToAddress(raw)
	}
	return &Registry{addrs: addrs}, nil
}

// Address resolves a logical name to its deployed address.
func (r *Registry) Address(name string) (common.Address, error) {
	addr, ok := r.addrs[name]
	if !ok {
		return common.Address{}, fmt.Errorf("chain: contract %q: %w", name, domain.ErrNotFound)
	}
	return addr, nil
}

// ParseAddress validates and parses a caller-supplied address string.
// Malformed input is a caller error surfaced before any chain interaction.
func ParseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("chain: address %q: %w", raw, domain.ErrInvalidAddress)
	}
	return common.HexToAddress(raw), nil
}
