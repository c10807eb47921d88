package chain

import (
	"errors"
	"testing"

	"github.com/termfi/vaultd/internal/domain"
)

func TestNewRegistryValidatesAddresses(t *testing.T) {
	_, err := NewRegistry(map[string]string{
		ContractController: "not-an-address",
	})
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress", err)
	}

	reg, err := NewRegistry(map[string]string{
		ContractController:      "0x5ef30b9986345249bc32d8928B7ee64DE9435E39",
		ContractSeriesDirectory: "0x0000000000000000000000000000000000000001",
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	addr, err := reg.Address(ContractController)
	if err != nil {
		t.Fatalf("Address failed: %v", err)
	}
	if addr.Hex() != "0x5ef30b9986345249bc32d8928B7ee64DE9435E39" {
		t.Errorf("address = %s", addr.Hex())
	}

	if _, err := reg.Address("Unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown contract error = %v, want ErrNotFound", err)
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x123"); !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("short address error = %v, want ErrInvalidAddress", err)
	}
	if _, err := ParseAddress("0x5ef30b9986345249bc32d8928B7ee64DE9435E39"); err != nil {
		t.Errorf("valid address rejected: %v", err)
	}
}
