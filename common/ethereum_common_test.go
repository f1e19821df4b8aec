package common

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestGetDevAccount(t *testing.T) {
	// Test hardcoded accounts (0-9)
	for i := 0; i < 10; i++ {
		addr, privKeyHex := GetDevAccount(i)
		if addr == (Address{}) {
			t.Errorf("Account %d: got empty address", i)
		}
		if len(privKeyHex) != 64 {
			t.Errorf("Account %d: private key length = %d, want 64", i, len(privKeyHex))
		}

		// Verify private key derives to correct address
		privKey, err := crypto.HexToECDSA(privKeyHex)
		if err != nil {
			t.Errorf("Account %d: failed to parse private key: %v", i, err)
			continue
		}
		derivedAddr := crypto.PubkeyToAddress(privKey.PublicKey)
		if Address(derivedAddr) != addr {
			t.Errorf("Account %d: address mismatch: got %s, derived %s", i, addr.Hex(), derivedAddr.Hex())
		}
	}

	// Test deterministic accounts (>= 10)
	seen := make(map[Address]int)
	for i := 10; i < 30; i++ {
		addr, privKeyHex := GetDevAccount(i)
		addr2, privKeyHex2 := GetDevAccount(i)
		if addr != addr2 || privKeyHex != privKeyHex2 {
			t.Errorf("Account %d: not deterministic", i)
		}
		if prev, ok := seen[addr]; ok {
			t.Errorf("Account %d collides with account %d", i, prev)
		}
		seen[addr] = i

		privKey, err := crypto.HexToECDSA(privKeyHex)
		if err != nil {
			t.Errorf("Account %d: failed to parse private key: %v", i, err)
			continue
		}
		if Address(crypto.PubkeyToAddress(privKey.PublicKey)) != addr {
			t.Errorf("Account %d: address mismatch", i)
		}
	}
}

func TestAddressJSON(t *testing.T) {
	addr, _ := GetDevAccount(1)
	data, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"` {
		t.Errorf("unexpected encoding %s", data)
	}
	var back Address
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != addr {
		t.Errorf("round trip mismatch: %s != %s", back, addr)
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Error("expected error for short address")
	}
	addr, err := ParseAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if addr.IsZero() {
		t.Error("parsed address should not be zero")
	}
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() = false")
	}
}

func TestContractAddress(t *testing.T) {
	deployer, _ := GetDevAccount(0)
	// first contract deployed by the Hardhat account #0
	want := HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	if got := ContractAddress(deployer, 0); got != want {
		t.Errorf("ContractAddress = %s, want %s", got.Hex(), want.Hex())
	}
}
