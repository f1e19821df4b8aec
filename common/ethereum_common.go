package common

import (
	"encoding/json"
	"fmt"

	ethereumCommon "github.com/ethereum/go-ethereum/common"
)

// AddressLength is the expected length of an account address.
const AddressLength = ethereumCommon.AddressLength

// Hash is a custom type based on Ethereum's common.Hash
type Hash ethereumCommon.Hash

// Address is a custom type based on Ethereum's common.Address
type Address ethereumCommon.Address

// ZeroAddress is the burn address; it can never send or receive.
var ZeroAddress = Address{}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte {
	return ethereumCommon.Hash(h).Bytes()
}

// String returns the string representation of the hash.
func (h Hash) String() string {
	return ethereumCommon.Hash(h).String()
}

func (h Hash) String_short() string {
	return fmt.Sprintf("%s..%s", h.Hex()[2:6], h.Hex()[62:66])
}

// Hex returns the hexadecimal string representation of the hash.
func (h Hash) Hex() string {
	return ethereumCommon.Hash(h).Hex()
}

// Ethereum returns the go-ethereum representation of the hash.
func (h Hash) Ethereum() ethereumCommon.Hash {
	return ethereumCommon.Hash(h)
}

// BytesToHash converts a byte slice to a Hash.
func BytesToHash(b []byte) Hash {
	return Hash(ethereumCommon.BytesToHash(b))
}

// HexToHash converts a hexadecimal string to a Hash.
func HexToHash(s string) Hash {
	return Hash(ethereumCommon.HexToHash(s))
}

func Bytes2Hex(d []byte) string {
	return "0x" + ethereumCommon.Bytes2Hex(d)
}

func FromHex(b string) []byte {
	return ethereumCommon.FromHex(b)
}

// MarshalJSON custom marshaler to convert Hash to hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON custom unmarshaler to handle hex strings for Hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	*h = HexToHash(hexStr)
	return nil
}

// Address methods

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte {
	return ethereumCommon.Address(a).Bytes()
}

// String returns the string representation of the address.
func (a Address) String() string {
	return ethereumCommon.Address(a).String()
}

// Hex returns the EIP-55 checksummed hexadecimal representation of the address.
func (a Address) Hex() string {
	return ethereumCommon.Address(a).Hex()
}

// Short prints the first and last two bytes, for log lines and trees.
func (a Address) Short() string {
	h := a.Hex()
	return fmt.Sprintf("%s..%s", h[2:6], h[len(h)-4:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Ethereum returns the go-ethereum representation of the address.
func (a Address) Ethereum() ethereumCommon.Address {
	return ethereumCommon.Address(a)
}

// HexToAddress converts a hexadecimal string to an Address.
func HexToAddress(s string) Address {
	return Address(ethereumCommon.HexToAddress(s))
}

// BytesToAddress converts a byte slice to an Address.
func BytesToAddress(b []byte) Address {
	return Address(ethereumCommon.BytesToAddress(b))
}

// IsHexAddress verifies whether a string can represent a valid hex-encoded address.
func IsHexAddress(s string) bool {
	return ethereumCommon.IsHexAddress(s)
}

// ParseAddress is the strict form of HexToAddress used for user input.
func ParseAddress(s string) (Address, error) {
	if !IsHexAddress(s) {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	return HexToAddress(s), nil
}

// MarshalJSON custom marshaler to convert Address to hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON custom unmarshaler to handle hex strings for Address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	*a = HexToAddress(hexStr)
	return nil
}
