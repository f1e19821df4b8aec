package common

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

var devAddresses = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", // Account #0
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", // Account #1
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC", // Account #2
	"0x90F79bf6EB2c4f870365E785982E1f101E93b906", // Account #3
	"0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65", // Account #4
	"0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc", // Account #5
	"0x976EA74026E726554dB657fA54763abd0C3a0aa9", // Account #6
	"0x14dC79964da2C08b23698B3D3cc7Ca32193d9955", // Account #7
	"0x23618e81E3f5cdF7f54C3d65f7FBc0aBf5B21E8f", // Account #8
	"0xa0Ee7A142d267C1f36714E4a8F75612F20a79720", // Account #9
}

var devPrivateKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // Account #0
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // Account #1
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // Account #2
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6", // Account #3
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a", // Account #4
	"8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffba", // Account #5
	"92db14e403b83dfe3df233f83dfa3a0d7096f21ca9b0d6d6b8d88b2b4ec1564e", // Account #6
	"4bbbf85ce3377467afe5d46f804f221813b2bb87f24d81f60f1fcdbf7cbf4356", // Account #7
	"dbda1821b80551c9d65939329250298aa3472ba22feea921c0cf5d620ea67b97", // Account #8
	"2a871d0798f97d79848a013d4936a73bf4cc922c825d33c1cf7073dff6d409c6", // Account #9
}

// GetDevAccount returns a test account by index.
// Indices 0-9 are the standard Hardhat/Anvil accounts derived from the mnemonic
// "test test test test test test test test test test test junk".
// Indices >= 10 are derived deterministically from keccak256("moonbase-dev" || index).
// Returns the address and private key (without 0x prefix).
func GetDevAccount(index int) (Address, string) {
	if index >= 0 && index < len(devAddresses) {
		return HexToAddress(devAddresses[index]), devPrivateKeys[index]
	}
	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, uint64(index))
	for counter := byte(0); ; counter++ {
		keyBytes := crypto.Keccak256([]byte("moonbase-dev"), seed, []byte{counter})
		key, err := crypto.ToECDSA(keyBytes)
		if err != nil {
			// out of curve range, bump the counter
			continue
		}
		return Address(crypto.PubkeyToAddress(key.PublicKey)), hex.EncodeToString(keyBytes)
	}
}

// GetDevAddresses returns the first n dev account addresses.
func GetDevAddresses(n int) []Address {
	out := make([]Address, n)
	for i := 0; i < n; i++ {
		out[i], _ = GetDevAccount(i)
	}
	return out
}

// ContractAddress returns the address a contract deployed by deployer at nonce would have.
func ContractAddress(deployer Address, nonce uint64) Address {
	return Address(crypto.CreateAddress(deployer.Ethereum(), nonce))
}

// Keccak256Hash hashes the concatenation of data.
func Keccak256Hash(data ...[]byte) Hash {
	return Hash(crypto.Keccak256Hash(data...))
}
