// account_proof.go supplements component 6 with the EIP-1186-shaped
// account decoding convenience this lineage's callers rely on: given a
// resolved trie and an address, decode the RLP-encoded leaf value into
// the four-field Ethereum account tuple. Adapted from the teacher
// repository's proof.go (AccountProof/decodeAccount), keeping the account
// decoding and encoding helpers and leaving out Prove/VerifyProof, which
// duplicate what ParseProof/MptFromProof/IsNotIncluded already provide for
// this package's node representation.
package trie

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zethtrie/sparsetrie/rlp"
)

// Account is the standard Ethereum state-trie account tuple.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // storage trie root
	CodeHash common.Hash
}

// GetAccount looks up addr (by its keccak-256 hash, the state trie's
// actual key) in t and RLP-decodes the stored value into an Account. The
// second return value is false when the address has no entry.
func (t *Trie) GetAccount(addr common.Address) (Account, bool, error) {
	key := crypto.Keccak256(addr[:])
	v, err := t.Get(key)
	if err != nil {
		return Account{}, false, err
	}
	if v == nil {
		return Account{}, false, nil
	}
	acc, err := decodeAccount(v)
	if err != nil {
		return Account{}, false, fmt.Errorf("trie: decode account at %x: %w", addr, err)
	}
	return acc, true, nil
}

// decodeAccount RLP-decodes a 4-item [nonce, balance, storageRoot,
// codeHash] list.
func decodeAccount(enc []byte) (Account, error) {
	items, err := rlp.DecodeRawList(enc)
	if err != nil {
		return Account{}, err
	}
	if len(items) != 4 {
		return Account{}, fmt.Errorf("expected 4 account fields, got %d", len(items))
	}

	nonceBytes, err := rlp.DecodeString(items[0])
	if err != nil {
		return Account{}, err
	}
	balanceBytes, err := rlp.DecodeString(items[1])
	if err != nil {
		return Account{}, err
	}
	rootBytes, err := rlp.DecodeString(items[2])
	if err != nil {
		return Account{}, err
	}
	codeHashBytes, err := rlp.DecodeString(items[3])
	if err != nil {
		return Account{}, err
	}

	var acc Account
	acc.Nonce = decodeBytesAsUint64(nonceBytes)
	acc.Balance = new(big.Int).SetBytes(balanceBytes)
	copy(acc.Root[:], rootBytes)
	copy(acc.CodeHash[:], codeHashBytes)
	return acc, nil
}

// EncodeAccount RLP-encodes an Account into its canonical 4-item list,
// the inverse of decodeAccount.
func EncodeAccount(acc Account) ([]byte, error) {
	var payload []byte
	payload = rlp.AppendUint64(payload, acc.Nonce)
	balance := acc.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	payload = rlp.AppendBytes(payload, balance.Bytes())
	payload = rlp.AppendBytes(payload, acc.Root[:])
	payload = rlp.AppendBytes(payload, acc.CodeHash[:])
	return rlp.WrapList(payload), nil
}

func decodeBytesAsUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
