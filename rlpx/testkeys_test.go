package rlpx

import (
	"crypto/ecdsa"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ecdsaKeyPair bundles the standard-library and btcec views of the
// same secp256k1 key, since Session's public surface speaks
// crypto/ecdsa while the handshake internals speak btcec.
type ecdsaKeyPair struct {
	ecdsa *ecdsa.PrivateKey
	btc   *btcec.PrivateKey
}

func newECDSAKeyPair(t *testing.T) *ecdsaKeyPair {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return &ecdsaKeyPair{ecdsa: priv, btc: privKeyFromECDSA(priv)}
}
