package tx

import (
	"github.com/Klingon-tech/klingnet-dex/pkg/crypto"
	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Redeem reports whether witness satisfies owner for the given signing
// message. Unknown and burn scripts never redeem.
func Redeem(owner types.Script, message, witness []byte, v crypto.Verifier) bool {
	switch owner.Type {
	case types.ScriptTypeSigCheck:
		if len(owner.Data) != crypto.PubKeySize {
			return false
		}
		return v.Verify(owner.Data, message, witness)

	case types.ScriptTypeP2PKH:
		// Witness = pubkey(33) || signature(64); the key must hash to the address.
		if len(owner.Data) != types.AddressSize || len(witness) != crypto.PubKeySize+crypto.SignatureSize {
			return false
		}
		pubKey := witness[:crypto.PubKeySize]
		addr := crypto.AddressFromPubKey(pubKey)
		if string(addr[:]) != string(owner.Data) {
			return false
		}
		return v.Verify(pubKey, message, witness[crypto.PubKeySize:])

	case types.ScriptTypeUpForGrabs:
		return true

	case types.ScriptTypeTest:
		return len(owner.Data) > 0 && owner.Data[0] != 0

	default:
		return false
	}
}

// SignWitness produces a witness for an output owned by key. The witness
// format follows the owner script kind.
func SignWitness(owner types.Script, message []byte, key *crypto.PrivateKey) ([]byte, error) {
	sig, err := key.Sign(message)
	if err != nil {
		return nil, err
	}
	if owner.Type == types.ScriptTypeP2PKH {
		return append(key.PublicKey(), sig...), nil
	}
	return sig, nil
}
