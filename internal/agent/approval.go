// Package agent implements the delegated trading key handshake: a fresh
// agent key is generated locally and the master wallet signs a one-time
// approveAgent typed-data payload authorizing it to trade (without
// withdrawal rights).
package agent

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/korbanlabs/korban/internal/domain"
)

const (
	// AgentName identifies the delegated key on the venue.
	AgentName = "KorbanBotAgent"

	hyperliquidChain  = "Mainnet"
	signatureChainID  = 42161 // Arbitrum
	verifyingContract = "0x0000000000000000000000000000000000000000"
	signDomainName    = "HyperliquidSignTransaction"
	signDomainVersion = "1"
	approvePrimary    = "HyperliquidTransaction:ApproveAgent"
)

// Approval is the outcome of the handshake: the generated credential plus
// the master signature the venue verifies.
type Approval struct {
	Credential    domain.AgentCredential
	MasterAddress string
	Nonce         uint64
	Signature     string
}

// ApprovalTypedData builds the EIP-712 payload the master wallet signs.
// Domain constants are fixed by the venue.
func ApprovalTypedData(agentAddress string, nonce uint64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			approvePrimary: {
				{Name: "hyperliquidChain", Type: "string"},
				{Name: "agentAddress", Type: "address"},
				{Name: "agentName", Type: "string"},
				{Name: "nonce", Type: "uint64"},
			},
		},
		PrimaryType: approvePrimary,
		Domain: apitypes.TypedDataDomain{
			Name:              signDomainName,
			Version:           signDomainVersion,
			ChainId:           math.NewHexOrDecimal256(signatureChainID),
			VerifyingContract: verifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"hyperliquidChain": hyperliquidChain,
			"agentAddress":     agentAddress,
			"agentName":        AgentName,
			"nonce":            math.NewHexOrDecimal256(int64(nonce)),
		},
	}
}

// Authorize generates a random agent key and signs its approval with the
// master private key. The caller persists the resulting credential; the
// master key is used exactly once and never stored.
func Authorize(masterKeyHex string) (Approval, error) {
	if len(masterKeyHex) >= 2 && (masterKeyHex[:2] == "0x" || masterKeyHex[:2] == "0X") {
		masterKeyHex = masterKeyHex[2:]
	}
	masterKey, err := crypto.HexToECDSA(masterKeyHex)
	if err != nil {
		return Approval{}, errors.Wrap(err, "parse master key")
	}

	agentKey, err := crypto.GenerateKey()
	if err != nil {
		return Approval{}, errors.Wrap(err, "generate agent key")
	}
	agentAddress := crypto.PubkeyToAddress(agentKey.PublicKey).Hex()

	nonce := uint64(time.Now().UnixMilli())
	typedData := ApprovalTypedData(agentAddress, nonce)

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return Approval{}, errors.Wrap(err, "hash approval payload")
	}

	signature, err := crypto.Sign(hash, masterKey)
	if err != nil {
		return Approval{}, errors.Wrap(err, "sign approval")
	}
	// venue expects the legacy recovery id offset
	signature[64] += 27

	return Approval{
		Credential: domain.AgentCredential{
			Address:    agentAddress,
			PrivateKey: hexutil.Encode(crypto.FromECDSA(agentKey)),
		},
		MasterAddress: crypto.PubkeyToAddress(masterKey.PublicKey).Hex(),
		Nonce:         nonce,
		Signature:     hexutil.Encode(signature),
	}, nil
}
