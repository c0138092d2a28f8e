package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const submitTimeout = 15 * time.Second

type approveAgentAction struct {
	Type             string `json:"type"`
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	AgentAddress     string `json:"agentAddress"`
	AgentName        string `json:"agentName"`
	Nonce            uint64 `json:"nonce"`
}

type rsvSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

type submitRequest struct {
	Action    approveAgentAction `json:"action"`
	Nonce     uint64             `json:"nonce"`
	Signature rsvSignature       `json:"signature"`
}

type submitResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Submit posts the signed approval to the venue's exchange endpoint,
// activating the agent key for trading.
func Submit(ctx context.Context, exchangeURL string, approval Approval) error {
	signature, err := hexutil.Decode(approval.Signature)
	if err != nil {
		return errors.Wrap(err, "decode signature")
	}
	if len(signature) != 65 {
		return errors.Errorf("signature must be 65 bytes, got %d", len(signature))
	}

	payload := submitRequest{
		Action: approveAgentAction{
			Type:             "approveAgent",
			HyperliquidChain: hyperliquidChain,
			SignatureChainID: fmt.Sprintf("0x%x", signatureChainID),
			AgentAddress:     approval.Credential.Address,
			AgentName:        AgentName,
			Nonce:            approval.Nonce,
		},
		Nonce: approval.Nonce,
		Signature: rsvSignature{
			R: hexutil.Encode(signature[:32]),
			S: hexutil.Encode(signature[32:64]),
			V: signature[64],
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal approval request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exchangeURL+"/exchange", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build approval request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: submitTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post approval")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read approval response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("approval rejected: status %d: %s", resp.StatusCode, raw)
	}

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errors.Wrap(err, "decode approval response")
	}
	if parsed.Status != "ok" {
		return errors.Errorf("approval rejected: %s", parsed.Response)
	}
	return nil
}
