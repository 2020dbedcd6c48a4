package random

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// MintProvider requests randomness from an external trust-minimized mint
// over HTTP. Transport failures map to the typed provider errors so the
// caller's fallback policy can distinguish them.
type MintProvider struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

// NewMintProvider creates a client for the mint at baseURL.
func NewMintProvider(baseURL string, timeout time.Duration) *MintProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MintProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     logrus.WithField("component", "mint"),
	}
}

type mintRequest struct {
	Context json.RawMessage `json:"context"`
}

type mintResponse struct {
	RandomBytes []byte `json:"randomBytes"`
	Signature   []byte `json:"signature"`
	Timestamp   int64  `json:"timestamp"`
	Error       string `json:"error,omitempty"`
}

// RequestRandomness posts the serialized context to the mint and returns
// the signed proof.
func (m *MintProvider) RequestRandomness(ctx Context) (*Proof, error) {
	serialized, err := ctx.Serialize()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(mintRequest{Context: serialized})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	resp, err := m.client.Post(m.baseURL+"/v1/randomness", "application/json", bytes.NewReader(body))
	if err != nil {
		m.log.WithError(err).Warn("mint request failed")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrMintUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: mint returned status %d", ErrProtocol, resp.StatusCode)
	}

	var mr mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if mr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProtocol, mr.Error)
	}
	if len(mr.RandomBytes) != ProofBytes {
		return nil, fmt.Errorf("%w: expected %d random bytes, got %d", ErrProtocol, ProofBytes, len(mr.RandomBytes))
	}
	if len(mr.Signature) == 0 {
		return nil, ErrInvalidSignature
	}

	return &Proof{
		Context:     ctx,
		RandomBytes: mr.RandomBytes,
		Signature:   mr.Signature,
		Timestamp:   mr.Timestamp,
	}, nil
}

type verifyRequest struct {
	Proof *Proof `json:"proof"`
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// VerifyProof asks the mint to check the proof's signature.
func (m *MintProvider) VerifyProof(p *Proof) (bool, error) {
	body, err := json.Marshal(verifyRequest{Proof: p})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	resp, err := m.client.Post(m.baseURL+"/v1/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: mint returned status %d", ErrProtocol, resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if vr.Error != "" {
		return false, fmt.Errorf("%w: %s", ErrProtocol, vr.Error)
	}
	return vr.Valid, nil
}
