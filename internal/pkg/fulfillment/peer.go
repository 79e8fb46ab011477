package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// PeerClient forwards issued access keys to the peer site that stores and
// redeems them. The peer is the source of truth for keys; this service keeps
// nothing.
type PeerClient struct {
	BaseURL      string
	SharedSecret string
	HTTPClient   *http.Client
}

func NewPeerClientFromEnv() *PeerClient {
	return &PeerClient{
		BaseURL:      strings.TrimRight(env.GetEnv("PEER_SITE_URL", ""), "/"),
		SharedSecret: strings.TrimSpace(env.GetEnv("PEER_SHARED_SECRET", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type storeKeyRequest struct {
	Key        string `json:"key"`
	Tier       string `json:"tier"`
	SessionRef string `json:"session_id"`
	Secret     string `json:"secret"`
}

// StoreKey registers a freshly issued access key with the peer site.
func (c *PeerClient) StoreKey(ctx context.Context, key, tier, sessionRef string) error {
	if c.BaseURL == "" {
		return errors.New("PEER_SITE_URL is not configured")
	}

	payload, err := json.Marshal(storeKeyRequest{
		Key:        key,
		Tier:       tier,
		SessionRef: sessionRef,
		Secret:     c.SharedSecret,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/store-key", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("peer store-key failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
