package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	iphubURL      = "http://v2.api.iphub.info/ip/"
	iphubCacheTTL = 24 * time.Hour
)

// ReputationChecker flags VPN and proxy addresses. Failures count as clean.
type ReputationChecker interface {
	Suspicious(ctx context.Context, ip string) bool
}

type iphubResponse struct {
	IP          string `json:"ip"`
	CountryCode string `json:"countryCode"`
	Block       int    `json:"block"`
}

type cachedVerdict struct {
	block   bool
	expires time.Time
}

// IPHub queries iphub.info. Verdicts are cached per address.
type IPHub struct {
	baseURL string
	key     string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedVerdict
}

// NewIPHub creates a checker using the given API key.
func NewIPHub(key string, logger *slog.Logger) *IPHub {
	return &IPHub{
		baseURL: iphubURL,
		key:     key,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		now:     time.Now,
		cache:   make(map[string]cachedVerdict),
	}
}

func (h *IPHub) Suspicious(ctx context.Context, ip string) bool {
	if isLocal(ip) {
		return false
	}
	now := h.now()
	h.mu.Lock()
	if v, ok := h.cache[ip]; ok && now.Before(v.expires) {
		h.mu.Unlock()
		return v.block
	}
	h.mu.Unlock()

	block, err := h.query(ctx, ip)
	if err != nil {
		h.logger.Warn("proxy detection failed", "ip", ip, "err", err)
		return false
	}

	h.mu.Lock()
	h.cache[ip] = cachedVerdict{block: block, expires: now.Add(iphubCacheTTL)}
	h.mu.Unlock()
	return block
}

func (h *IPHub) query(ctx context.Context, ip string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+ip, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-Key", h.key)

	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("iphub status %d", resp.StatusCode)
	}

	var body iphubResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding iphub response: %w", err)
	}
	return body.Block == 1, nil
}

// NoReputation never flags anyone.
type NoReputation struct{}

func (NoReputation) Suspicious(context.Context, string) bool { return false }
