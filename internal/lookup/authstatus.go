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
	// DefaultAuthStatusURL reports the state of the Urban Terror auth servers.
	DefaultAuthStatusURL = "https://www.urbanterror.info/api/status"
	authServerKey        = "authserver.urbanterror.info"
	authRecheck          = 210 * time.Second
)

// AuthStatus reports whether the game's account service is up. When it
// is down, auth-gated actions are allowed for unauthenticated players.
type AuthStatus interface {
	Active(ctx context.Context) bool
}

// AuthChecker polls the status endpoint at most once per recheck interval
// and serves the cached result in between.
type AuthChecker struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	active  bool
	checked time.Time
}

func NewAuthChecker(url string, logger *slog.Logger) *AuthChecker {
	if url == "" {
		url = DefaultAuthStatusURL
	}
	return &AuthChecker{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
		now:    time.Now,
		active: true,
	}
}

func (a *AuthChecker) Active(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if !a.checked.IsZero() && now.Sub(a.checked) < authRecheck {
		return a.active
	}
	a.checked = now

	active, err := a.fetch(ctx)
	if err != nil {
		// keep the previous verdict
		a.logger.Warn("auth status check failed", "err", err)
		return a.active
	}
	if active != a.active {
		a.logger.Info("auth service status changed", "active", active)
	}
	a.active = active
	return active
}

func (a *AuthChecker) fetch(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", "SpunkyBot")

	resp, err := a.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("auth status %d", resp.StatusCode)
	}

	var body map[string]struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding auth status: %w", err)
	}
	entry, ok := body[authServerKey]
	if !ok {
		return false, fmt.Errorf("auth status: missing %s", authServerKey)
	}
	return entry.Active, nil
}

// AlwaysActive is used when status checks are disabled.
type AlwaysActive struct{}

func (AlwaysActive) Active(context.Context) bool { return true }
