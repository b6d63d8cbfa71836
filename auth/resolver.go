package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qverisai/qveris-cli/client"
)

// ResolveKey turns a bearer token into a usable long-lived API key via
// a list, fetch-full, create fallback chain. Each step is independent:
// a failure falls through to the next instead of aborting. Only an
// exhausted chain is an error.
func (n *Negotiator) ResolveKey(ctx context.Context, bearer string) (string, error) {
	keys, err := n.cl.ListKeys(ctx, bearer)
	if err != nil {
		slog.Warn("listing API keys failed, provisioning a new one", "error", err)
		keys = nil
	}

	if len(keys) > 0 {
		// Remote order is authoritative; take the first entry as-is.
		first := keys[0]
		key, err := n.cl.FullKey(ctx, bearer, first.Name)
		if err == nil && key != "" {
			return key, nil
		}
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound && first.ID != "" {
			if key, idErr := n.cl.FullKey(ctx, bearer, first.ID); idErr == nil && key != "" {
				return key, nil
			}
		}
		slog.Warn("fetching full key failed, provisioning a new one", "key", first.Name, "error", err)
	}

	name := fmt.Sprintf("%s-%d", n.cfg.KeyPrefix, time.Now().UnixMilli())
	key, err := n.cl.CreateKey(ctx, bearer, name)
	if err != nil {
		return "", fmt.Errorf("%w: creating key %s: %v", ErrKeyProvisioning, name, err)
	}
	return key, nil
}
