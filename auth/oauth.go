package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/qverisai/qveris-cli/identity"
	"github.com/qverisai/qveris-cli/internal/util"
	"github.com/qverisai/qveris-cli/store"
)

// nonceEntropyBytes sizes the CSRF nonce.
const nonceEntropyBytes = 32

// CallbackPath is the fixed path component of the OAuth callback URI.
const CallbackPath = "/auth-callback"

// BeginOAuth starts a browser-delegated login: it generates a fresh
// CSRF nonce, persists it (overwriting any earlier in-flight
// handshake), and returns the login page URL to open. Completion is
// asynchronous via HandleCallback.
func (n *Negotiator) BeginOAuth(callbackURL string) (string, error) {
	nonce, err := util.RandomToken(nonceEntropyBytes)
	if err != nil {
		return "", err
	}
	if err := n.st.SetState(store.StateOAuthNonce, nonce); err != nil {
		return "", fmt.Errorf("persisting login state: %w", err)
	}

	u, err := url.Parse(n.cfg.LoginURL)
	if err != nil {
		return "", fmt.Errorf("parsing login URL: %w", err)
	}
	q := u.Query()
	q.Set("f", nonce)
	q.Set("redirect_uri", callbackURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HandleCallback processes one received URI. A URI that does not match
// the expected scheme, authority and path exactly is unrelated traffic:
// it is logged and ignored (handled=false) without touching the
// in-flight handshake. A matching URI consumes the stored nonce no
// matter how it resolves.
func (n *Negotiator) HandleCallback(ctx context.Context, rawURI, callbackURL string) (cred store.Credential, handled bool, err error) {
	expected, err := url.Parse(callbackURL)
	if err != nil {
		return store.Credential{}, false, fmt.Errorf("parsing callback URL: %w", err)
	}
	u, err := url.Parse(rawURI)
	if err != nil || u.Scheme != expected.Scheme || u.Host != expected.Host || u.Path != expected.Path {
		slog.Debug("ignoring unrelated callback URI", "uri", rawURI)
		return store.Credential{}, false, nil
	}

	// Single use: whatever happens below, this handshake is over.
	stored, storedErr := n.st.GetState(store.StateOAuthNonce)
	defer func() {
		if err := n.st.DeleteState(store.StateOAuthNonce); err != nil {
			slog.Warn("clearing login state failed", "error", err)
		}
	}()

	q := u.Query()
	state := q.Get("f")
	token := decodeTokenParam(q.Get("access_token"))
	if state == "" || token == "" {
		return store.Credential{}, true, fmt.Errorf("callback missing state or access_token: %w", ErrAuth)
	}

	if storedErr != nil || stored == "" {
		return store.Credential{}, true, fmt.Errorf("no login in progress: %w", ErrStateMismatch)
	}
	if stored != state {
		return store.Credential{}, true, fmt.Errorf("state does not match the initiated login: %w", ErrStateMismatch)
	}

	email := n.resolveOAuthEmail(ctx, token)
	cred, err = n.finishLogin(ctx, token, email)
	return cred, true, err
}

// decodeTokenParam tolerates double-encoding from the relaying server:
// query parsing already decoded once, so decode again only when doing
// so changes the value.
func decodeTokenParam(token string) string {
	if dec, err := url.QueryUnescape(token); err == nil && dec != token {
		return dec
	}
	return token
}

// resolveOAuthEmail tries progressively weaker identity sources: token
// claims, the profile endpoint, finally an interactive prompt. Running
// out of sources degrades to an empty email rather than failing the
// login; the email is auxiliary.
func (n *Negotiator) resolveOAuthEmail(ctx context.Context, token string) string {
	if claims, ok := identity.DecodeClaims(token); ok {
		if email := identity.EmailFromClaims(claims); email != "" {
			return email
		}
	}

	profile, err := n.cl.UserInfo(ctx, token)
	if err != nil {
		slog.Warn("profile lookup failed during browser login", "error", err)
	} else if email := identity.EmailFromProfile(profile); email != "" {
		return email
	}

	if n.prompt != nil {
		answer, err := n.prompt("Enter the email address for your Qveris account")
		if err == nil {
			if email := util.Normalize(strings.TrimSpace(answer)); email != "" {
				return email
			}
		}
	}
	slog.Warn("could not resolve an email for this login")
	return ""
}
