// Package auth orchestrates the session lifecycle: password and OAuth
// login, API key resolution, credential persistence and the login-state
// broadcast. A login either completes every step or persists nothing.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qverisai/qveris-cli/client"
	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/identity"
	"github.com/qverisai/qveris-cli/internal/util"
	"github.com/qverisai/qveris-cli/reconcile"
	"github.com/qverisai/qveris-cli/store"
)

// PromptFunc asks the user one question and returns their answer. Used
// only for the degraded OAuth email fallback.
type PromptFunc func(message string) (string, error)

// Negotiator drives both login flows to a normalized stored credential.
type Negotiator struct {
	cfg    *config.Config
	st     *store.Store
	cl     *client.Client
	rec    *reconcile.Reconciler
	prompt PromptFunc

	Events Broadcaster
}

// New returns a negotiator. rec may be nil to skip post-login
// reconciliation (used by tests).
func New(cfg *config.Config, st *store.Store, cl *client.Client, rec *reconcile.Reconciler) *Negotiator {
	return &Negotiator{cfg: cfg, st: st, cl: cl, rec: rec}
}

// SetPrompt installs the interactive prompt used when OAuth identity
// resolution finds no email anywhere else.
func (n *Negotiator) SetPrompt(fn PromptFunc) {
	n.prompt = fn
}

// LoginWithPassword runs the direct credential exchange: login, profile
// lookup, key resolution, persistence, reconciliation. Any failing step
// aborts the whole flow with nothing persisted.
func (n *Negotiator) LoginWithPassword(ctx context.Context, email, password string) (store.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return store.Credential{}, fmt.Errorf("email and password are required: %w", ErrValidation)
	}
	email = util.Normalize(email)

	token, err := n.cl.Login(ctx, email, password)
	if err != nil {
		return store.Credential{}, asAuthError(err)
	}

	profile, err := n.cl.UserInfo(ctx, token)
	if err != nil {
		return store.Credential{}, fmt.Errorf("profile lookup: %w", err)
	}
	if v := identity.EmailFromProfile(profile); v != "" {
		email = v
	}

	return n.finishLogin(ctx, token, email)
}

// finishLogin is the shared tail of both flows: resolve key, persist
// all-or-nothing, broadcast, reconcile. Reconciliation failures are
// reported but never fail the login.
func (n *Negotiator) finishLogin(ctx context.Context, token, email string) (store.Credential, error) {
	apiKey, err := n.ResolveKey(ctx, token)
	if err != nil {
		return store.Credential{}, err
	}

	cred := store.Credential{APIKey: apiKey, AccessToken: token, Email: email}
	if err := n.st.SaveCredential(cred); err != nil {
		return store.Credential{}, fmt.Errorf("persisting credentials: %w", err)
	}
	n.Events.publish(State{LoggedIn: true, Email: email})

	if n.rec != nil {
		if ok, err := n.rec.Apply(apiKey, false); err != nil {
			slog.Warn("post-login reconciliation incomplete", "written", ok, "error", err)
		}
	}
	return cred, nil
}

// Logout deletes every credential slot atomically and broadcasts.
func (n *Negotiator) Logout() error {
	if err := n.st.DeleteCredential(); err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	n.Events.publish(State{})
	return nil
}

// asAuthError folds rejected credentials and malformed login envelopes
// into the auth kind; transport classifications pass through.
func asAuthError(err error) error {
	if errors.Is(err, client.ErrMalformedResponse) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) &&
		(statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return err
}
