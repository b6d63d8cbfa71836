package auth

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const callbackPage = `<!doctype html>
<html><body style="font-family: sans-serif; text-align: center; padding-top: 4em">
<h2>Qveris login complete</h2>
<p>You can close this tab and return to your editor.</p>
</body></html>`

// CallbackListener is the CLI's stand-in for an editor's custom-scheme
// URI handler: a loopback HTTP server that forwards every received URI
// to the negotiator, which decides whether it is the awaited callback.
type CallbackListener struct {
	srv  *http.Server
	url  string
	uris chan string
}

// StartCallbackListener binds 127.0.0.1 on the given port (0 picks an
// ephemeral one) and starts serving. Close it when the handshake ends.
func StartCallbackListener(port int) (*CallbackListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding callback listener: %w", err)
	}

	uris := make(chan string, 4)
	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
		uri := "http://" + req.Host + req.URL.String()
		select {
		case uris <- uri:
		default:
			slog.Warn("callback listener queue full, dropping URI", "path", req.URL.Path)
		}
		if req.URL.Path != CallbackPath {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(callbackPage))
	})

	srv := &http.Server{Handler: r}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Warn("callback listener stopped", "error", err)
		}
	}()

	return &CallbackListener{
		srv:  srv,
		url:  "http://" + ln.Addr().String() + CallbackPath,
		uris: uris,
	}, nil
}

// URL is the callback URL to hand to BeginOAuth.
func (l *CallbackListener) URL() string {
	return l.url
}

// URIs delivers every URI the listener receives, related or not.
func (l *CallbackListener) URIs() <-chan string {
	return l.uris
}

// Close stops the listener.
func (l *CallbackListener) Close() error {
	return l.srv.Close()
}
