// Package rag forwards the Luna chat endpoints to the knowledge-base service.
package rag

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "fdctax/pkg/domain-errors"
	apihttp "fdctax/pkg/platform/httputil"
	"fdctax/pkg/requestcontext"
)

// Prefix is the public path the chat UI calls; the remainder is forwarded as-is.
const Prefix = "/api/luna-rag"

// Proxy relays requests under Prefix to the RAG upstream.
type Proxy struct {
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// New builds a Proxy for upstream. timeout bounds how long the upstream may
// take to start answering.
func New(upstream string, timeout time.Duration, logger *slog.Logger) (*Proxy, error) {
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid RAG upstream %q", upstream)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	p := &Proxy{logger: logger}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = joinPath(target.Path, strings.TrimPrefix(pr.In.URL.Path, Prefix))
			pr.Out.URL.RawPath = ""
			pr.Out.Host = target.Host
			pr.SetXForwarded()
			if id := requestcontext.RequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set("X-Request-ID", id)
			}
		},
		Transport:     transport,
		FlushInterval: -1,
		ErrorHandler:  p.handleError,
	}
	return p, nil
}

// Register mounts the proxy for every method under Prefix.
func (p *Proxy) Register(r chi.Router) {
	r.Handle(Prefix+"/*", p)
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.proxy.ServeHTTP(w, r)
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	p.logger.ErrorContext(ctx, "rag upstream failed",
		"request_id", requestcontext.RequestID(ctx),
		"path", r.URL.Path,
		"error", err,
	)
	apihttp.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "Luna's knowledge base is unavailable, please try again shortly"))
}

func joinPath(base, rest string) string {
	base = strings.TrimSuffix(base, "/")
	if rest == "" {
		rest = "/"
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return base + rest
}
