package nauta

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/nautacli/nauta/pkg/logger"
)

// maxProbeBody caps how much of the check page is inspected.
const maxProbeBody = 4 << 20

// Prober tells an open network from one gated by the captive portal.
type Prober struct {
	client *http.Client
	url    string
	marker []byte
	log    logger.Logger
}

// NewProber builds a prober from cfg. The transport is shared with the
// protocol client; the prober uses its own short timeout and no cookies.
func NewProber(cfg *Config, transport http.RoundTripper, l logger.Logger) *Prober {
	return &Prober{
		client: &http.Client{Transport: transport, Timeout: cfg.ProbeTimeout},
		url:    cfg.CheckURL,
		marker: []byte(cfg.PortalMarker),
		log:    l,
	}
}

// IsConnected fetches the check page once. It reports false when the
// request fails or when the page came back rewritten by the gateway.
func (p *Prober) IsConnected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Debug("probe: build request: %v", err)
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("probe: %v", err)
		return false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		p.log.Debug("probe: read body: %v", err)
		return false
	}
	gated := bytes.Contains(body, p.marker)
	p.log.Debug("probe: %s -> %d, gated=%t", p.url, resp.StatusCode, gated)
	return !gated
}
