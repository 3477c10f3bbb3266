package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/chxlky/trello-quickcard/internal/models"
)

const DefaultProxyURL = "https://api.allorigins.win/raw?url="

// ProxyClient routes reads through a CORS proxy that takes the escaped target
// URL as a suffix. The proxy cannot carry writes.
type ProxyClient struct {
	reader
	Client   *http.Client
	BaseURL  string
	ProxyURL string
}

func NewProxyClient(baseURL, proxyURL string) *ProxyClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if proxyURL == "" {
		proxyURL = DefaultProxyURL
	}
	pc := &ProxyClient{
		Client:   &http.Client{},
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ProxyURL: proxyURL,
	}
	pc.reader = reader{name: StrategyProxy, get: pc.get}
	return pc
}

func (pc *ProxyClient) Name() string { return StrategyProxy }

func (pc *ProxyClient) Capabilities() Capabilities { return Capabilities{} }

func (pc *ProxyClient) CreateCard(context.Context, models.Credentials, models.CardRequest) (*models.CardResult, error) {
	return nil, &Error{
		Kind:     KindCreateUnsupported,
		Op:       OpCreateCard,
		Strategy: StrategyProxy,
		Message:  "card creation requires the relay backend, the proxy is read-only",
	}
}

func (pc *ProxyClient) get(ctx context.Context, ep endpoint, creds models.Credentials, out any) error {
	target := pc.ProxyURL + url.QueryEscape(ep.url(pc.BaseURL, creds))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return transportError(ep.op, StrategyProxy, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := pc.Client.Do(req)
	if err != nil {
		return transportError(ep.op, StrategyProxy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return StatusError(ep.op, StrategyProxy, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformed(ep.op, StrategyProxy, err)
	}
	return nil
}
