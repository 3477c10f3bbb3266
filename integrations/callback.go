package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chxlky/trello-quickcard/internal/models"
	"go.uber.org/zap"
)

// CallbackClient is the callback-bridge strategy. Each read asks Trello to wrap
// its payload in a call to a uniquely named callback; the response script is
// then dispatched to that callback by name. Reads only.
type CallbackClient struct {
	reader
	Client  *http.Client
	BaseURL string
	// Timeout is the hard limit for a callback to fire.
	Timeout time.Duration
	bridge  *callbackBridge
}

func NewCallbackClient(baseURL string, timeout time.Duration) *CallbackClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cc := &CallbackClient{
		Client:  &http.Client{},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		bridge:  newCallbackBridge(),
	}
	cc.reader = reader{name: StrategyCallback, get: cc.get}
	return cc
}

func (cc *CallbackClient) Name() string { return StrategyCallback }

func (cc *CallbackClient) Capabilities() Capabilities { return Capabilities{} }

func (cc *CallbackClient) CreateCard(context.Context, models.Credentials, models.CardRequest) (*models.CardResult, error) {
	return nil, &Error{Kind: KindCreateUnsupported, Op: OpCreateCard, Strategy: StrategyCallback}
}

func (cc *CallbackClient) get(ctx context.Context, ep endpoint, creds models.Credentials, out any) error {
	ctx, cancel := context.WithTimeout(ctx, cc.Timeout)
	defer cancel()

	name, fired, release := cc.bridge.register()
	defer release()

	target := ep.url(cc.BaseURL, creds) + "&callback=" + url.QueryEscape(name)

	loaded := make(chan error, 1)
	go func() {
		loaded <- cc.load(ctx, ep.op, target)
	}()

	for {
		select {
		case payload := <-fired:
			if err := json.Unmarshal(payload, out); err != nil {
				return malformed(ep.op, StrategyCallback, err)
			}
			return nil
		case err := <-loaded:
			if err != nil {
				return err
			}
			// The script ran; keep waiting in case the callback has not been reached yet.
			loaded = nil
		case <-ctx.Done():
			return transportError(ep.op, StrategyCallback, fmt.Errorf("callback %s never fired: %w", name, ctx.Err()))
		}
	}
}

// load fetches the script and runs it against the bridge.
func (cc *CallbackClient) load(ctx context.Context, op, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return transportError(op, StrategyCallback, err)
	}
	req.Header.Set("Accept", "application/javascript")

	resp, err := cc.Client.Do(req)
	if err != nil {
		return transportError(op, StrategyCallback, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, StrategyCallback, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError(op, StrategyCallback, resp.StatusCode, string(body))
	}

	if err := cc.bridge.deliver(body); err != nil {
		if errors.Is(err, errUnknownCallback) {
			zap.L().Debug("Callback script addressed an unknown callback", zap.Error(err))
			return nil
		}
		return malformed(op, StrategyCallback, err)
	}
	return nil
}

var (
	callbackScript     = regexp.MustCompile(`^\s*(?:/\*\*/\s*)?([A-Za-z_$][\w$]*)\s*\(([\s\S]*)\)\s*;?\s*$`)
	errUnknownCallback = errors.New("unknown callback")
)

type callbackBridge struct {
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

func newCallbackBridge() *callbackBridge {
	return &callbackBridge{pending: make(map[string]chan json.RawMessage)}
}

// register reserves a fresh callback name. release must be called on every
// exit path; after it returns the callback can no longer fire.
func (b *callbackBridge) register() (string, <-chan json.RawMessage, func()) {
	name := "trello_callback_" + strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + strconv.FormatUint(rand.Uint64(), 36)
	fired := make(chan json.RawMessage, 1)

	b.mu.Lock()
	b.pending[name] = fired
	b.mu.Unlock()

	release := func() {
		b.mu.Lock()
		delete(b.pending, name)
		b.mu.Unlock()
	}
	return name, fired, release
}

// deliver parses a `name(payload)` script and resolves the named callback once.
func (b *callbackBridge) deliver(script []byte) error {
	m := callbackScript.FindSubmatch(script)
	if m == nil {
		return fmt.Errorf("response is not a callback script")
	}
	name, payload := string(m[1]), m[2]
	if !json.Valid(payload) {
		return fmt.Errorf("callback %s received invalid JSON", name)
	}

	b.mu.Lock()
	fired, ok := b.pending[name]
	delete(b.pending, name)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %q", errUnknownCallback, name)
	}

	fired <- json.RawMessage(payload)
	return nil
}

func (b *callbackBridge) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
