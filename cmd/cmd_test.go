package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/internal/config"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStrategies(t *testing.T) {
	c := &config.Config{}
	c.Trello.Strategies = []string{"relay", " Direct ", "proxy", "direct", "callback"}
	c.Relay.URL = "https://relay.example.com/api"

	strategies, err := buildStrategies(c)
	require.NoError(t, err)

	var names []string
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"relay", "direct", "proxy", "callback"}, names)
}

func TestBuildStrategiesSkipsRelayWithoutURL(t *testing.T) {
	c := &config.Config{}
	c.Trello.Strategies = []string{"relay", "direct"}

	strategies, err := buildStrategies(c)
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, integrations.StrategyDirect, strategies[0].Name())

	c.Trello.Strategies = []string{"relay"}
	_, err = buildStrategies(c)
	assert.Error(t, err)
}

func TestBuildStrategiesRejectsUnknownName(t *testing.T) {
	c := &config.Config{}
	c.Trello.Strategies = []string{"direct", "carrier-pigeon"}

	_, err := buildStrategies(c)
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestParseDue(t *testing.T) {
	due, err := parseDue("")
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = parseDue("2026-03-14")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *due)

	_, err = parseDue("14/03/2026")
	assert.Error(t, err)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := newLogger("chatty")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(0))
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "No cards recorded yet\n", buf.String())

	buf.Reset()
	printHistory(&buf, []models.HistoryEntry{
		{CardRequest: models.CardRequest{Title: "Ship v2"}, Status: models.StatusSuccess, CardURL: "https://board/c/C1"},
		{CardRequest: models.CardRequest{Title: "Broken"}, Status: models.StatusFailed, Error: "invalid API key or token"},
	})
	out := buf.String()
	assert.Contains(t, out, "https://board/c/C1")
	assert.Contains(t, out, "invalid API key or token")
}

type fakeTrello struct {
	*httptest.Server
	cards  atomic.Int32
	labels atomic.Int32
}

func newFakeTrello(t *testing.T) *fakeTrello {
	t.Helper()
	f := &fakeTrello{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /members/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"U1","fullName":"Ada Lovelace","username":"ada"}`))
	})
	mux.HandleFunc("GET /members/me/boards", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"B1","name":"Roadmap"},{"id":"B2","name":"Ops"}]`))
	})
	mux.HandleFunc("GET /boards/B1/lists", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"L1","name":"Todo","pos":1}]`))
	})
	mux.HandleFunc("GET /boards/B1/labels", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"LB1","name":"","color":""}]`))
	})
	mux.HandleFunc("GET /boards/B1/members", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"M1","fullName":"Grace Hopper","username":"grace"}]`))
	})
	mux.HandleFunc("POST /cards", func(w http.ResponseWriter, r *http.Request) {
		n := f.cards.Add(1)
		fmt.Fprintf(w, `{"id":"C%d","url":"https://trello.test/c/C%d"}`, n, n)
	})
	mux.HandleFunc("POST /cards/{id}/idLabels", func(w http.ResponseWriter, r *http.Request) {
		f.labels.Add(1)
		_, _ = w.Write([]byte(`[]`))
	})
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("key") != "k" || r.FormValue("token") != "t" {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// run executes the root command against a config directory and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCardWorkflow(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	trello := newFakeTrello(t)

	dir := t.TempDir()
	toml := fmt.Sprintf(`
[trello]
base_url = %q
strategies = ["direct"]

[trello.labels]
delay = "1ms"

[database]
driver = "bolt"
path = %q
`, trello.URL, filepath.Join(dir, "quickcard.bolt"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))

	_, err := run(t, dir, "boards")
	assert.ErrorContains(t, err, "connect")

	out, err := run(t, dir, "connect", "--key", "k", "--token", "t")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected as Ada Lovelace")

	out, err = run(t, dir, "boards")
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap")
	assert.Contains(t, out, "Ops")

	out, err = run(t, dir, "board", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Todo")
	assert.Contains(t, out, "Unnamed")
	assert.Contains(t, out, "gray")

	out, err = run(t, dir, "create", "--list", "L1", "--title", "Ship v2", "--description", "Write release notes", "--labels", "LB1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://trello.test/c/C1")
	assert.Equal(t, int32(1), trello.labels.Load())

	_, err = run(t, dir, "create", "--list", "L9", "--title", "Elsewhere", "--description", "wrong list")
	assert.Error(t, err)
	assert.Equal(t, int32(1), trello.cards.Load())

	out, err = run(t, dir, "history", "stats")
	require.NoError(t, err)
	assert.Equal(t, "Total: 2  Successful: 1  Failed: 1\n", out)

	out, err = run(t, dir, "history", "list", "--status", "success", "--sort", "oldest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ship v2")
	assert.False(t, strings.Contains(out, "Elsewhere"))

	_, err = run(t, dir, "disconnect")
	require.NoError(t, err)
	_, err = run(t, dir, "boards")
	assert.Error(t, err)

	out, err = run(t, dir, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")
	out, err = run(t, dir, "history", "list", "--status", "", "--sort", "newest")
	require.NoError(t, err)
	assert.Equal(t, "No cards recorded yet\n", out)
}
