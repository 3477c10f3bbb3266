package integrations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/chxlky/trello-quickcard/internal/models"
)

var testCreds = models.Credentials{APIKey: "k", Token: "t"}

// fakeTrello is a minimal stand-in for the Trello REST API.
type fakeTrello struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	forms    []url.Values
	// labelStatus lets a test fail specific label attachments.
	labelStatus map[string]int
}

func newFakeTrello(t *testing.T) *fakeTrello {
	t.Helper()
	f := &fakeTrello{labelStatus: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /members/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, models.Member{ID: "U1", FullName: "Ada Lovelace", Username: "ada"})
	})
	mux.HandleFunc("GET /members/me/boards", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, []models.Board{{ID: "B1", Name: "Roadmap", URL: "https://trello.com/b/B1"}})
	})
	mux.HandleFunc("GET /boards/{id}/lists", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "gone" {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		writeJSON(w, r, []models.List{{ID: "L1", Name: "Todo", Position: 1024}})
	})
	mux.HandleFunc("GET /boards/{id}/labels", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"LB1","name":null,"color":null},{"id":"LB2","name":"Bug","color":"red"}]`))
	})
	mux.HandleFunc("GET /boards/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, []models.Member{{ID: "M1", FullName: "Grace Hopper", Username: "grace"}})
	})
	mux.HandleFunc("POST /cards", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, map[string]string{"id": "C1", "url": "https://board/c/C1", "shortUrl": "https://trello.com/c/C1"})
	})
	mux.HandleFunc("POST /cards/{id}/idLabels", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, ok := f.labelStatus[r.Form.Get("value")]
		f.mu.Unlock()
		if ok {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`["` + r.Form.Get("value") + `"]`))
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.forms = append(f.forms, r.Form)
		f.mu.Unlock()

		if r.Form.Get("key") != "k" || r.Form.Get("token") != "t" {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTrello) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Method + " " + r.URL.Path
	}
	return out
}

func (f *fakeTrello) form(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[i]
}

// writeJSON answers plain JSON, or a callback script when the request names a callback.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	raw, _ := json.Marshal(v)
	if cb := r.Form.Get("callback"); cb != "" {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte(cb + "(" + string(raw) + ");"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}
