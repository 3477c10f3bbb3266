package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackClientReads(t *testing.T) {
	fake := newFakeTrello(t)
	cc := NewCallbackClient(fake.URL, time.Second)

	boards, err := cc.ListBoards(context.Background(), testCreds)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "B1", boards[0].ID)

	me, err := cc.ValidateCredentials(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "U1", me.ID)

	assert.Zero(t, cc.bridge.pendingCount())
	assert.Regexp(t, `^trello_callback_\d+_[0-9a-z]+$`, fake.form(0).Get("callback"))
	assert.NotEqual(t, fake.form(0).Get("callback"), fake.form(1).Get("callback"))
}

func TestCallbackClientCleansUpOnFailure(t *testing.T) {
	fake := newFakeTrello(t)
	cc := NewCallbackClient(fake.URL, time.Second)

	_, err := cc.ListLists(context.Background(), testCreds, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, cc.bridge.pendingCount())

	_, err = cc.ListBoards(context.Background(), models.Credentials{APIKey: "bad", Token: "t"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, cc.bridge.pendingCount())
}

func TestCallbackClientTimesOutWhenCallbackNeverFires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`someoneElse([]);`))
	}))
	defer srv.Close()

	cc := NewCallbackClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := cc.ListBoards(context.Background(), testCreds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "request to Trello timed out", Message(err))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, cc.bridge.pendingCount())
}

func TestCallbackClientMalformedScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>blocked</html>`))
	}))
	defer srv.Close()

	cc := NewCallbackClient(srv.URL, time.Second)
	_, err := cc.ListBoards(context.Background(), testCreds)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "malformed response from Trello", Message(err))
	assert.Zero(t, cc.bridge.pendingCount())
}

func TestCallbackClientCannotCreateCards(t *testing.T) {
	cc := NewCallbackClient("", 0)
	assert.False(t, cc.Capabilities().Mutations)

	_, err := cc.CreateCard(context.Background(), testCreds, models.CardRequest{})
	assert.ErrorIs(t, err, ErrCreateUnsupported)
}

func TestCallbackBridgeResolvesOnce(t *testing.T) {
	b := newCallbackBridge()
	name, fired, release := b.register()
	defer release()

	require.NoError(t, b.deliver([]byte("/**/ "+name+`({"id":"x"});`)))
	assert.JSONEq(t, `{"id":"x"}`, string(<-fired))

	err := b.deliver([]byte(name + `({"id":"y"})`))
	assert.ErrorIs(t, err, errUnknownCallback)
	assert.Zero(t, b.pendingCount())
}

func TestCallbackBridgeReleasedHandleNeverFires(t *testing.T) {
	b := newCallbackBridge()
	name, fired, release := b.register()
	release()

	assert.ErrorIs(t, b.deliver([]byte(name+`([])`)), errUnknownCallback)
	select {
	case <-fired:
		t.Fatal("released callback fired")
	default:
	}
}
