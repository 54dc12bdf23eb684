package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_miniapp/internal/entities"
	"tg_miniapp/internal/logging"
)

const testToken = "123:abc"

type fakeBotAPI struct {
	mu        sync.Mutex
	sent      []url.Values
	offsets   []string
	batches   [][]string
	onDrain   func()
	polls     int
	failPolls int
	hang      chan struct{}
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	_ = r.ParseForm()

	if method == "getUpdates" && f.hang != nil {
		f.hang <- struct{}{}
		<-r.Context().Done()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "getMe":
		writeResult(w, `{"id":1,"is_bot":true,"first_name":"Shop","username":"shop_bot"}`)
	case "sendMessage":
		f.sent = append(f.sent, r.PostForm)
		writeResult(w, `{"message_id":10,"date":0,"chat":{"id":42,"type":"private"}}`)
	case "getUpdates":
		f.offsets = append(f.offsets, r.PostForm.Get("offset"))
		if f.failPolls > 0 {
			f.failPolls--
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
			return
		}
		if f.polls < len(f.batches) {
			batch := f.batches[f.polls]
			f.polls++
			writeResult(w, "["+strings.Join(batch, ",")+"]")
			return
		}
		if f.onDrain != nil {
			f.onDrain()
		}
		writeResult(w, `[]`)
	default:
		http.NotFound(w, r)
	}
}

func writeResult(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":` + result + `}`))
}

func newTestClient(t *testing.T, api *fakeBotAPI) *TelegramClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewTelegramClient(TelegramConfig{
		Token:       testToken,
		APIEndpoint: srv.URL + "/bot%s/%s",
		PollTimeout: 0,
		SendRate:    100,
		SendBurst:   10,
	}, logging.Discard())
	require.NoError(t, err)
	client.retryDelay = 0
	return client
}

func TestNewTelegramClient_ReadsBotIdentity(t *testing.T) {
	client := newTestClient(t, &fakeBotAPI{})
	assert.Equal(t, "shop_bot", client.Bot.Self.UserName)
}

func TestSendReply_PlainText(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	err := client.SendReply(context.Background(), 42, entities.Reply{Text: "hello"})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "42", api.sent[0].Get("chat_id"))
	assert.Equal(t, "hello", api.sent[0].Get("text"))
	assert.Empty(t, api.sent[0].Get("reply_markup"))
}

func TestSendReply_WebAppButton(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	reply := entities.Reply{
		Text:   "open it",
		Button: &entities.ReplyButton{Text: "Open", WebAppURL: "https://app.example/?client=acme"},
	}
	require.NoError(t, client.SendReply(context.Background(), 42, reply))

	require.Len(t, api.sent, 1)
	var markup InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(api.sent[0].Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	button := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Open", button.Text)
	require.NotNil(t, button.WebApp)
	assert.Equal(t, "https://app.example/?client=acme", button.WebApp.URL)
}

func TestPoll_HandlesUpdatesInOrderAndAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeBotAPI{
		batches: [][]string{{
			`{"update_id":7,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"first"}}`,
			`{"update_id":8,"message":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"},"web_app_data":{"data":"{\"a\":1}","button_text":"Send"}}}`,
		}},
		onDrain: cancel,
	}
	client := newTestClient(t, api)

	var got []Update
	err := client.Poll(ctx, func(_ context.Context, u Update) {
		got = append(got, u)
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 7, got[0].UpdateID)
	assert.Equal(t, "first", got[0].Message.Text)
	require.NotNil(t, got[1].Message.WebAppData)
	assert.Equal(t, `{"a":1}`, got[1].Message.WebAppData.Data)

	require.GreaterOrEqual(t, len(api.offsets), 2)
	assert.Equal(t, "9", api.offsets[1])
}

func TestPoll_RecoversFromHandlerPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeBotAPI{
		batches: [][]string{{
			`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"boom"}}`,
			`{"update_id":2,"message":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`,
		}},
		onDrain: cancel,
	}
	client := newTestClient(t, api)

	var handled []string
	err := client.Poll(ctx, func(_ context.Context, u Update) {
		if u.Message.Text == "boom" {
			panic("handler failure")
		}
		handled = append(handled, u.Message.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, handled)
}

func TestPoll_RetriesAfterTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeBotAPI{
		failPolls: 2,
		batches: [][]string{{
			`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"hi"}}`,
		}},
		onDrain: cancel,
	}
	client := newTestClient(t, api)

	var handled int
	err := client.Poll(ctx, func(context.Context, Update) { handled++ })
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.GreaterOrEqual(t, len(api.offsets), 4)
}

func TestPoll_CancelAbortsLongPoll(t *testing.T) {
	api := &fakeBotAPI{hang: make(chan struct{}, 1)}
	client := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- client.Poll(ctx, func(context.Context, Update) {})
	}()

	select {
	case <-api.hang:
	case <-time.After(2 * time.Second):
		t.Fatal("getUpdates was never called")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll kept waiting on the long poll after cancel")
	}
}
