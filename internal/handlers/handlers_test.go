package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/services"
)

type fakeProcessor struct {
	mu    sync.Mutex
	got   []services.Message
	reply services.Reply
	err   error
}

func (f *fakeProcessor) ProcessMessage(ctx context.Context, msg services.Message) (*services.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &services.Result{Reply: f.reply}, nil
}

type sentMessage struct {
	to   string
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendWhatsAppMessage(to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: message})
	return f.err
}

func (f *fakeSender) SendWhatsAppTemplate(to, templateSID string, vars map[string]string) error {
	return f.SendWhatsAppMessage(to, templateSID)
}

func postForm(t *testing.T, app *fiber.App, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func postJSON(t *testing.T, app *fiber.App, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func webhookApp(conv MessageProcessor, sender services.MessageSender) *fiber.App {
	app := fiber.New()
	h := NewWhatsAppHandler(conv, sender, zap.NewNop())
	app.Post("/webhook/whatsapp", h.HandleWebhook)
	return app
}

func TestWebhookProcessesAndReplies(t *testing.T) {
	conv := &fakeProcessor{reply: services.Reply{
		Text:         "👋 Welcome!",
		QuickReplies: []string{"Order food", "Reserve a table"},
	}}
	sender := &fakeSender{}

	resp := postForm(t, webhookApp(conv, sender), url.Values{
		"From":       {"whatsapp:+573012345678"},
		"Body":       {"hola"},
		"MessageSid": {"SM1"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, conv.got, 1)
	assert.Equal(t, services.Message{
		SessionKey: "573012345678",
		Text:       "hola",
		Phone:      "+573012345678",
		MessageID:  "SM1",
	}, conv.got[0])

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+573012345678", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "👋 Welcome!")
	assert.Contains(t, sender.sent[0].body, "▫️ Reserve a table")
}

func TestWebhookMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"busy", services.ErrSessionBusy, busyText},
		{"commit", fmt.Errorf("%w: %w", services.ErrCommitFailed, errors.New("db down")), retryText},
		{"other", errors.New("boom"), apologyText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{}
			resp := postForm(t, webhookApp(&fakeProcessor{err: tc.err}, sender), url.Values{
				"From": {"whatsapp:+573012345678"},
				"Body": {"yes"},
			})
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tc.want, sender.sent[0].body)
		})
	}
}

func TestWebhookWithoutSender(t *testing.T) {
	conv := &fakeProcessor{reply: services.Reply{Text: "ok"}}
	resp := postForm(t, webhookApp(conv, nil), url.Values{
		"From": {"whatsapp:+573012345678"},
		"Body": {"hola"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, conv.got, 1)
}

func TestWebhookMissingSender(t *testing.T) {
	conv := &fakeProcessor{}
	resp := postForm(t, webhookApp(conv, &fakeSender{}), url.Values{"Body": {"hola"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, conv.got)
}

func chatApp(conv MessageProcessor) *fiber.App {
	app := fiber.New()
	app.Post("/api/chat", NewChatHandler(conv, zap.NewNop()).HandleMessage)
	return app
}

func TestChatGeneratesSessionKey(t *testing.T) {
	conv := &fakeProcessor{reply: services.Reply{Text: "hi", QuickReplies: []string{"Order food"}}}

	resp, out := postJSON(t, chatApp(conv), `{"text":"hola"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, conv.got, 1)
	key := conv.got[0].SessionKey
	assert.NotEmpty(t, key)
	assert.Equal(t, key, out["session_key"])

	reply, ok := out["reply"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hi", reply["text"])
}

func TestChatKeepsSessionKey(t *testing.T) {
	conv := &fakeProcessor{reply: services.Reply{Text: "hi"}}

	_, out := postJSON(t, chatApp(conv), `{"session_key":"web-42","text":"2","phone":"3012345678","message_id":"m1"}`)
	assert.Equal(t, "web-42", out["session_key"])
	require.Len(t, conv.got, 1)
	assert.Equal(t, "3012345678", conv.got[0].Phone)
	assert.Equal(t, "m1", conv.got[0].MessageID)
}

func TestChatErrorStatus(t *testing.T) {
	resp, out := postJSON(t, chatApp(&fakeProcessor{err: services.ErrSessionBusy}), `{"session_key":"k","text":"1"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, busyText, out["error"])

	resp, _ = postJSON(t, chatApp(&fakeProcessor{err: fmt.Errorf("%w: %w", services.ErrCommitFailed, errors.New("x"))}), `{"session_key":"k","text":"yes"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = postJSON(t, chatApp(&fakeProcessor{err: errors.New("boom")}), `{"session_key":"k","text":"yes"}`)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestChatRejectsBadBody(t *testing.T) {
	resp, _ := postJSON(t, chatApp(&fakeProcessor{}), `{"text":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	ok := NewHealthHandler("1.0.0", "memory", false, map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error { return nil }),
	})
	app.Get("/health", ok.Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	bad := fiber.New()
	down := NewHealthHandler("1.0.0", "postgres", true, map[string]Pinger{
		"redis": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	bad.Get("/health", down.Check)

	resp, err = bad.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "unhealthy", out["status"])
}
