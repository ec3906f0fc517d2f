package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
	"github.com/harisabid200/ChatFlowUI/pkg/signature"
)

func postCallback(h *testHarness, chatbotID string, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+chatbotID+"/response", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(cnst.HeaderSignature, sig)
	}
	return h.do(req)
}

func joinRoom(t *testing.T, h *testHarness, conn relay.Conn, chatbotID, sessionID string) {
	t.Helper()
	require.NoError(t, h.router.Join(context.Background(), conn, chatbotID, sessionID, ""))
}

func TestWebhookCallbackAuth(t *testing.T) {
	h := newTestHarness(t, nil)
	seedChatbot(t, h.store, &storage.Chatbot{
		ID: "bot1", Name: "Bot", WebhookURL: "http://upstream",
		WebhookSecret: "topsecret",
	})

	body := []byte(`{"sessionId":"s1","message":"hi"}`)

	t.Run("unknown chatbot", func(t *testing.T) {
		w := postCallback(h, "ghost", body, "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing signature", func(t *testing.T) {
		w := postCallback(h, "bot1", body, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Missing signature")
	})

	t.Run("wrong signature", func(t *testing.T) {
		w := postCallback(h, "bot1", body, signature.Sign("wrongsecret", body))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid signature")
	})

	t.Run("signature over different bytes", func(t *testing.T) {
		w := postCallback(h, "bot1", body, signature.Sign("topsecret", []byte(`{"sessionId":"s1","message":"hj"}`)))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid signature", func(t *testing.T) {
		w := postCallback(h, "bot1", body, signature.Sign("topsecret", body))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "true")
	})

	t.Run("no secret configured skips verification", func(t *testing.T) {
		seedChatbot(t, h.store, &storage.Chatbot{
			ID: "open", Name: "Open", WebhookURL: "http://upstream",
		})
		w := postCallback(h, "open", body, "")
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWebhookCallbackValidation(t *testing.T) {
	h := newTestHarness(t, nil)
	seedChatbot(t, h.store, &storage.Chatbot{
		ID: "bot1", Name: "Bot", WebhookURL: "http://upstream",
	})

	t.Run("invalid json", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{nope`), "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing session id", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{"message":"hi"}`), "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "sessionId is required")
	})
}

func TestWebhookCallbackDelivery(t *testing.T) {
	h := newTestHarness(t, nil)
	seedChatbot(t, h.store, &storage.Chatbot{
		ID: "bot1", Name: "Bot", WebhookURL: "http://upstream",
	})

	conn := newCapturedConn("c1")
	joinRoom(t, h, conn, "bot1", "s1")

	t.Run("delivers to joined session", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{"sessionId":"s1","message":"Order shipped","quickReplies":["Track it"],"metadata":{"orderId":42}}`), "")
		require.Equal(t, http.StatusOK, w.Code)

		msg := conn.receive(t)
		assert.Equal(t, cnst.EventMessage, msg.Event)
		ev := msg.Data.(*relay.Event)
		assert.Equal(t, cnst.TypeBotMessage, ev.Type)
		assert.Equal(t, "Order shipped", ev.Message)
		assert.Equal(t, []string{"Track it"}, ev.QuickReplies)
		assert.Equal(t, float64(42), ev.Metadata["orderId"])
		assert.NotEmpty(t, ev.Timestamp)
	})

	t.Run("snake_case session id accepted", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{"session_id":"s1","text":"alt fields"}`), "")
		require.Equal(t, http.StatusOK, w.Code)

		ev := conn.receive(t).Data.(*relay.Event)
		assert.Equal(t, "alt fields", ev.Message)
	})

	t.Run("message wins over text", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{"sessionId":"s1","message":"primary","text":"secondary"}`), "")
		require.Equal(t, http.StatusOK, w.Code)

		ev := conn.receive(t).Data.(*relay.Event)
		assert.Equal(t, "primary", ev.Message)
	})

	t.Run("empty room still succeeds", func(t *testing.T) {
		w := postCallback(h, "bot1", []byte(`{"sessionId":"nobody-here","message":"hello?"}`), "")
		require.Equal(t, http.StatusOK, w.Code)

		select {
		case msg := <-conn.msgs:
			t.Fatalf("unexpected delivery: %+v", msg)
		default:
		}
	})

	t.Run("other session not delivered", func(t *testing.T) {
		other := newCapturedConn("c2")
		joinRoom(t, h, other, "bot1", "s2")

		w := postCallback(h, "bot1", []byte(`{"sessionId":"s1","message":"for s1"}`), "")
		require.Equal(t, http.StatusOK, w.Code)

		ev := conn.receive(t).Data.(*relay.Event)
		assert.Equal(t, "for s1", ev.Message)
		select {
		case msg := <-other.msgs:
			t.Fatalf("cross-session delivery: %+v", msg)
		default:
		}
	})
}
