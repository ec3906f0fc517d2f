package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/forwarder"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/ratelimit"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	chatbots map[string]*storage.Chatbot
	themes   map[string]*storage.Theme
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chatbots: make(map[string]*storage.Chatbot),
		themes:   make(map[string]*storage.Theme),
	}
}

func (s *fakeStore) GetChatbot(_ context.Context, id string) (*storage.Chatbot, error) {
	if c, ok := s.chatbots[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetTheme(_ context.Context, id string) (*storage.Theme, error) {
	if t, ok := s.themes[id]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) SaveChatbot(_ context.Context, chatbot *storage.Chatbot) error {
	s.chatbots[chatbot.ID] = chatbot
	return nil
}

func (s *fakeStore) SaveTheme(_ context.Context, theme *storage.Theme) error {
	s.themes[theme.ID] = theme
	return nil
}

func (s *fakeStore) Close() error { return nil }

type testHarness struct {
	engine *gin.Engine
	server *Server
	store  *fakeStore
	router *relay.Router
	cfg    *config.Config
}

func newTestHarness(t *testing.T, mutate func(cfg *config.Config)) *testHarness {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	logger := zap.NewNop()
	store := newFakeStore()
	validator := origin.NewValidator(logger, cfg, store)
	router := relay.NewRouter(logger, store, validator)
	fwd := forwarder.New(logger, store, &cfg.Forwarder)
	limiter := ratelimit.NewMemoryStore(logger, cfg.RateLimit.SweepInterval)
	t.Cleanup(func() { _ = limiter.Close() })

	srv := New(logger, cfg, store, validator, router, fwd, limiter, nil)
	engine := gin.New()
	srv.RegisterRoutes(engine)

	return &testHarness{
		engine: engine,
		server: srv,
		store:  store,
		router: router,
		cfg:    cfg,
	}
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// capturedConn records everything delivered to it, standing in for a live
// websocket connection in room tests.
type capturedConn struct {
	id   string
	msgs chan *relay.ServerMessage
}

func newCapturedConn(id string) *capturedConn {
	return &capturedConn{id: id, msgs: make(chan *relay.ServerMessage, 16)}
}

func (c *capturedConn) ID() string { return c.id }

func (c *capturedConn) Send(msg *relay.ServerMessage) error {
	c.msgs <- msg
	return nil
}

func (c *capturedConn) receive(t *testing.T) *relay.ServerMessage {
	t.Helper()
	select {
	case msg := <-c.msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func seedChatbot(t *testing.T, store *fakeStore, chatbot *storage.Chatbot) {
	t.Helper()
	if chatbot.AllowedOrigins == "" {
		chatbot.AllowedOrigins = "[]"
	}
	if chatbot.Settings == "" {
		chatbot.Settings = "{}"
	}
	require.NoError(t, store.SaveChatbot(context.Background(), chatbot))
}
