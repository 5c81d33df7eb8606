package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/oracle"
	"github.com/mbd888/trustboard/internal/view"
)

// stubOracle returns one agent per request echoing the requested chain.
type stubOracle struct {
	mu    sync.Mutex
	calls []oracle.TopQuery
}

func (s *stubOracle) NetworkStats(context.Context) (*oracle.NetworkStats, error) {
	return &oracle.NetworkStats{TotalAgents: 3, ChainDistribution: map[string]int{"base": 2, "polygon": 1}}, nil
}

func (s *stubOracle) PaymentStats(context.Context) (*oracle.PaymentStats, error) {
	return &oracle.PaymentStats{}, nil
}

func (s *stubOracle) TopAgents(_ context.Context, q oracle.TopQuery) ([]oracle.TrustedAgent, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	s.mu.Unlock()
	return []oracle.TrustedAgent{{AgentID: 1, Chain: q.Chain, Tier: oracle.TierGold, CompositeScore: 75}}, nil
}

func (s *stubOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func startHub(t *testing.T, src view.Source, maxClients int) (*Hub, string) {
	t.Helper()
	h := NewHub(src, maxClients, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(func() {
		cancel()
		<-h.done
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if match(ev) {
			return ev
		}
	}
}

func settled(chain string) func(Event) bool {
	return func(ev Event) bool {
		return !ev.Data.Loading && ev.Data.Phase == fetch.PhaseSuccess && ev.Data.Filter.Chain == chain
	}
}

func TestHub_Stats_Initial(t *testing.T) {
	h := NewHub(&stubOracle{}, 0, logging.Discard())
	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("expected 0 clients, got %v", stats["connectedClients"])
	}
	if stats["maxClients"].(int) != DefaultMaxClients {
		t.Errorf("expected default max clients, got %v", stats["maxClients"])
	}
}

func TestHub_SessionPushesInitialModel(t *testing.T) {
	src := &stubOracle{}
	_, url := startHub(t, src, 10)
	conn := dial(t, url+"?chain=base")

	ev := readUntil(t, conn, settled("base"))
	if ev.Type != EventLeaderboard || ev.SessionID == "" {
		t.Fatalf("unexpected frame header: %+v", ev)
	}
	if len(ev.Data.Rows) != 1 || ev.Data.Rows[0].Chain != "Base" {
		t.Fatalf("unexpected rows: %+v", ev.Data.Rows)
	}
}

func TestHub_FilterMessageRefetches(t *testing.T) {
	src := &stubOracle{}
	_, url := startHub(t, src, 10)
	conn := dial(t, url)
	readUntil(t, conn, settled(""))

	if err := conn.WriteJSON(map[string]string{"chain": "polygon"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := readUntil(t, conn, settled("polygon"))
	if ev.Data.Rows[0].Chain != "Polygon" {
		t.Fatalf("expected polygon rows, got %+v", ev.Data.Rows)
	}

	// Same selection again must not hit the oracle.
	before := src.callCount()
	if err := conn.WriteJSON(Message{Type: "select", Dimension: "chain", Value: "polygon"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(Message{Type: "select", Dimension: "category", Value: "defi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	readUntil(t, conn, func(ev Event) bool { return settled("polygon")(ev) && ev.Data.Filter.Category == "defi" })
	if got := src.callCount() - before; got != 1 {
		t.Fatalf("expected exactly one refetch, got %d", got)
	}
}

func TestHub_RejectsOverCapacity(t *testing.T) {
	h, url := startHub(t, &stubOracle{}, 1)
	conn := dial(t, url)
	readUntil(t, conn, settled(""))

	deadline := time.Now().Add(time.Second)
	for h.Stats()["connectedClients"].(int) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %+v", resp)
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := NewHub(&stubOracle{}, 10, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	w := httptest.NewRecorder()
	h.HandleWebSocket(w, httptest.NewRequest("GET", "/ws/leaderboard", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", w.Code)
	}
}

func TestClient_HandleKeepsUnsetDimension(t *testing.T) {
	src := &stubOracle{}
	c := &Client{
		board: view.NewLeaderboard(src, logging.Discard(), fetch.Filter{Category: "defi"}),
		ctx:   context.Background(),
	}
	chain := "base"
	c.handle(Message{Chain: &chain})
	c.board.Wait()

	if got := c.board.Filter(); got != (fetch.Filter{Category: "defi", Chain: "base"}) {
		t.Fatalf("unexpected filter %+v", got)
	}
}
