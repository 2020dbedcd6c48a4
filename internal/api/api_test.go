package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"hexempire/internal/chain"
	"hexempire/internal/relay"
)

// memStore is an in-memory Store for router tests.
type memStore struct {
	mu     sync.Mutex
	events []*chain.GameEvent
	ids    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{ids: make(map[string]bool)}
}

func (m *memStore) Save(ev *chain.GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[ev.ID] {
		return relay.ErrDuplicate
	}
	m.ids[ev.ID] = true
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) Query(f relay.Filter) ([]*chain.GameEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*chain.GameEvent
	for _, ev := range m.events {
		if !f.Matches(ev) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CountForGame(gameID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.GameID == gameID {
			n++
		}
	}
	return n, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testRouter(t *testing.T, store Store, notifier Notifier) http.Handler {
	t.Helper()
	limiter := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 10000,
		Burst:             10000,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})
	t.Cleanup(limiter.Stop)
	return NewRouter(RouterConfig{
		Store:          store,
		Notifier:       notifier,
		RateLimiter:    limiter,
		DisableLogging: true,
	})
}

func publishBody(id, gameID, author string, kind chain.ActionKind) []byte {
	ev := &chain.GameEvent{
		ID:       id,
		GameID:   gameID,
		PlayerID: author,
		Action:   chain.GameAction{Kind: kind},
	}
	body, _ := json.Marshal(ev)
	return body
}

func TestPublishAndQueryRoundTrip(t *testing.T) {
	store := newMemStore()
	ts := httptest.NewServer(testRouter(t, store, nil))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/events", "application/json",
		bytes.NewReader(publishBody("ev-1", "g1", "alice", chain.ActionCreateGame)))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}

	var pub struct {
		ID        string `json:"id"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pub); err != nil {
		t.Fatalf("decode publish response: %v", err)
	}
	if pub.ID != "ev-1" || pub.Duplicate {
		t.Fatalf("publish response = %+v", pub)
	}

	// Same event again reports duplicate without erroring.
	resp2, err := http.Post(ts.URL+"/api/events", "application/json",
		bytes.NewReader(publishBody("ev-1", "g1", "alice", chain.ActionCreateGame)))
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&pub); err != nil {
		t.Fatalf("decode republish response: %v", err)
	}
	if !pub.Duplicate {
		t.Fatal("republish should report duplicate")
	}

	resp3, err := http.Get(ts.URL + "/api/events?game=g1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer resp3.Body.Close()

	var q struct {
		Events []*chain.GameEvent `json:"events"`
		Count  int                `json:"count"`
	}
	if err := json.NewDecoder(resp3.Body).Decode(&q); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	if q.Count != 1 || q.Events[0].ID != "ev-1" {
		t.Fatalf("query returned %d events, want the published one", q.Count)
	}
}

func TestPublishRejectsUnsignedAndMalformed(t *testing.T) {
	store := newMemStore()
	ts := httptest.NewServer(testRouter(t, store, nil))
	defer ts.Close()

	cases := []struct {
		name string
		body []byte
	}{
		{"unsigned", publishBody("", "g1", "alice", chain.ActionEndTurn)},
		{"no game", publishBody("ev-2", "", "alice", chain.ActionEndTurn)},
		{"malformed", []byte("{not json")},
	}
	for _, tc := range cases {
		resp, err := http.Post(ts.URL+"/api/events", "application/json", bytes.NewReader(tc.body))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
	if n, _ := store.CountForGame("g1"); n != 0 {
		t.Fatalf("rejected events reached storage: %d", n)
	}
}

func TestPublishNotifiesSubscribers(t *testing.T) {
	store := newMemStore()
	registry := relay.NewSubscriptionRegistry(4, quietLogger())
	ts := httptest.NewServer(testRouter(t, store, registry))
	defer ts.Close()

	sub := registry.Subscribe("watcher", relay.Filter{GameID: "g1"})

	resp, err := http.Post(ts.URL+"/api/events", "application/json",
		bytes.NewReader(publishBody("ev-1", "g1", "alice", chain.ActionEndTurn)))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	resp.Body.Close()

	select {
	case ev := <-sub.C:
		if ev.ID != "ev-1" {
			t.Fatalf("notified event = %s", ev.ID)
		}
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestQueryJSONFilter(t *testing.T) {
	store := newMemStore()
	ts := httptest.NewServer(testRouter(t, store, nil))
	defer ts.Close()

	for i, author := range []string{"alice", "bob", "alice"} {
		resp, err := http.Post(ts.URL+"/api/events", "application/json",
			bytes.NewReader(publishBody(fmt.Sprintf("ev-%d", i), "g1", author, chain.ActionEndTurn)))
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		resp.Body.Close()
	}

	filter, _ := json.Marshal(relay.Filter{Authors: []string{"alice"}})
	resp, err := http.Post(ts.URL+"/api/events/query", "application/json", bytes.NewReader(filter))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer resp.Body.Close()

	var q struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Count != 2 {
		t.Fatalf("author filter matched %d events, want 2", q.Count)
	}
}

func TestGameCountEndpoint(t *testing.T) {
	store := newMemStore()
	ts := httptest.NewServer(testRouter(t, store, nil))
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Post(ts.URL+"/api/events", "application/json",
			bytes.NewReader(publishBody(fmt.Sprintf("ev-%d", i), "g1", "alice", chain.ActionEndTurn)))
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/games/g1/count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	defer resp.Body.Close()

	var c struct {
		GameID string `json:"gameId"`
		Count  int    `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.GameID != "g1" || c.Count != 3 {
		t.Fatalf("count response = %+v", c)
	}
}

func TestValidateSettingsEndpoint(t *testing.T) {
	ts := httptest.NewServer(testRouter(t, newMemStore(), nil))
	defer ts.Close()

	good := []byte(`{"name":"duel","mapWidth":40,"mapHeight":24,"wrapX":true,"waterPercentage":0.4,"numPlayers":2}`)
	resp, err := http.Post(ts.URL+"/api/settings/validate", "application/json", bytes.NewReader(good))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	defer resp.Body.Close()

	var v struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Valid {
		t.Fatalf("valid settings rejected: %s", v.Reason)
	}

	bad := []byte(`{"name":"","numPlayers":2,"mapWidth":40,"mapHeight":24}`)
	resp2, err := http.Post(ts.URL+"/api/settings/validate", "application/json", bytes.NewReader(bad))
	if err != nil {
		t.Fatalf("validate bad: %v", err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&v); err != nil {
		t.Fatalf("decode bad: %v", err)
	}
	if v.Valid || v.Reason == "" {
		t.Fatalf("empty name accepted: %+v", v)
	}
}

func TestRateLimiterRejectsFloods(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})
	defer limiter.Stop()

	router := NewRouter(RouterConfig{
		Store:          newMemStore(),
		RateLimiter:    limiter,
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp, err := http.Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	// Burst of 2 allowed, then 429s.
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", statuses)
	}
	if statuses[3] != http.StatusTooManyRequests {
		t.Fatalf("flood not rejected: %v", statuses)
	}

	stats := limiter.GetStats()
	if stats["rejected"] == 0 {
		t.Fatal("rejected counter not incremented")
	}
}

func TestWebSocketRateLimiterCounts(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("1.2.3.4") || !wrl.Allow("1.2.3.4") {
		t.Fatal("connections under the cap rejected")
	}
	if wrl.Allow("1.2.3.4") {
		t.Fatal("third connection should be rejected")
	}
	if !wrl.Allow("5.6.7.8") {
		t.Fatal("other IPs should not be affected")
	}

	wrl.Release("1.2.3.4")
	if !wrl.Allow("1.2.3.4") {
		t.Fatal("released slot should be reusable")
	}

	wrl.Release("5.6.7.8")
	if n := wrl.GetConnectionCount("5.6.7.8"); n != 0 {
		t.Fatalf("count after release = %d", n)
	}
}

func TestGetClientIPHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if ip := GetClientIP(r); ip != "10.0.0.1" {
		t.Fatalf("remote addr ip = %s", ip)
	}

	r.Header.Set("X-Real-IP", "2.2.2.2")
	if ip := GetClientIP(r); ip != "2.2.2.2" {
		t.Fatalf("x-real-ip = %s", ip)
	}

	r.Header.Set("X-Forwarded-For", "3.3.3.3, 4.4.4.4")
	if ip := GetClientIP(r); ip != "3.3.3.3" {
		t.Fatalf("x-forwarded-for = %s", ip)
	}
}
