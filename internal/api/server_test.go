package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/config"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/logging"
	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

const (
	testEntity = "todo.kassalapp_1"
	testSecret = "test-secret-key-at-least-32-characters-long"
)

// fakeAPI is an in-memory account with one list.
type fakeAPI struct {
	mu    sync.Mutex
	items []kassalapp.ShoppingListItem
	next  int64
}

func (f *fakeAPI) ShoppingLists(context.Context) ([]kassalapp.ShoppingList, error) {
	return []kassalapp.ShoppingList{{ID: 1, Title: "Groceries"}}, nil
}

func (f *fakeAPI) ShoppingListItems(context.Context, int64) ([]kassalapp.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kassalapp.ShoppingListItem(nil), f.items...), nil
}

func (f *fakeAPI) AddShoppingListItem(_ context.Context, _ int64, text string, _ int64) (*kassalapp.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	item := kassalapp.ShoppingListItem{ID: f.next, Text: text}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeAPI) UpdateShoppingListItem(_ context.Context, _, itemID int64, u kassalapp.ItemUpdate) (*kassalapp.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID != itemID {
			continue
		}
		if u.Text != nil {
			it.Text = *u.Text
		}
		if u.Checked != nil {
			it.Checked = *u.Checked
		}
		f.items[i] = it
		return &it, nil
	}
	return nil, &kassalapp.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeAPI) DeleteShoppingListItem(_ context.Context, _, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, it := range f.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

type memoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func (b *memoryBackend) Load(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data, nil
}

func (b *memoryBackend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type serverOption func(*Deps)

func withSecret(secret string) serverOption {
	return func(d *Deps) { d.Security.JWT.Secret = secret }
}

func withCheck(name string, err error) serverOption {
	return func(d *Deps) {
		if d.Checks == nil {
			d.Checks = map[string]HealthChecker{}
		}
		d.Checks[name] = checkFunc(func(context.Context) error { return err })
	}
}

// testServer builds a server over list 1 with items A(1) B(2) C(3).
func testServer(t *testing.T, opts ...serverOption) (*Server, *fakeAPI, *ordering.Store) {
	t.Helper()

	api := &fakeAPI{
		items: []kassalapp.ShoppingListItem{{ID: 1, Text: "A"}, {ID: 2, Text: "B"}, {ID: 3, Text: "C"}},
		next:  10,
	}
	store := ordering.NewStore(&memoryBackend{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}
	platform := todo.NewPlatform(todo.PlatformConfig{EntryID: "entry", API: api, Store: store})
	if err := platform.Setup(context.Background()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	deps := Deps{
		Config:   config.APIConfig{Host: "127.0.0.1"},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:   logging.Discard(),
		Platform: platform,
		Store:    store,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("kassalapp_refresh_total 1\n")) //nolint:errcheck // test
		}),
		Version: "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, api, store
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func summaries(items []todo.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Summary
	}
	return out
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no logger expected error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() with no platform expected error")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t, withCheck("database", nil))
	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["entities"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _, _ := testServer(t, withCheck("mqtt", errors.New("not connected")), withCheck("database", nil))
	body := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/v1/health", ""))

	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	components := body["components"].(map[string]any)
	if components["mqtt"] != "not connected" || components["database"] != "ok" {
		t.Errorf("components = %v", components)
	}
}

func TestMetrics(t *testing.T) {
	srv, _, _ := testServer(t, withSecret(testSecret))
	rec := do(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "kassalapp_refresh_total") {
		t.Errorf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestListEntities(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/lists", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decode[struct {
		Lists []entityView `json:"lists"`
		Count int          `json:"count"`
	}](t, rec)
	if body.Count != 1 || body.Lists[0].EntityID != testEntity || body.Lists[0].ItemCount != 3 {
		t.Errorf("body = %+v", body)
	}
	if body.Lists[0].Items != nil {
		t.Error("list view should not embed items")
	}
}

func TestGetEntity(t *testing.T) {
	srv, _, _ := testServer(t)

	view := decode[entityView](t, do(t, srv, http.MethodGet, "/api/v1/lists/"+testEntity, ""))
	if view.UniqueID != "entry-1" || !view.Available || len(view.Items) != 3 {
		t.Errorf("view = %+v", view)
	}

	rec := do(t, srv, http.MethodGet, "/api/v1/lists/todo.kassalapp_9", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown entity status = %d", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeNotFound || e.Status != http.StatusNotFound {
		t.Errorf("error body = %+v", e)
	}
}

func TestMoveItem(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want []string
	}{
		{"to head with null", "/items/3/move", `{"previous_uid": null}`, []string{"C", "A", "B"}},
		{"to head with empty body", "/items/3/move", "", []string{"C", "A", "B"}},
		{"after anchor", "/items/1/move", `{"previous_uid": "3"}`, []string{"B", "C", "A"}},
		{"onto itself", "/items/2/move", `{"previous_uid": "2"}`, []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t)
			rec := do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+tt.path, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
			}
			got := summaries(decode[itemsResponse](t, rec).Items)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveItem_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown anchor", "/items/1/move", `{"previous_uid": "99"}`, http.StatusBadRequest, ErrCodeValidation},
		{"unknown item", "/items/99/move", `{}`, http.StatusBadRequest, ErrCodeValidation},
		{"malformed body", "/items/1/move", `{`, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, store := testServer(t)
			rec := do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if e := decode[Error](t, rec); e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
			if w := store.Weights(testEntity); len(w) != 0 {
				t.Errorf("weights changed on failure: %v", w)
			}
		})
	}
}

func TestCreateItem(t *testing.T) {
	srv, api, _ := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+"/items", `{"summary": "Milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if got := summaries(decode[itemsResponse](t, rec).Items); len(got) != 4 || got[3] != "Milk" {
		t.Errorf("items = %v", got)
	}
	if len(api.items) != 4 {
		t.Errorf("upstream items = %d", len(api.items))
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+"/items", `{"summary": " "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty summary status = %d", rec.Code)
	}
}

func TestUpdateItem(t *testing.T) {
	srv, _, _ := testServer(t)
	path := "/api/v1/lists/" + testEntity + "/items/2"

	rec := do(t, srv, http.MethodPatch, path, `{"status": "completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	items := decode[itemsResponse](t, rec).Items
	if items[1].UID != "2" || items[1].Status != todo.StatusCompleted {
		t.Errorf("item 2 = %+v", items[1])
	}

	if rec := do(t, srv, http.MethodPatch, path, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty update status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPatch, path, `{"status": "maybe"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPatch, "/api/v1/lists/"+testEntity+"/items/77", `{"summary": "x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("upstream 404 mapped to %d", rec.Code)
	}
}

func TestDeleteItems(t *testing.T) {
	srv, api, _ := testServer(t)
	base := "/api/v1/lists/" + testEntity + "/items"

	if rec := do(t, srv, http.MethodDelete, base+"/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("single delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, base, `{"uids": ["2", "3"]}`); rec.Code != http.StatusNoContent {
		t.Fatalf("bulk delete status = %d", rec.Code)
	}
	if len(api.items) != 0 {
		t.Errorf("upstream items = %v", api.items)
	}
	if rec := do(t, srv, http.MethodDelete, base, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bulk delete without uids status = %d", rec.Code)
	}
}

func TestResetOrderAndOrdering(t *testing.T) {
	srv, _, _ := testServer(t)
	base := "/api/v1/lists/" + testEntity

	do(t, srv, http.MethodPost, base+"/items/3/move", "")

	record := decode[ordering.Record](t, do(t, srv, http.MethodGet, "/api/v1/ordering", ""))
	if record.Version != ordering.StorageVersion {
		t.Errorf("version = %d", record.Version)
	}
	want := ordering.Weights{"3": 0, "1": 1, "2": 2}
	if diff := cmp.Diff(want, record.SortWeights[testEntity].Weights); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}

	rec := do(t, srv, http.MethodDelete, base+"/order", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, summaries(decode[itemsResponse](t, rec).Items)); diff != "" {
		t.Errorf("order after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestRefresh(t *testing.T) {
	srv, api, _ := testServer(t)
	api.mu.Lock()
	api.items = append(api.items, kassalapp.ShoppingListItem{ID: 4, Text: "D"})
	api.mu.Unlock()

	rec := do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+"/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[itemsResponse](t, rec).Items; len(got) != 4 {
		t.Errorf("items after refresh = %d", len(got))
	}
}

func TestAuth(t *testing.T) {
	srv, _, _ := testServer(t, withSecret(testSecret))

	if rec := do(t, srv, http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health without token = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/lists", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("lists without token = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/lists", "", "Authorization", "Bearer garbage"); rec.Code != http.StatusUnauthorized {
		t.Errorf("lists with bad token = %d", rec.Code)
	}

	token, err := NewToken(testSecret, "kitchen-panel", time.Hour)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/lists", "", "Authorization", "Bearer "+token); rec.Code != http.StatusOK {
		t.Errorf("lists with token = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/ordering?token="+token, ""); rec.Code != http.StatusOK {
		t.Errorf("query token = %d", rec.Code)
	}
}

func TestParseToken(t *testing.T) {
	token, err := NewToken(testSecret, "svc", time.Hour)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	subject, err := ParseToken(token, testSecret)
	if err != nil || subject != "svc" {
		t.Errorf("ParseToken() = %q, %v", subject, err)
	}
	if _, err := ParseToken(token, "another-secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret error = %v", err)
	}

	expired, _ := NewToken(testSecret, "svc", -time.Minute)
	if _, err := ParseToken(expired, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token error = %v", err)
	}
	if _, err := NewToken("", "svc", time.Hour); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("empty secret error = %v", err)
	}
}

func TestCORS(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	rec := do(t, srv, http.MethodOptions, "/api/v1/lists", "", "Origin", "http://panel.local")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	rec = do(t, srv, http.MethodOptions, "/api/v1/lists", "", "Origin", "http://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q", got)
	}
}

func TestWebSocket_ItemsChanged(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck // test

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{ChannelItemsChanged}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var resp WSMessage
	if err := conn.ReadJSON(&resp); err != nil || resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v, %v", resp, err)
	}

	rec := do(t, srv, http.MethodPost, "/api/v1/lists/"+testEntity+"/items/3/move", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d", rec.Code)
	}

	for {
		var msg struct {
			Type      string     `json:"type"`
			EventType string     `json:"event_type"`
			Payload   todo.Event `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.EventType != ChannelItemsChanged || msg.Payload.Kind != todo.EventItemMoved {
			continue
		}
		if msg.Payload.MovedUID != "3" || msg.Payload.EntityID != testEntity {
			t.Errorf("event = %+v", msg.Payload)
		}
		return
	}
}

func TestStatusWriter_ForwardsOptionalInterfaces(t *testing.T) {
	var _ http.Hijacker = (*statusWriter)(nil)

	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	if sw.Unwrap() != rec {
		t.Error("Unwrap() did not return the wrapped writer")
	}
	if err := http.NewResponseController(sw).Flush(); err != nil {
		t.Errorf("Flush() through ResponseController error = %v", err)
	}
	if !rec.Flushed {
		t.Error("recorder not flushed")
	}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("Hijack() on a non-hijackable writer returned nil error")
	}
}

func TestHub_BroadcastOnlyToSubscribers(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Discard())
	subscribed := &WSClient{hub: hub, send: make(chan []byte, 1), subscriptions: map[string]struct{}{ChannelOrderingUpdated: {}}}
	other := &WSClient{hub: hub, send: make(chan []byte, 1), subscriptions: map[string]struct{}{}}
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast(ChannelOrderingUpdated, map[string]int{"v": 1})

	if len(subscribed.send) != 1 || len(other.send) != 0 {
		t.Errorf("queued = %d subscribed, %d other", len(subscribed.send), len(other.send))
	}

	hub.Unregister(subscribed)
	hub.Unregister(subscribed)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}
