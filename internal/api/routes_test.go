package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/database"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
)

func setupRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.EnsureSQLiteSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	st := store.New(db)

	cfg := &config.Config{
		Environment:         "development",
		FrontendURL:         "http://localhost:5173",
		JWTSecret:           "api-secret",
		SeatTokenTTLMinutes: 10,
		FrameIntervalMs:     1,
		FinalizeDelayMs:     1,
		AIThinkMs:           5,
		AIAimMs:             5,
		QueueExpiryMinutes:  10,
	}
	ctx, cancel := context.WithCancel(context.Background())
	game.Manager = game.NewGameManager(ctx, st, nil, cfg)
	hub := ws.NewHub()
	go hub.Run(ctx)
	game.Manager.SetBroadcaster(hub)

	t.Cleanup(func() {
		game.Manager.Shutdown()
		cancel()
		// let best-effort writes drain before the database goes away
		time.Sleep(20 * time.Millisecond)
		db.Close()
	})

	r := gin.New()
	SetupRoutes(r, st, hub, cfg)
	return r, st
}

func do(r *gin.Engine, method, path string, body interface{}, seatToken string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if seatToken != "" {
		req.Header.Set("Authorization", "Bearer "+seatToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealthAndConfig(t *testing.T) {
	r, _ := setupRouter(t)

	w, body := do(r, http.MethodGet, "/api/v1/health", nil, "")
	if w.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "carrom-api" {
		t.Errorf("health: %d %v", w.Code, body)
	}
	w, body = do(r, http.MethodGet, "/api/v1/config", nil, "")
	if w.Code != http.StatusOK || body["max_power"] != game.MaxPower {
		t.Errorf("config: %d %v", w.Code, body)
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Errorf("development responses should carry no-cache headers")
	}
}

func TestCreateAIMatchAndReadState(t *testing.T) {
	r, _ := setupRouter(t)

	w, body := do(r, http.MethodPost, "/api/v1/match", map[string]string{"mode": "ai", "display_name": "alice"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", w.Code, body)
	}
	token, _ := body["match_token"].(string)
	if token == "" || body["seat_token"] == "" || body["seat"] != float64(1) {
		t.Fatalf("unexpected create response %v", body)
	}

	w, body = do(r, http.MethodGet, "/api/v1/match/"+token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("state: %d %v", w.Code, body)
	}
	state, _ := body["state"].(map[string]interface{})
	if state["phase"] != string(game.PhasePlacing) || state["active"] != float64(1) {
		t.Errorf("unexpected state %v", state)
	}

	w, body = do(r, http.MethodGet, "/api/v1/match/live", nil, "")
	if w.Code != http.StatusOK || w.Header().Get("X-Match-Count") != "1" {
		t.Errorf("live: %d %v", w.Code, body)
	}

	if w, _ := do(r, http.MethodGet, "/api/v1/match/unknown", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown match: %d", w.Code)
	}
	if w, _ := do(r, http.MethodPost, "/api/v1/match", map[string]string{"mode": "tournament"}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode: %d", w.Code)
	}
	if w, _ := do(r, http.MethodPost, "/api/v1/match", map[string]string{}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing mode: %d", w.Code)
	}
}

func TestPrivateRoomFlow(t *testing.T) {
	r, _ := setupRouter(t)

	_, body := do(r, http.MethodPost, "/api/v1/match", map[string]string{"mode": "private", "display_name": "host", "passcode": "9876"}, "")
	token, _ := body["match_token"].(string)
	hostSeat, _ := body["seat_token"].(string)
	if token == "" || hostSeat == "" {
		t.Fatalf("unexpected create response %v", body)
	}

	join := "/api/v1/match/" + token + "/join"
	if w, _ := do(r, http.MethodPost, join, map[string]string{"display_name": "guest", "passcode": "0000"}, ""); w.Code != http.StatusForbidden {
		t.Errorf("wrong passcode: %d", w.Code)
	}
	w, body := do(r, http.MethodPost, join, map[string]string{"display_name": "guest", "passcode": "9876"}, "")
	if w.Code != http.StatusOK || body["seat"] != float64(2) {
		t.Fatalf("join: %d %v", w.Code, body)
	}
	if w, _ := do(r, http.MethodPost, join, map[string]string{"display_name": "late", "passcode": "9876"}, ""); w.Code != http.StatusConflict {
		t.Errorf("full room: %d", w.Code)
	}

	concede := "/api/v1/match/" + token + "/concede"
	if w, _ := do(r, http.MethodPost, concede, nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("concede without seat: %d", w.Code)
	}
	w, body = do(r, http.MethodPost, concede, nil, hostSeat)
	if w.Code != http.StatusOK || body["status"] != "conceded" {
		t.Errorf("concede: %d %v", w.Code, body)
	}
}

func TestQueueFlow(t *testing.T) {
	r, st := setupRouter(t)

	_, a := do(r, http.MethodPost, "/api/v1/queue", map[string]string{"display_name": "ann"}, "")
	_, b := do(r, http.MethodPost, "/api/v1/queue", map[string]string{"display_name": "ben"}, "")
	qa, _ := a["queue_token"].(string)
	qb, _ := b["queue_token"].(string)
	if qa == "" || qb == "" {
		t.Fatalf("queue tokens missing: %v %v", a, b)
	}

	_, status := do(r, http.MethodGet, "/api/v1/queue/"+qa, nil, "")
	if status["status"] != "queued" {
		t.Errorf("before matching: %v", status)
	}

	// What the matchmaker worker does on its next tick.
	pair, err := st.ClaimPair(context.Background(), "api-queued")
	if err != nil || len(pair) != 2 {
		t.Fatalf("claim: %v %v", pair, err)
	}
	if _, err := game.Manager.CreateQueuedMatch("api-queued", [2]string{pair[0].DisplayName, pair[1].DisplayName}); err != nil {
		t.Fatalf("host: %v", err)
	}

	w, status := do(r, http.MethodGet, "/api/v1/queue/"+qb, nil, "")
	if w.Code != http.StatusOK || status["status"] != "matched" || status["match_token"] != "api-queued" || status["seat"] != float64(2) {
		t.Errorf("after matching: %d %v", w.Code, status)
	}
	if s, _ := status["seat_token"].(string); s == "" {
		t.Errorf("matched player should receive a seat token")
	}

	if w, _ := do(r, http.MethodGet, "/api/v1/queue/nope", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown queue token: %d", w.Code)
	}
}

func TestMatchShotsFromStore(t *testing.T) {
	r, st := setupRouter(t)
	ctx := context.Background()

	st.CreateMatch(ctx, &store.Match{Token: "hist", Mode: "ai", Seat1Name: "a", Seat2Name: "Computer"})
	st.RecordShot(ctx, store.Shot{MatchToken: "hist", ShotNumber: 1, Player: 1, StrikerX: 500, Angle: -1.2, Power: 55})

	w, body := do(r, http.MethodGet, "/api/v1/match/hist/shots", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("shots: %d %v", w.Code, body)
	}
	shots, _ := body["shots"].([]interface{})
	if len(shots) != 1 {
		t.Errorf("got %d shots, want 1", len(shots))
	}
	if w, _ := do(r, http.MethodGet, "/api/v1/match/missing/shots", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing match shots: %d", w.Code)
	}

	w, body = do(r, http.MethodGet, "/api/v1/match/recent?limit=5", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("recent: %d %v", w.Code, body)
	}
}
