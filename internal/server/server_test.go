package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/engine"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

type fixedSource int

func (f fixedSource) Intn(int) int { return int(f) }

type fakeArchive struct {
	runs  []models.RunRecord
	err   error
	limit int
}

func (a *fakeArchive) ListRuns(_ context.Context, limit int) ([]models.RunRecord, error) {
	a.limit = limit
	return a.runs, a.err
}

type testEnv struct {
	srv      *httptest.Server
	narrator *engine.Scripted
	archive  *fakeArchive
}

// newTestEnv serves sessions whose dice always roll a 10.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	layout := dungeon.Default()
	env := &testEnv{narrator: engine.NewScripted(layout), archive: &fakeArchive{}}
	sessions := NewSessions(func() (*play.Controller, error) {
		store := game.NewStore(game.NewReducer(layout, fixedSource(0)))
		return play.New(store, env.narrator, fixedSource(9), nil), nil
	}, time.Hour)
	env.srv = httptest.NewServer(New(layout, sessions, env.archive, []string{"*"}).Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func (e *testEnv) view(t *testing.T, method, path string, body any) SessionView {
	t.Helper()
	status, data := e.do(t, method, path, body)
	if status != http.StatusOK && status != http.StatusCreated {
		t.Fatalf("%s %s: status %d: %s", method, path, status, data)
	}
	var v SessionView
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	v := e.view(t, http.MethodPost, "/sessions", nil)
	if v.ID == "" || v.State.Phase != models.PhaseTitle {
		t.Fatalf("expected a fresh session, got %+v", v)
	}
	return v.ID
}

func (e *testEnv) startedSession(t *testing.T) string {
	t.Helper()
	id := e.newSession(t)
	v := e.view(t, http.MethodPost, "/sessions/"+id+"/class", classRequest{Class: "The Fighter"})
	if v.State.Phase != models.PhasePlaying {
		t.Fatalf("expected playing, got %s", v.State.Phase)
	}
	return id
}

func TestListClasses(t *testing.T) {
	env := newTestEnv(t)
	status, data := env.do(t, http.MethodGet, "/classes", nil)
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	var classes []models.PlayerClass
	if err := json.Unmarshal(data, &classes); err != nil {
		t.Fatal(err)
	}
	if len(classes) != 3 || classes[0].Name != "The Fighter" {
		t.Errorf("unexpected classes: %+v", classes)
	}
}

func TestListRuns(t *testing.T) {
	env := newTestEnv(t)
	env.archive.runs = []models.RunRecord{{ID: "r1", Class: "The Artist", Phase: models.PhaseVictory, Turns: 23}}

	status, data := env.do(t, http.MethodGet, "/runs?limit=5", nil)
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	var runs []models.RunRecord
	if err := json.Unmarshal(data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" || env.archive.limit != 5 {
		t.Errorf("unexpected runs %+v (limit %d)", runs, env.archive.limit)
	}

	env.archive.err = errors.New("disk gone")
	if status, _ := env.do(t, http.MethodGet, "/runs", nil); status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	if status, _ := env.do(t, http.MethodGet, "/sessions/nope", nil); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestPlayTurn(t *testing.T) {
	env := newTestEnv(t)
	id := env.startedSession(t)
	base := "/sessions/" + id

	v := env.view(t, http.MethodGet, base, nil)
	if len(v.State.CurrentOptions) != 4 {
		t.Fatalf("expected 4 options, got %d", len(v.State.CurrentOptions))
	}

	v = env.view(t, http.MethodPost, base+"/options/1", nil)
	if v.State.SelectedOption == nil || len(v.State.CurrentSubOptions) != 4 {
		t.Fatalf("expected sub-options, got %+v", v.State)
	}

	// Charge with weapon drawn: strength 7 + 10 against difficulty 3.
	v = env.view(t, http.MethodPost, base+"/suboptions/102", nil)
	if v.Roll == nil || v.Roll.Roll != 10 || v.Roll.Tier != models.TierCriticalSuccess {
		t.Fatalf("expected a critical roll, got %+v", v.Roll)
	}
	if v.State.TurnCount != 1 || v.State.LastOutcome == nil || v.State.LastOutcome.Tier != models.TierCriticalSuccess {
		t.Errorf("turn not resolved: %+v", v.State)
	}

	status, data := env.do(t, http.MethodGet, base+"/reel", nil)
	if status != http.StatusOK {
		t.Fatalf("reel status %d", status)
	}
	var reel ReelView
	if err := json.Unmarshal(data, &reel); err != nil {
		t.Fatal(err)
	}
	if len(reel.Reel) == 0 || reel.Reel[0].Type != models.HighlightCriticalSuccess {
		t.Errorf("expected the critical success in the reel, got %+v", reel.Reel)
	}
}

func TestMoreClearAndReset(t *testing.T) {
	env := newTestEnv(t)
	id := env.startedSession(t)
	base := "/sessions/" + id

	v := env.view(t, http.MethodPost, base+"/more", nil)
	if len(v.State.CurrentOptions) != 6 {
		t.Fatalf("expected 6 options, got %d", len(v.State.CurrentOptions))
	}
	env.view(t, http.MethodPost, base+"/options/2", nil)
	v = env.view(t, http.MethodPost, base+"/clear", nil)
	if v.State.SelectedOption != nil || v.State.CurrentSubOptions != nil {
		t.Errorf("selection not cleared: %+v", v.State)
	}

	env.view(t, http.MethodPost, base+"/credentials", credentialRequest{Field: game.CredentialNarrator, Value: "k"})
	v = env.view(t, http.MethodPost, base+"/reset", nil)
	if v.State.Phase != models.PhaseTitle {
		t.Errorf("expected title after reset, got %s", v.State.Phase)
	}
}

func TestCustomInput(t *testing.T) {
	env := newTestEnv(t)
	base := "/sessions/" + env.startedSession(t)

	v := env.view(t, http.MethodPost, base+"/custom", customRequest{Input: "summon a dragon"})
	if v.Roll != nil {
		t.Errorf("rejected input should not roll, got %+v", v.Roll)
	}
	if v.State.TurnCount != 1 || v.State.LastOutcome == nil || v.State.LastOutcome.Tier != models.TierFailure {
		t.Errorf("rejection should consume a turn: %+v", v.State.LastOutcome)
	}

	v = env.view(t, http.MethodPost, base+"/custom", customRequest{Input: "juggle the bones"})
	if v.Roll == nil || v.State.TurnCount != 2 {
		t.Errorf("expected a rolled custom turn, got roll %+v turn %d", v.Roll, v.State.TurnCount)
	}

	if status, _ := env.do(t, http.MethodPost, base+"/custom", customRequest{Input: "  "}); status != http.StatusBadRequest {
		t.Errorf("empty input: expected 400, got %d", status)
	}
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"not playing", http.MethodPost, base + "/options/1", nil, http.StatusConflict},
		{"unknown class", http.MethodPost, base + "/class", classRequest{Class: "The Bard"}, http.StatusBadRequest},
		{"bad option id", http.MethodPost, base + "/options/one", nil, http.StatusBadRequest},
		{"bad credential", http.MethodPost, base + "/credentials", credentialRequest{Field: "wallet"}, http.StatusBadRequest},
		{"bad body", http.MethodPost, base + "/class", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, data := env.do(t, tt.method, tt.path, tt.body); status != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, status, data)
			}
		})
	}

	env.view(t, http.MethodPost, base+"/class", classRequest{Class: "The Fighter"})
	if status, _ := env.do(t, http.MethodPost, base+"/options/99", nil); status != http.StatusNotFound {
		t.Errorf("unknown option: expected 404, got %d", status)
	}
}

func TestNarratorFailureAndRetry(t *testing.T) {
	env := newTestEnv(t)
	base := "/sessions/" + env.startedSession(t)

	env.narrator.FailWith(errors.New("quota exceeded"))
	status, _ := env.do(t, http.MethodPost, base+"/options/1", nil)
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	v := env.view(t, http.MethodGet, base, nil)
	if !strings.HasPrefix(v.State.Error, play.ErrorPrefix) || v.State.Loading {
		t.Errorf("expected error state, got error=%q loading=%v", v.State.Error, v.State.Loading)
	}

	env.narrator.FailWith(nil)
	v = env.view(t, http.MethodPost, base+"/retry", nil)
	if v.State.Error != "" || len(v.State.CurrentSubOptions) != 4 {
		t.Errorf("retry did not recover: %+v", v.State)
	}
}

func TestChronicle(t *testing.T) {
	env := newTestEnv(t)
	base := "/sessions/" + env.startedSession(t)

	resp, err := http.Get(env.srv.URL + base + "/chronicle.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("expected a PDF document")
	}
}

func TestWatch(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() models.GameState {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var s models.GameState
		if err := conn.ReadJSON(&s); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return s
	}
	if s := read(); s.Phase != models.PhaseTitle {
		t.Fatalf("expected the title snapshot first, got %s", s.Phase)
	}

	env.view(t, http.MethodPost, "/sessions/"+id+"/class", classRequest{Class: "The Merchant"})
	for i := 0; ; i++ {
		s := read()
		if s.Phase == models.PhasePlaying && !s.Loading {
			if s.PlayerClass == nil || s.PlayerClass.Name != "The Merchant" {
				t.Errorf("unexpected class %+v", s.PlayerClass)
			}
			break
		}
		if i > 10 {
			t.Fatalf("never saw the opening scene")
		}
	}
}

func TestSessionsSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	n := 0
	m := NewSessions(func() (*play.Controller, error) {
		n++
		if n > 2 {
			return nil, fmt.Errorf("no more")
		}
		store := game.NewStore(game.NewReducer(dungeon.Default(), fixedSource(0)))
		return play.New(store, engine.NewScripted(nil), fixedSource(0), nil), nil
	}, time.Minute)
	m.now = func() time.Time { return now }

	stale, _, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(45 * time.Second)
	fresh, _, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Create(); err == nil {
		t.Errorf("expected the factory error")
	}

	now = now.Add(30 * time.Second)
	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}
	if _, ok := m.Get(stale); ok {
		t.Errorf("stale session should be gone")
	}
	if _, ok := m.Get(fresh); !ok {
		t.Errorf("fresh session should remain")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 session, got %d", m.Len())
	}
}

func TestSessionsTouchKeepsAlive(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewSessions(func() (*play.Controller, error) {
		store := game.NewStore(game.NewReducer(dungeon.Default(), fixedSource(0)))
		return play.New(store, engine.NewScripted(nil), fixedSource(0), nil), nil
	}, time.Minute)
	m.now = func() time.Time { return now }

	watched, _, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	idle, _, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}

	// A watcher pings well inside the TTL while the idle session is untouched.
	for i := 0; i < 3; i++ {
		now = now.Add(50 * time.Second)
		if !m.Touch(watched) {
			t.Fatalf("touch %d: session missing", i)
		}
		m.Sweep()
	}
	if _, ok := m.Get(watched); !ok {
		t.Errorf("watched session should survive the sweeps")
	}
	if _, ok := m.Get(idle); ok {
		t.Errorf("idle session should be evicted")
	}
	if m.Touch("nope") {
		t.Errorf("touching an unknown session should report false")
	}
}
