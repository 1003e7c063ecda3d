package server

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"henarena/game"
)

type fixedRoller float64

func (r fixedRoller) Float64() float64 { return float64(r) }

type fakeConn struct {
	mu     sync.Mutex
	codec  Codec
	sent   [][]byte
	err    error
	closed bool
}

func (f *fakeConn) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeConn) Codec() Codec {
	if f.codec == nil {
		return JSONCodec
	}
	return f.codec
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.sent))
	for _, b := range f.sent {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode sent message: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func countType(msgs []map[string]any, typ string) int {
	n := 0
	for _, m := range msgs {
		if m["type"] == typ {
			n++
		}
	}
	return n
}

func newTestHub() *Hub {
	world := game.NewWorld(game.WithRoller(fixedRoller(0.99)))
	return NewHub(world, NewMemoryRegistry(), 4)
}

func connect(h *Hub, id game.SessionID) *fakeConn {
	c := &fakeConn{}
	h.Connect(id, c)
	return c
}

func mustDispatch(t *testing.T, h *Hub, id game.SessionID, raw string) {
	t.Helper()
	if err := h.Dispatch(id, []byte(raw)); err != nil {
		t.Fatalf("dispatch %s: %v", raw, err)
	}
}

func TestJoinSendsConfirmationSnapshotAndNotifiesOthers(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	b := connect(h, "b")

	mustDispatch(t, h, "a", `{"action":"join","data":{}}`)

	got := a.messages(t)
	if len(got) != 2 || got[0]["type"] != game.MsgJoined || got[1]["type"] != game.MsgGameState {
		t.Fatalf("joiner got %+v", got)
	}
	if got[0]["playerId"] != "a" {
		t.Fatalf("joined payload = %+v", got[0])
	}
	others := b.messages(t)
	if len(others) != 1 || others[0]["type"] != game.MsgPlayerUpdate {
		t.Fatalf("other session got %+v", others)
	}
}

func TestUnknownActionRejectedLocally(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	b := connect(h, "b")
	mustDispatch(t, h, "a", `{"action":"join"}`)
	b.reset()
	a.reset()

	err := h.Dispatch("a", []byte(`{"action":"fly","data":{}}`))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	got := a.messages(t)
	if len(got) != 1 || got[0]["type"] != MsgActionRejected || got[0]["action"] != "fly" || got[0]["reason"] != "bad request" {
		t.Fatalf("expected rejection to sender, got %+v", got)
	}
	if len(b.messages(t)) != 0 {
		t.Fatalf("rejection must not be broadcast")
	}
	if h.metrics.ActionsRejected != 1 {
		t.Fatalf("rejected = %d", h.metrics.ActionsRejected)
	}
}

func TestMalformedRequestsDoNotMutate(t *testing.T) {
	h := newTestHub()
	connect(h, "a")
	mustDispatch(t, h, "a", `{"action":"join"}`)

	bad := []string{
		``,
		`not json`,
		`{"data":{}}`,
		`{"action":"move","data":{"pos":{"x":1,"y":2}}}`,
		`{"action":"move"}`,
		`{"action":"attack","data":{"type":"fireball","pos":{"x":1,"y":2},"direction":1}}`,
		`{"action":"attack","data":{"type":"ko","pos":{"x":1,"y":2},"direction":0}}`,
		`{"action":"attack","data":{"type":"ko","direction":1}}`,
	}
	for _, raw := range bad {
		if err := h.Dispatch("a", []byte(raw)); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("%q: expected bad request, got %v", raw, err)
		}
	}
	p, _ := h.world.Player("a")
	if p.Pos != game.SpawnPoint || p.Health != 100 {
		t.Fatalf("malformed requests changed state: %+v", p)
	}
	if n := h.world.Summary().Projectiles; n != 0 {
		t.Fatalf("projectiles = %d", n)
	}
}

func TestAttackBroadcastsExactlyOnce(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	b := connect(h, "b")
	mustDispatch(t, h, "a", `{"action":"join"}`)
	mustDispatch(t, h, "b", `{"action":"join"}`)
	a.reset()
	b.reset()

	mustDispatch(t, h, "a", `{"action":"attack","data":{"type":"ko","pos":{"x":50,"y":400},"direction":1}}`)

	for name, c := range map[string]*fakeConn{"a": a, "b": b} {
		msgs := c.messages(t)
		if countType(msgs, game.MsgAttackPerformed) != 1 {
			t.Fatalf("%s got %+v", name, msgs)
		}
	}
	data := b.messages(t)[0]["data"].(map[string]any)
	hits := data["hits"].([]any)
	if len(hits) != 1 {
		t.Fatalf("hits = %+v", hits)
	}
	hit := hits[0].(map[string]any)
	if hit["id"] != "b" || hit["damage"].(float64) != 25 || hit["type"] != "player" {
		t.Fatalf("hit = %+v", hit)
	}
}

func TestMegaTransformWithoutEggIsRejected(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	b := connect(h, "b")
	mustDispatch(t, h, "a", `{"action":"join"}`)
	a.reset()
	b.reset()

	err := h.Dispatch("a", []byte(`{"action":"megaTransform","data":{}}`))
	if !errors.Is(err, game.ErrNoGoldenEgg) {
		t.Fatalf("expected no golden egg, got %v", err)
	}
	if countType(b.messages(t), game.MsgMegaTransform) != 0 {
		t.Fatalf("rejected transform was broadcast")
	}
	got := a.messages(t)
	if len(got) != 1 || got[0]["reason"] != "no golden egg" {
		t.Fatalf("sender got %+v", got)
	}
}

func TestBroadcastToleratesPartialFailure(t *testing.T) {
	h := newTestHub()
	ok := connect(h, "ok")
	full := connect(h, "full")
	gone := connect(h, "gone")
	mustDispatch(t, h, "gone", `{"action":"join"}`)
	ok.reset()

	full.fail(ErrSendQueueFull)
	gone.fail(ErrSessionGone)

	err := h.Broadcast(game.SignalMessage{Header: game.Header{Type: game.MsgGameWin}}, "")
	if err == nil {
		t.Fatalf("expected aggregated failure")
	}
	if !errors.Is(err, ErrSendQueueFull) || !errors.Is(err, ErrSessionGone) {
		t.Fatalf("aggregate should carry both causes: %v", err)
	}

	msgs := ok.messages(t)
	if countType(msgs, game.MsgGameWin) != 1 {
		t.Fatalf("healthy recipient missed the broadcast: %+v", msgs)
	}
	if countType(msgs, game.MsgPlayerLeft) != 1 {
		t.Fatalf("evicted session should cascade playerLeft: %+v", msgs)
	}
	if _, present := h.registry.Get("gone"); present {
		t.Fatalf("gone session still registered")
	}
	if _, present := h.world.Player("gone"); present {
		t.Fatalf("gone session still in world")
	}
	if _, present := h.registry.Get("full"); !present {
		t.Fatalf("a full queue must not evict the session")
	}
	if !gone.closed {
		t.Fatalf("evicted connection not closed")
	}
	if h.metrics.SessionsEvicted != 1 {
		t.Fatalf("evicted = %d", h.metrics.SessionsEvicted)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	connect(h, "b")
	mustDispatch(t, h, "b", `{"action":"join"}`)
	a.reset()

	h.Disconnect("b")
	h.Disconnect("b")
	h.Disconnect("never")

	if n := countType(a.messages(t), game.MsgPlayerLeft); n != 1 {
		t.Fatalf("playerLeft sent %d times", n)
	}
}

func TestDisconnectBeforeJoinIsSilent(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	connect(h, "lurker")

	h.Disconnect("lurker")
	if len(a.messages(t)) != 0 {
		t.Fatalf("session that never joined should not produce playerLeft")
	}
}

func TestActionAfterDisconnectIsNoop(t *testing.T) {
	h := newTestHub()
	a := connect(h, "a")
	connect(h, "b")
	mustDispatch(t, h, "a", `{"action":"join"}`)
	mustDispatch(t, h, "b", `{"action":"join"}`)
	h.Disconnect("b")
	a.reset()

	mustDispatch(t, h, "b", `{"action":"attack","data":{"type":"ko","pos":{"x":50,"y":400},"direction":1}}`)
	if len(a.messages(t)) != 0 {
		t.Fatalf("stale attack produced messages: %+v", a.messages(t))
	}
	if p, _ := h.world.Player("a"); p.Health != 100 {
		t.Fatalf("stale attack damaged a")
	}
}

func TestJoinAfterDisconnectLeavesNoGhost(t *testing.T) {
	h := newTestHub()
	connect(h, "a")
	h.registry.Delete("a")

	mustDispatch(t, h, "a", `{"action":"join"}`)
	if _, ok := h.world.Player("a"); ok {
		t.Fatalf("join from a departed session left a player behind")
	}
}

func TestDispatchRecoversFromInternalFault(t *testing.T) {
	h := NewHub(nil, NewMemoryRegistry(), 1)
	a := connect(h, "a")

	err := h.Dispatch("a", []byte(`{"action":"jump"}`))
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	got := a.messages(t)
	if len(got) != 1 || got[0]["reason"] != "internal error" {
		t.Fatalf("sender got %+v", got)
	}
	if h.metrics.ActionsFailed != 1 {
		t.Fatalf("failed = %d", h.metrics.ActionsFailed)
	}
}

func TestMsgpackRecipientsUseJSONFieldNames(t *testing.T) {
	h := newTestHub()
	text := connect(h, "text")
	bin := &fakeConn{codec: MsgpackCodec}
	h.Connect("bin", bin)
	mustDispatch(t, h, "text", `{"action":"join"}`)

	bin.mu.Lock()
	defer bin.mu.Unlock()
	if len(bin.sent) != 1 {
		t.Fatalf("msgpack recipient got %d messages", len(bin.sent))
	}
	var m map[string]any
	if err := msgpack.Unmarshal(bin.sent[0], &m); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if m["type"] != game.MsgPlayerUpdate {
		t.Fatalf("type = %v", m["type"])
	}
	data, ok := m["data"].(map[string]any)
	if !ok || data["id"] != "text" || data["maxHealth"] == nil {
		t.Fatalf("payload = %+v", m)
	}
	if len(text.messages(t)) != 2 {
		t.Fatalf("json recipient unaffected by other codecs")
	}
}
