package game

import (
	"errors"
	"testing"
	"time"
)

// seqRoller 按顺序返回预设值，耗尽后一直返回最后一个
type seqRoller struct {
	vals []float64
	i    int
}

func (r *seqRoller) Float64() float64 {
	if len(r.vals) == 0 {
		return 0.99
	}
	if r.i >= len(r.vals) {
		return r.vals[len(r.vals)-1]
	}
	v := r.vals[r.i]
	r.i++
	return v
}

func noCrit() Roller { return &seqRoller{vals: []float64{0.99}} }

func alwaysCrit() Roller { return &seqRoller{vals: []float64{0.0}} }

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(frames int) {
	c.t = c.t.Add(time.Duration(frames) * frameInterval)
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestWorld(roll Roller, opts ...Option) *World {
	clock := newTestClock()
	base := []Option{WithRoller(roll), WithClock(clock.now)}
	return NewWorld(append(base, opts...)...)
}

func eventsOfType(events []Event, typ string) []Event {
	var out []Event
	for _, e := range events {
		if e.Message.MessageType() == typ {
			out = append(out, e)
		}
	}
	return out
}

func mustPlayer(t *testing.T, w *World, id SessionID) PlayerSession {
	t.Helper()
	p, ok := w.Player(id)
	if !ok {
		t.Fatalf("player %q not found", id)
	}
	return p
}

func TestJoinSendsConfirmationStateAndUpdate(t *testing.T) {
	w := newTestWorld(noCrit())
	events := w.Join("a")

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Audience != ToOne || events[0].Message.MessageType() != MsgJoined {
		t.Fatalf("first event should be joined unicast, got %+v", events[0])
	}
	state, ok := events[1].Message.(GameStateMessage)
	if !ok || events[1].Audience != ToOne {
		t.Fatalf("second event should be gameState unicast, got %+v", events[1])
	}
	if len(state.Data.Platforms) == 0 || len(state.Data.Enemies) != 2 {
		t.Fatalf("world not initialized: %+v", state.Data)
	}
	if _, ok := state.Data.Players["a"]; !ok {
		t.Fatalf("snapshot missing joiner")
	}
	if events[2].Audience != ToAllExcept || events[2].Session != "a" {
		t.Fatalf("player update should exclude joiner, got %+v", events[2])
	}

	p := mustPlayer(t, w, "a")
	if p.Pos != SpawnPoint || p.Lives != 3 || p.Health != 100 || p.MaxHealth != 100 || p.Stamina != 100 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestJoinInitializesWorldOnlyOnce(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	w.mu.Lock()
	w.enemies = w.enemies[:1]
	w.mu.Unlock()

	w.Join("b")
	if got := len(w.Snapshot().Enemies); got != 1 {
		t.Fatalf("second join must not reload the level, enemies=%d", got)
	}
}

func TestRemoveSessionIsIdempotent(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	first := w.RemoveSession("a")
	if len(eventsOfType(first, MsgPlayerLeft)) != 1 {
		t.Fatalf("expected playerLeft on first removal, got %+v", first)
	}
	if second := w.RemoveSession("a"); second != nil {
		t.Fatalf("second removal should be a no-op, got %+v", second)
	}
	if never := w.RemoveSession("ghost"); never != nil {
		t.Fatalf("removing unknown session should be a no-op, got %+v", never)
	}
}

func TestMoveUpdatesStateAndNotifiesOthers(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	events := w.Move("a", Vec{X: 120, Y: 300}, Vec{X: 4, Y: 0}, false)
	if len(events) != 1 || events[0].Audience != ToAllExcept || events[0].Session != "a" {
		t.Fatalf("expected one playerUpdate excluding mover, got %+v", events)
	}
	p := mustPlayer(t, w, "a")
	if p.Pos.X != 120 || p.Vel.X != 4 {
		t.Fatalf("move not applied: %+v", p)
	}
}

func TestActionsFromUnknownSessionAreNoops(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	if ev := w.Move("ghost", Vec{}, Vec{}, false); ev != nil {
		t.Fatalf("move: %+v", ev)
	}
	if ev := w.Jump("ghost"); ev != nil {
		t.Fatalf("jump: %+v", ev)
	}
	if ev := w.Smash("ghost"); ev != nil {
		t.Fatalf("smash: %+v", ev)
	}
	if ev, err := w.Attack("ghost", AttackRequest{Type: AttackKO, Direction: 1}); ev != nil || err != nil {
		t.Fatalf("attack: %+v %v", ev, err)
	}
	if ev, err := w.MegaTransform("ghost"); ev != nil || err != nil {
		t.Fatalf("mega: %+v %v", ev, err)
	}
}

func TestJumpIgnoredWhileAirborne(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	events := w.Jump("a")
	if len(events) != 1 || events[0].Audience != ToAll {
		t.Fatalf("expected playerUpdate to all, got %+v", events)
	}
	if p := mustPlayer(t, w, "a"); p.Vel.Y != -15 || !p.Jumping {
		t.Fatalf("jump not applied: %+v", p)
	}
	if again := w.Jump("a"); again != nil {
		t.Fatalf("second jump should be ignored, got %+v", again)
	}
}

func TestMegaTransformRequiresGoldenEgg(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	events, err := w.MegaTransform("a")
	if !errors.Is(err, ErrNoGoldenEgg) || events != nil {
		t.Fatalf("expected rejection, got %+v %v", events, err)
	}
	if p := mustPlayer(t, w, "a"); p.IsMegaChicken || p.MaxHealth != 100 {
		t.Fatalf("rejected transform changed state: %+v", p)
	}

	w.mu.Lock()
	w.players["a"].HasGoldenEgg = true
	w.players["a"].Health = 40
	w.mu.Unlock()

	events, err = w.MegaTransform("a")
	if err != nil || len(events) != 1 || events[0].Audience != ToAll {
		t.Fatalf("expected broadcast, got %+v %v", events, err)
	}
	msg := events[0].Message.(MegaTransformMessage)
	if msg.Data.PlayerID != "a" || !msg.Data.Active {
		t.Fatalf("unexpected payload: %+v", msg)
	}
	p := mustPlayer(t, w, "a")
	if !p.IsMegaChicken || p.MegaChickenTimer != 1800 || p.MaxHealth != 200 || p.Health != 200 || p.HasGoldenEgg {
		t.Fatalf("transform not applied: %+v", p)
	}
}

func TestSnapshotDoesNotAliasWorld(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")

	snap := w.Snapshot()
	snap.Enemies[0].Health = 1
	snap.Zeldina.Rescued = true
	snap.Players["a"] = PlayerSession{Health: 1}

	again := w.Snapshot()
	if again.Enemies[0].Health == 1 || again.Zeldina.Rescued || again.Players["a"].Health != 100 {
		t.Fatalf("snapshot aliased world state: %+v", again)
	}
}

func TestSetRulesTrimsProjectiles(t *testing.T) {
	w := newTestWorld(noCrit())
	w.Join("a")
	for i := 0; i < 5; i++ {
		if _, err := w.Attack("a", AttackRequest{Type: AttackEgg, Origin: Vec{X: 10, Y: 10}, Direction: 1}); err != nil {
			t.Fatalf("attack: %v", err)
		}
	}
	w.SetRules(Rules{MaxProjectiles: 2})
	if got := w.Summary().Projectiles; got != 2 {
		t.Fatalf("expected 2 projectiles after trim, got %d", got)
	}
}
