package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func water() *molecule.Solution {
	sol := molecule.NewSolution()
	o := sol.AddAtom(molecule.NewAtom(r3.Vec{}, "O", 8, 15.999, 0.65, "#ff0d0d"))
	h := sol.AddAtom(molecule.NewAtom(r3.Vec{X: 0.2}, "H", 1, 1.008, 0.79, "#ffffff"))
	sol.AddBond(o, h, molecule.BondParams{Length: 96, Energy: 459, Order: molecule.Single})
	return sol
}

func TestFrameMessage(t *testing.T) {
	sol := water()
	stats := sol.SimulationStep()

	msg := FrameMessage("water", 1, sol, stats)
	if msg.Type != "frame" || msg.Step != 1 || msg.MaxForce != stats.MaxForce {
		t.Errorf("unexpected header %+v", msg)
	}
	if len(msg.Atoms) != 2 || len(msg.Bonds) != 1 {
		t.Fatalf("expected 2 atoms and 1 bond, got %d and %d", len(msg.Atoms), len(msg.Bonds))
	}
	if msg.Bonds[0].Order != int(molecule.Single) {
		t.Errorf("unexpected bond order %d", msg.Bonds[0].Order)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.Clients() == 1 })

	sol := water()
	if err := hub.Publish(context.Background(), FrameMessage("water", 3, sol, molecule.StepStats{MaxForce: 0.5})); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Name != "water" || got.Step != 3 || got.MaxForce != 0.5 {
		t.Errorf("unexpected message %+v", got)
	}
	if len(got.Atoms) != 2 || got.Atoms[1].Symbol != "H" {
		t.Errorf("unexpected atoms %+v", got.Atoms)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestHubClosed(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Close(); err != nil {
		t.Fatal(err)
	}
	if err := hub.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	if err := hub.Publish(context.Background(), Message{Type: "done"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if hub.TryPublish(Message{Type: "done"}) {
		t.Error("closed hub should not queue messages")
	}
}
