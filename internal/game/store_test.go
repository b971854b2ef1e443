package game

import (
	"sync"
	"testing"

	"github.com/tatianab/dungeon-crawler/internal/models"
)

func TestStoreDispatchAndSubscribe(t *testing.T) {
	st := NewStore(newTestReducer())

	var got []models.GameState
	cancel := st.Subscribe(func(s models.GameState) {
		got = append(got, s)
	})

	st.Dispatch(SetLoading{Loading: true, Message: "wait"})
	st.Dispatch(SetError{Message: "boom"})
	cancel()
	st.Dispatch(SetError{})

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if !got[0].Loading || got[1].Error != "boom" {
		t.Errorf("unexpected notifications: %+v", got)
	}
	if snap := st.Snapshot(); snap.Error != "" {
		t.Errorf("expected cleared error in snapshot, got %q", snap.Error)
	}
}

func TestStoreSerializesDispatch(t *testing.T) {
	st := NewStore(newTestReducer())
	fighter, _ := st.Reducer().Layout().Class("The Fighter")
	st.Dispatch(SelectClass{Class: fighter})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Dispatch(ResolveAction{Payload: models.ActionResolution{SuccessTier: models.TierSuccess}})
		}()
	}
	wg.Wait()

	s := st.Snapshot()
	if s.TurnCount != 50 {
		t.Errorf("expected 50 turns, got %d", s.TurnCount)
	}
	if len(s.History) != s.TurnCount {
		t.Errorf("history length %d does not match turn count %d", len(s.History), s.TurnCount)
	}
}
