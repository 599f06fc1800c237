package emit

import (
	"context"
	"sync"
	"testing"
)

func TestBufferedEmitter_History(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{Site: "Amy", Seq: 1, Msg: "send"})
	emitter.Emit(Event{Site: "Amy", Seq: 2, Msg: "recv"})
	emitter.Emit(Event{Site: "Bob", Seq: 1, Msg: "send"})

	amy := emitter.History("Amy")
	if len(amy) != 2 {
		t.Fatalf("Amy history has %d events; want 2", len(amy))
	}
	if amy[0].Seq != 1 || amy[1].Seq != 2 {
		t.Error("history out of emission order")
	}
	if got := emitter.History("Cho"); len(got) != 0 {
		t.Errorf("unknown site history has %d events; want 0", len(got))
	}
}

func TestBufferedEmitter_HistoryIsACopy(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{Site: "Amy", Seq: 1, Msg: "send"})

	history := emitter.History("Amy")
	history[0].Msg = "mutated"

	if got := emitter.History("Amy"); got[0].Msg != "send" {
		t.Error("mutating a returned history changed stored events")
	}
}

func TestBufferedEmitter_Filter(t *testing.T) {
	emitter := NewBufferedEmitter()
	for seq := 1; seq <= 10; seq++ {
		msg := "send"
		if seq%2 == 0 {
			msg = "recv"
		}
		emitter.Emit(Event{Site: "Amy", Seq: seq, Msg: msg})
	}

	t.Run("by message", func(t *testing.T) {
		got := emitter.HistoryWithFilter("Amy", HistoryFilter{Msg: "send"})
		if len(got) != 5 {
			t.Errorf("filtered %d events; want 5", len(got))
		}
	})

	t.Run("by sequence range", func(t *testing.T) {
		minSeq, maxSeq := 3, 6
		got := emitter.HistoryWithFilter("Amy", HistoryFilter{MinSeq: &minSeq, MaxSeq: &maxSeq})
		if len(got) != 4 {
			t.Errorf("filtered %d events; want 4", len(got))
		}
	})

	t.Run("combined", func(t *testing.T) {
		minSeq := 2
		got := emitter.HistoryWithFilter("Amy", HistoryFilter{Msg: "recv", MinSeq: &minSeq})
		if len(got) != 5 {
			t.Errorf("filtered %d events; want 5", len(got))
		}
	})
}

func TestBufferedEmitter_Clear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{Site: "Amy", Seq: 1, Msg: "x"})
	emitter.Emit(Event{Site: "Bob", Seq: 1, Msg: "x"})

	emitter.Clear("Amy")
	if len(emitter.History("Amy")) != 0 {
		t.Error("Amy history survived Clear")
	}
	if len(emitter.History("Bob")) != 1 {
		t.Error("Bob history lost by site-scoped Clear")
	}

	emitter.Clear("")
	if len(emitter.History("Bob")) != 0 {
		t.Error("Bob history survived full Clear")
	}
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	emitter := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				emitter.Emit(Event{Site: "Amy", Seq: j, Msg: "x"})
			}
		}()
	}
	wg.Wait()
	if got := len(emitter.History("Amy")); got != 800 {
		t.Errorf("stored %d events; want 800", got)
	}
	if err := emitter.EmitBatch(context.Background(), []Event{{Site: "Amy", Seq: 801, Msg: "x"}}); err != nil {
		t.Errorf("EmitBatch = %v", err)
	}
}
