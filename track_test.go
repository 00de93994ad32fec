package midifile

import (
	"errors"
	"fmt"
	"testing"
)

func TestTrackSortedFlag(t *testing.T) {
	tr := &Track{}
	if !tr.IsSorted() {
		t.Error("empty track not sorted")
	}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 100, Message: NoteOff{Key: 60}})
	if !tr.IsSorted() {
		t.Error("in-order appends marked the track unsorted")
	}
	tr.AddEvent(Event{Tick: 50, Message: NoteOn{Key: 62, Velocity: 90}})
	if tr.IsSorted() {
		t.Error("out-of-order append left the track sorted")
	}
	tr.Sort()
	if !tr.IsSorted() {
		t.Error("Sort did not mark the track sorted")
	}
	if tr.Events[1].Tick != 50 {
		t.Errorf("event 1 at tick %d, want 50", tr.Events[1].Tick)
	}
	tr.MarkUnsorted()
	if tr.IsSorted() {
		t.Error("MarkUnsorted had no effect")
	}
}

func TestTrackSortedFlagSameTick(t *testing.T) {
	// A release appended after an attack on the same tick sorts before
	// it, so the append must drop the sorted flag.
	tr := &Track{}
	tr.AddEvent(Event{Tick: 10, Message: NoteOn{Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 10, Message: NoteOff{Key: 60}})
	if tr.IsSorted() {
		t.Error("same-tick release after attack left the track marked sorted")
	}
	tr.Sort()
	if _, ok := tr.Events[0].Message.(NoteOff); !ok {
		t.Errorf("event 0 = %v, want the release first", tr.Events[0].Message)
	}
	if !tr.IsSorted() {
		t.Error("Sort did not mark the track sorted")
	}

	// Same-tick appends in canonical class order keep the flag.
	tr2 := &Track{}
	tr2.AddEvent(Event{Tick: 10, Message: Meta{Event: Tempo(500000)}})
	tr2.AddEvent(Event{Tick: 10, Message: NoteOff{Key: 60}})
	tr2.AddEvent(Event{Tick: 10, Message: NoteOn{Key: 60, Velocity: 90}})
	if !tr2.IsSorted() {
		t.Error("canonical same-tick appends marked the track unsorted")
	}
}

func TestTrackDeltaTimes(t *testing.T) {
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 480, Message: NoteOff{Key: 60}})
	tr.AddEvent(Event{Tick: 960, Message: Meta{Event: EndOfTrack{}}})
	if !tr.IsAbsoluteTime() {
		t.Fatal("fresh track not in absolute time")
	}

	tr.MakeDeltaTimes()
	if tr.IsAbsoluteTime() {
		t.Fatal("MakeDeltaTimes left absolute time set")
	}
	for i, want := range []uint64{0, 480, 480} {
		if tr.Events[i].Tick != want {
			t.Errorf("delta %d = %d, want %d", i, tr.Events[i].Tick, want)
		}
	}
	tr.MakeDeltaTimes() // no-op when already delta

	tr.MakeAbsoluteTimes()
	if !tr.IsAbsoluteTime() {
		t.Fatal("MakeAbsoluteTimes left delta time set")
	}
	for i, want := range []uint64{0, 480, 960} {
		if tr.Events[i].Tick != want {
			t.Errorf("tick %d = %d, want %d", i, tr.Events[i].Tick, want)
		}
	}
}

func TestTrackDeltaTimesSortsFirst(t *testing.T) {
	tr := &Track{}
	tr.AddEvent(Event{Tick: 480, Message: NoteOff{Key: 60}})
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Key: 60, Velocity: 90}})
	tr.MakeDeltaTimes()
	if tr.Events[0].Tick != 0 || tr.Events[1].Tick != 480 {
		t.Errorf("deltas = %d, %d, want 0, 480", tr.Events[0].Tick, tr.Events[1].Tick)
	}
	if !IsNoteOn(tr.Events[0].Message) {
		t.Error("note start not first after sorting")
	}
}

func TestLinkNoteEventsFIFO(t *testing.T) {
	// Two overlapping notes on the same channel and key. The first
	// release closes the first start.
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Channel: 0, Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 10, Message: NoteOn{Channel: 0, Key: 60, Velocity: 80}})
	tr.AddEvent(Event{Tick: 20, Message: NoteOff{Channel: 0, Key: 60}})
	tr.AddEvent(Event{Tick: 30, Message: NoteOff{Channel: 0, Key: 60}})
	tr.LinkNoteEvents()

	checkLink := func(from, to int) {
		t.Helper()
		got, ok := tr.Events[from].Linked()
		if !ok || got != to {
			t.Errorf("event %d linked to %d, %v, want %d", from, got, ok, to)
		}
	}
	checkLink(0, 2)
	checkLink(2, 0)
	checkLink(1, 3)
	checkLink(3, 1)
}

func TestLinkNoteEventsOrphans(t *testing.T) {
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOff{Channel: 0, Key: 60}})
	tr.AddEvent(Event{Tick: 10, Message: NoteOn{Channel: 0, Key: 62, Velocity: 90}})
	tr.LinkNoteEvents()
	for i := range tr.Events {
		if tr.Events[i].IsLinked() {
			t.Errorf("orphan event %d is linked", i)
		}
	}
}

func TestLinkNoteEventsZeroVelocityRelease(t *testing.T) {
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Channel: 2, Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 100, Message: NoteOn{Channel: 2, Key: 60, Velocity: 0}})
	tr.LinkNoteEvents()
	if got, ok := tr.Events[0].Linked(); !ok || got != 1 {
		t.Errorf("start linked to %d, %v, want 1", got, ok)
	}
	if got, ok := tr.Events[1].Linked(); !ok || got != 0 {
		t.Errorf("release linked to %d, %v, want 0", got, ok)
	}
}

func TestLinkNoteEventsSeparatesChannels(t *testing.T) {
	// Same key on two channels; releases must pair within a channel.
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Channel: 0, Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Channel: 1, Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 10, Message: NoteOff{Channel: 1, Key: 60}})
	tr.AddEvent(Event{Tick: 20, Message: NoteOff{Channel: 0, Key: 60}})
	tr.LinkNoteEvents()
	if got, _ := tr.Events[0].Linked(); got != 3 {
		t.Errorf("channel 0 start linked to %d, want 3", got)
	}
	if got, _ := tr.Events[1].Linked(); got != 2 {
		t.Errorf("channel 1 start linked to %d, want 2", got)
	}
}

func TestLinkNoteEventsClearsStaleLinks(t *testing.T) {
	tr := &Track{}
	tr.AddNote(0, 480, 0, 60, 90)
	tr.LinkNoteEvents()
	// Drop the release; the start's old link would now dangle.
	tr.RemoveEvent(1)
	tr.LinkNoteEvents()
	if tr.Events[0].IsLinked() {
		t.Error("stale link survived relinking")
	}
}

func TestAddNote(t *testing.T) {
	tr := &Track{}
	tr.AddNote(100, 50, 3, 64, 110)
	if len(tr.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(tr.Events))
	}
	if tr.Events[0].Message != (NoteOn{Channel: 3, Key: 64, Velocity: 110}) {
		t.Errorf("start = %v", tr.Events[0].Message)
	}
	if tr.Events[1].Message != (NoteOff{Channel: 3, Key: 64, Velocity: 0}) {
		t.Errorf("release = %v", tr.Events[1].Message)
	}
	if tr.Events[1].Tick != 150 {
		t.Errorf("release at tick %d, want 150", tr.Events[1].Tick)
	}
	if got, _ := tr.Events[0].Linked(); got != 1 {
		t.Errorf("start linked to %d, want 1", got)
	}
	if got, _ := tr.Events[1].Linked(); got != 0 {
		t.Errorf("release linked to %d, want 0", got)
	}
}

func TestTrackInsertRemoveClear(t *testing.T) {
	tr := &Track{}
	tr.AddEvent(Event{Tick: 0, Message: NoteOn{Key: 60, Velocity: 90}})
	tr.AddEvent(Event{Tick: 100, Message: NoteOff{Key: 60}})
	tr.InsertEvent(1, Event{Tick: 50, Message: ControlChange{Controller: ControllerSustain, Value: 127}})
	if len(tr.Events) != 3 || tr.Events[1].Tick != 50 {
		t.Fatalf("insert misplaced: %v", tr.Events)
	}
	e, ok := tr.RemoveEvent(1)
	if !ok || e.Tick != 50 {
		t.Errorf("RemoveEvent = %v, %v", e, ok)
	}
	if _, ok := tr.RemoveEvent(5); ok {
		t.Error("RemoveEvent out of range succeeded")
	}
	tr.Clear()
	if len(tr.Events) != 0 {
		t.Error("Clear left events behind")
	}
}

func TestEndOfTrack(t *testing.T) {
	tr := &Track{}
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddEndOfTrack()
	last := tr.Events[len(tr.Events)-1]
	if last.Tick != 480 {
		t.Errorf("end of track at tick %d, want 480", last.Tick)
	}
	if last.Message != (Meta{Event: EndOfTrack{}}) {
		t.Errorf("last message = %v", last.Message)
	}
	n := len(tr.Events)
	tr.EnsureEndOfTrack()
	if len(tr.Events) != n {
		t.Error("EnsureEndOfTrack appended a second marker")
	}

	tr2 := &Track{}
	tr2.AddNote(0, 100, 0, 60, 90)
	tr2.EnsureEndOfTrack()
	if tr2.Events[len(tr2.Events)-1].Message != (Meta{Event: EndOfTrack{}}) {
		t.Error("EnsureEndOfTrack did not append a marker")
	}
}

func TestLastTick(t *testing.T) {
	tr := &Track{}
	if tr.LastTick() != 0 {
		t.Errorf("empty LastTick = %d", tr.LastTick())
	}
	tr.AddEvent(Event{Tick: 300, Message: NoteOff{Key: 60}})
	tr.AddEvent(Event{Tick: 100, Message: NoteOn{Key: 60, Velocity: 90}})
	// LastTick reads the tail event, so an unsorted track reports the
	// tail's tick rather than the maximum.
	if tr.LastTick() != 100 {
		t.Errorf("unsorted LastTick = %d, want 100", tr.LastTick())
	}
	tr.Sort()
	if tr.LastTick() != 300 {
		t.Errorf("LastTick = %d, want 300", tr.LastTick())
	}
}

func TestTempoChanges(t *testing.T) {
	tr := &Track{}
	tr.AddTempo(0, 120)
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddTempo(480, 60)
	got := tr.TempoChanges()
	want := []TempoChange{
		{Tick: 0, MicrosPerQuarter: 500000},
		{Tick: 480, MicrosPerQuarter: 1000000},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d changes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestForEachNoteOn(t *testing.T) {
	tr := &Track{}
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddNote(480, 480, 0, 64, 90)
	tr.AddEvent(Event{Tick: 0, Message: ControlChange{Controller: ControllerPan, Value: 64}})

	var keys []uint8
	err := tr.ForEachNoteOn(func(i int, e *Event) error {
		key, _ := e.Key()
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachNoteOn: %v", err)
	}
	if len(keys) != 2 || keys[0] != 60 || keys[1] != 64 {
		t.Errorf("keys = %v, want [60 64]", keys)
	}
}

func TestForEachEventStops(t *testing.T) {
	tr := &Track{}
	for i := 0; i < 5; i++ {
		tr.AddEvent(Event{Tick: uint64(i), Message: NoteOn{Key: 60, Velocity: 90}})
	}
	var seen int
	err := tr.ForEachEvent(func(i int, e *Event) error {
		seen++
		if seen == 2 {
			return StopIteration
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stopped walk returned %v", err)
	}
	if seen != 2 {
		t.Errorf("saw %d events, want 2", seen)
	}

	wantErr := errors.New("boom")
	err = tr.ForEachEvent(func(i int, e *Event) error {
		return fmt.Errorf("wrapped: %w", wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestForEachChannelEvent(t *testing.T) {
	tr := &Track{}
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddNote(0, 480, 1, 64, 90)
	tr.AddTempo(0, 120)
	var count int
	tr.ForEachChannelEvent(1, func(i int, e *Event) error {
		count++
		return nil
	})
	if count != 2 {
		t.Errorf("saw %d channel 1 events, want 2", count)
	}
}

func TestForEachMetaEvent(t *testing.T) {
	tr := &Track{}
	tr.AddTempo(0, 120)
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddEndOfTrack()
	var types []uint8
	tr.ForEachMetaEvent(func(i int, ev MetaEvent) error {
		types = append(types, ev.MetaType())
		return nil
	})
	if len(types) != 2 || types[0] != 0x51 || types[1] != 0x2F {
		t.Errorf("meta types = %v, want [0x51 0x2F]", types)
	}
}

func TestExtractChannel(t *testing.T) {
	tr := &Track{}
	tr.AddTempo(0, 120)
	tr.AddNote(0, 480, 0, 60, 90)
	tr.AddNote(0, 480, 5, 64, 100)
	tr.LinkNoteEvents()

	out := tr.ExtractChannel(5)
	if len(out.Events) != 3 {
		t.Fatalf("got %d events, want 3 (tempo plus one note)", len(out.Events))
	}
	for i := range out.Events {
		if out.Events[i].IsLinked() {
			t.Errorf("extracted event %d kept a link into the source track", i)
		}
		if ch, ok := out.Events[i].Channel(); ok && ch != 5 {
			t.Errorf("extracted event %d on channel %d", i, ch)
		}
	}
	// The source is untouched.
	if len(tr.Events) != 5 {
		t.Errorf("source has %d events, want 5", len(tr.Events))
	}
	if !tr.Events[1].IsLinked() {
		t.Error("source lost its links")
	}
}

func TestMergeTracksClearsLinks(t *testing.T) {
	a := &Track{}
	a.AddNote(0, 480, 0, 60, 90)
	b := &Track{}
	b.AddNote(240, 480, 1, 64, 90)
	b.LinkNoteEvents()

	a.Merge(b)
	if len(a.Events) != 4 {
		t.Fatalf("got %d events, want 4", len(a.Events))
	}
	if a.IsSorted() {
		t.Error("merge left the track marked sorted")
	}
	for i := 2; i < 4; i++ {
		if a.Events[i].IsLinked() {
			t.Errorf("merged event %d kept its old link", i)
		}
	}
	// b is untouched.
	if !b.Events[0].IsLinked() {
		t.Error("merge source lost its links")
	}
}
