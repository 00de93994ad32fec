package midifile

import (
	"errors"
	"slices"
)

// Track is an ordered list of events. A zero Track is empty, sorted,
// and in absolute time.
type Track struct {
	// Events may be read and edited directly. Callers that reorder or
	// retime events this way must call MarkUnsorted afterwards.
	Events []Event

	// Name mirrors the first TrackName meta event seen by Parse, or a
	// name assigned by SplitTracksByChannel. It is in-memory bookkeeping
	// and is not serialized by itself.
	Name string

	deltaTime bool
	unsorted  bool
}

// AddEvent appends e to the track. The sorted flag survives as long as
// e does not sort before the current tail.
func (t *Track) AddEvent(e Event) {
	if n := len(t.Events); n > 0 && !t.unsorted {
		tail := &t.Events[n-1]
		if e.Tick < tail.Tick ||
			(e.Tick == tail.Tick && messagePriority(e.Message) < messagePriority(tail.Message)) {
			t.unsorted = true
		}
	}
	t.Events = append(t.Events, e)
}

// InsertEvent inserts e at index i and marks the track unsorted.
func (t *Track) InsertEvent(i int, e Event) {
	t.Events = slices.Insert(t.Events, i, e)
	t.unsorted = true
}

// RemoveEvent removes and returns the event at index i.
func (t *Track) RemoveEvent(i int) (Event, bool) {
	if i < 0 || i >= len(t.Events) {
		return Event{}, false
	}
	e := t.Events[i]
	t.Events = slices.Delete(t.Events, i, i+1)
	return e, true
}

// Clear removes all events.
func (t *Track) Clear() {
	t.Events = t.Events[:0]
	t.unsorted = false
}

// IsSorted reports whether the events are known to be in canonical
// order.
func (t *Track) IsSorted() bool {
	return !t.unsorted
}

// MarkUnsorted flags the track for re-sorting after direct edits to
// Events.
func (t *Track) MarkUnsorted() {
	t.unsorted = true
}

// IsAbsoluteTime reports whether event ticks are absolute rather than
// deltas.
func (t *Track) IsAbsoluteTime() bool {
	return !t.deltaTime
}

// Sort orders events by tick, breaking ties so meta events come first
// and note releases precede new notes. Events that still compare equal
// keep their current order. Sorting assumes absolute times; a track
// that is already sorted is left untouched.
func (t *Track) Sort() {
	if !t.unsorted {
		return
	}
	for i := range t.Events {
		t.Events[i].seq = uint32(i)
	}
	slices.SortFunc(t.Events, compareEvents)
	t.unsorted = false
}

// LastTick returns the tick of the final event, or 0 for an empty
// track.
func (t *Track) LastTick() uint64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Tick
}

// MakeDeltaTimes converts absolute ticks to deltas against the
// preceding event. The track is sorted first. No-op when already in
// delta time.
func (t *Track) MakeDeltaTimes() {
	if t.deltaTime {
		return
	}
	t.Sort()
	var prev uint64
	for i := range t.Events {
		tick := t.Events[i].Tick
		t.Events[i].Tick = tick - prev
		prev = tick
	}
	t.deltaTime = true
}

// MakeAbsoluteTimes converts delta ticks back to absolute times. No-op
// when already absolute.
func (t *Track) MakeAbsoluteTimes() {
	if !t.deltaTime {
		return
	}
	var at uint64
	for i := range t.Events {
		at += t.Events[i].Tick
		t.Events[i].Tick = at
	}
	t.deltaTime = false
}

// LinkNoteEvents pairs each note start with its release, first in first
// out per channel and key: the oldest open note on a channel and key is
// the one a release closes. The track is sorted first and existing
// links are discarded. Releases with no open note stay unlinked, as do
// notes that never end.
func (t *Track) LinkNoteEvents() {
	t.Sort()
	t.UnlinkNoteEvents()

	type slot struct{ channel, key uint8 }
	active := make(map[slot][]int)
	release := func(s slot, off int) {
		on := active[s]
		if len(on) == 0 {
			return
		}
		active[s] = on[1:]
		t.Events[on[0]].SetLinked(off)
		t.Events[off].SetLinked(on[0])
	}
	for i := range t.Events {
		switch m := t.Events[i].Message.(type) {
		case NoteOn:
			s := slot{m.Channel, m.Key}
			if m.Velocity == 0 {
				release(s, i)
			} else {
				active[s] = append(active[s], i)
			}
		case NoteOff:
			release(slot{m.Channel, m.Key}, i)
		}
	}
}

// UnlinkNoteEvents clears all note links.
func (t *Track) UnlinkNoteEvents() {
	for i := range t.Events {
		t.Events[i].ClearLinked()
	}
}

// AddNote appends a note start and its release, already linked to each
// other. The release carries velocity 0. A zero duration puts both
// events on the same tick.
func (t *Track) AddNote(start, duration uint64, channel, key, velocity uint8) {
	i := len(t.Events)
	on := Event{Tick: start, Message: NoteOn{Channel: channel, Key: key, Velocity: velocity}}
	off := Event{Tick: start + duration, Message: NoteOff{Channel: channel, Key: key}}
	on.SetLinked(i + 1)
	off.SetLinked(i)
	t.Events = append(t.Events, on, off)
	t.unsorted = true
}

// AddControlChange appends a controller change.
func (t *Track) AddControlChange(tick uint64, channel, controller, value uint8) {
	t.AddEvent(Event{Tick: tick, Message: ControlChange{Channel: channel, Controller: controller, Value: value}})
}

// AddProgramChange appends a program change.
func (t *Track) AddProgramChange(tick uint64, channel, program uint8) {
	t.AddEvent(Event{Tick: tick, Message: ProgramChange{Channel: channel, Program: program}})
}

// AddTempo appends a tempo change in beats per minute.
func (t *Track) AddTempo(tick uint64, bpm float64) {
	t.AddEvent(Event{Tick: tick, Message: Meta{Event: TempoFromBPM(bpm)}})
}

// AddTimeSignature appends a time signature with a notated denominator
// such as 4 or 8.
func (t *Track) AddTimeSignature(tick uint64, numerator, denominator uint8) {
	t.AddEvent(Event{Tick: tick, Message: Meta{Event: TimeSignatureFromRatio(numerator, denominator)}})
}

// AddKeySignature appends a key signature.
func (t *Track) AddKeySignature(tick uint64, sharpsFlats int8, minor bool) {
	t.AddEvent(Event{Tick: tick, Message: Meta{Event: KeySignature{SharpsFlats: sharpsFlats, Minor: minor}}})
}

// AddEndOfTrack appends an end-of-track marker at the current last
// tick.
func (t *Track) AddEndOfTrack() {
	t.AddEvent(Event{Tick: t.LastTick(), Message: Meta{Event: EndOfTrack{}}})
}

// EnsureEndOfTrack appends an end-of-track marker unless the track
// already has one.
func (t *Track) EnsureEndOfTrack() {
	for i := range t.Events {
		if m, ok := t.Events[i].Message.(Meta); ok {
			if _, ok := m.Event.(EndOfTrack); ok {
				return
			}
		}
	}
	t.AddEndOfTrack()
}

// TempoChange is a tempo meta event's tick and value.
type TempoChange struct {
	Tick             uint64
	MicrosPerQuarter uint32
}

// TempoChanges lists the tempo events of the track in event order.
func (t *Track) TempoChanges() []TempoChange {
	var changes []TempoChange
	for i := range t.Events {
		if m, ok := t.Events[i].Message.(Meta); ok {
			if tempo, ok := m.Event.(Tempo); ok {
				changes = append(changes, TempoChange{Tick: t.Events[i].Tick, MicrosPerQuarter: uint32(tempo)})
			}
		}
	}
	return changes
}

// ForEachEvent calls yield for every event in slice order. Returning
// StopIteration from yield ends the walk early without error; any other
// error is passed through.
func (t *Track) ForEachEvent(yield func(i int, e *Event) error) error {
	for i := range t.Events {
		err := yield(i, &t.Events[i])
		if errors.Is(err, StopIteration) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ForEachNoteOn calls yield for every note start.
func (t *Track) ForEachNoteOn(yield func(i int, e *Event) error) error {
	return t.ForEachEvent(func(i int, e *Event) error {
		if !IsNoteOn(e.Message) {
			return nil
		}
		return yield(i, e)
	})
}

// ForEachChannelEvent calls yield for every event on the given channel.
func (t *Track) ForEachChannelEvent(channel uint8, yield func(i int, e *Event) error) error {
	return t.ForEachEvent(func(i int, e *Event) error {
		if ch, ok := e.Channel(); !ok || ch != channel {
			return nil
		}
		return yield(i, e)
	})
}

// ForEachMetaEvent calls yield for every meta event.
func (t *Track) ForEachMetaEvent(yield func(i int, ev MetaEvent) error) error {
	return t.ForEachEvent(func(i int, e *Event) error {
		m, ok := e.Message.(Meta)
		if !ok {
			return nil
		}
		return yield(i, m.Event)
	})
}

// ExtractChannel copies the events of one channel, plus all meta
// events, into a new sorted track. Links are not carried over; run
// LinkNoteEvents on the result if needed.
func (t *Track) ExtractChannel(channel uint8) *Track {
	out := &Track{}
	for i := range t.Events {
		e := t.Events[i]
		ch, hasCh := e.Channel()
		if _, isMeta := e.Message.(Meta); !isMeta && (!hasCh || ch != channel) {
			continue
		}
		e.ClearLinked()
		out.AddEvent(e)
	}
	out.Sort()
	return out
}

// Merge appends copies of the other track's events. The other track's
// links point at positions in its own slice, so the copies come in
// unlinked; relink after merging.
func (t *Track) Merge(other *Track) {
	for i := range other.Events {
		e := other.Events[i]
		e.ClearLinked()
		t.AddEvent(e)
	}
	t.unsorted = true
}
