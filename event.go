package midifile

import (
	"cmp"
	"fmt"
)

// Event is a message stamped with a tick time. Whether Tick is absolute
// or a delta to the preceding event is a property of the containing
// Track.
type Event struct {
	Tick    uint64
	Message Message

	// Track is the index of the track the event came from. MergeTracks
	// keeps it, so the origin of an event stays identifiable after
	// tracks are combined.
	Track int

	seconds    float64
	hasSeconds bool
	seq        uint32
	link       int // 1-based index of the paired note event, 0 if unlinked
}

// Seconds returns the wall-clock time assigned by UpdateSeconds.
func (e *Event) Seconds() (float64, bool) {
	return e.seconds, e.hasSeconds
}

// SetSeconds assigns the wall-clock time of the event.
func (e *Event) SetSeconds(s float64) {
	e.seconds = s
	e.hasSeconds = true
}

// ClearSeconds removes the wall-clock time of the event.
func (e *Event) ClearSeconds() {
	e.seconds = 0
	e.hasSeconds = false
}

// Linked returns the index of the paired note event within the same
// track, as assigned by LinkNoteEvents or AddNote. Links are positional:
// sorting or structural edits invalidate them until the track is linked
// again.
func (e *Event) Linked() (int, bool) {
	if e.link == 0 {
		return 0, false
	}
	return e.link - 1, true
}

// SetLinked points the event at its pair by index.
func (e *Event) SetLinked(i int) {
	e.link = i + 1
}

// ClearLinked removes the pairing.
func (e *Event) ClearLinked() {
	e.link = 0
}

// IsLinked reports whether the event has a pair.
func (e *Event) IsLinked() bool {
	return e.link != 0
}

// Channel returns the channel of a channel voice message.
func (e *Event) Channel() (uint8, bool) {
	return MessageChannel(e.Message)
}

// Key returns the key number of a note message.
func (e *Event) Key() (uint8, bool) {
	switch m := e.Message.(type) {
	case NoteOn:
		return m.Key, true
	case NoteOff:
		return m.Key, true
	}
	return 0, false
}

// Velocity returns the velocity of a note message.
func (e *Event) Velocity() (uint8, bool) {
	switch m := e.Message.(type) {
	case NoteOn:
		return m.Velocity, true
	case NoteOff:
		return m.Velocity, true
	}
	return 0, false
}

// TickDuration returns the tick distance to the linked event. events
// must be the event slice of the track containing e. A pair that ends
// before it starts counts as zero.
func (e *Event) TickDuration(events []Event) (uint64, bool) {
	i, ok := e.Linked()
	if !ok || i >= len(events) {
		return 0, false
	}
	other := events[i].Tick
	if other <= e.Tick {
		return 0, true
	}
	return other - e.Tick, true
}

// SecondsDuration returns the wall-clock distance to the linked event.
// Both ends need seconds assigned by UpdateSeconds.
func (e *Event) SecondsDuration(events []Event) (float64, bool) {
	i, ok := e.Linked()
	if !ok || i >= len(events) {
		return 0, false
	}
	start, ok := e.Seconds()
	if !ok {
		return 0, false
	}
	end, ok := events[i].Seconds()
	if !ok {
		return 0, false
	}
	return end - start, true
}

func (e *Event) String() string {
	return fmt.Sprintf("[%d] %v", e.Tick, e.Message)
}

// messagePriority orders messages at equal ticks: meta events first so
// tempo changes take effect before anything they time, then note
// releases, then program and controller setup, then new notes.
func messagePriority(m Message) int {
	switch v := m.(type) {
	case Meta:
		return 0
	case NoteOff:
		return 1
	case NoteOn:
		if v.Velocity == 0 {
			return 1
		}
		return 4
	case ProgramChange:
		return 2
	case ControlChange:
		return 3
	}
	return 5
}

// compareEvents orders events by tick, then message priority, then
// sequence number. Sequence numbers are assigned from slice positions
// right before sorting, which keeps equal events in insertion order.
func compareEvents(a, b Event) int {
	if c := cmp.Compare(a.Tick, b.Tick); c != 0 {
		return c
	}
	if c := cmp.Compare(messagePriority(a.Message), messagePriority(b.Message)); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}
