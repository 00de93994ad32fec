package midifile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// Format is the SMF container format word.
type Format uint16

const (
	// SingleTrack files carry one track with all channels interleaved.
	SingleTrack Format = 0
	// MultiTrack files carry parallel tracks played together.
	MultiTrack Format = 1
	// MultiSequence files carry independent sequences.
	MultiSequence Format = 2
)

func (f Format) String() string {
	switch f {
	case SingleTrack:
		return "SingleTrack"
	case MultiTrack:
		return "MultiTrack"
	case MultiSequence:
		return "MultiSequence"
	}
	return fmt.Sprintf("Format(%d)", uint16(f))
}

func parseFormat(v uint16) (Format, error) {
	switch v {
	case 0, 1, 2:
		return Format(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrFormat, v)
}

// File is a Standard MIDI File held fully in memory: a format, a
// division, and the parsed tracks. Parse either yields a complete file
// or an error, never a partial document.
//
// A File is not safe for concurrent use.
type File struct {
	Format Format

	// TicksPerQuarter is the raw division word from the header. When
	// SMPTETiming reports true it encodes a frame rate and subdivision
	// instead of a metrical resolution, and tick arithmetic in this
	// package does not apply.
	TicksPerQuarter uint16

	// Tracks may be read and edited directly. After edits that touch
	// tempo events, call InvalidateTimeMap; the File mutators below do
	// it themselves.
	Tracks []*Track

	timeMap *TimeMap
}

// New returns an empty multi-track file at 480 ticks per quarter note.
func New() *File {
	return &File{Format: MultiTrack, TicksPerQuarter: 480}
}

// NewWithFormat returns an empty file with the given format and
// resolution.
func NewWithFormat(format Format, ticksPerQuarter uint16) *File {
	return &File{Format: format, TicksPerQuarter: ticksPerQuarter}
}

// SMPTETiming reports whether the division word selects SMPTE
// frame-based timing rather than ticks per quarter note.
func (f *File) SMPTETiming() bool {
	return f.TicksPerQuarter&0x8000 != 0
}

// Track returns the track at index i.
func (f *File) Track(i int) (*Track, error) {
	if i < 0 || i >= len(f.Tracks) {
		return nil, fmt.Errorf("%w: %d", ErrTrackRange, i)
	}
	return f.Tracks[i], nil
}

// AddTrack appends a new empty track and returns it.
func (f *File) AddTrack() *Track {
	t := &Track{}
	f.Tracks = append(f.Tracks, t)
	f.timeMap = nil
	return t
}

// AppendTrack appends an existing track.
func (f *File) AppendTrack(t *Track) {
	f.Tracks = append(f.Tracks, t)
	f.timeMap = nil
}

// RemoveTrack removes and returns the track at index i.
func (f *File) RemoveTrack(i int) (*Track, error) {
	t, err := f.Track(i)
	if err != nil {
		return nil, err
	}
	f.Tracks = slices.Delete(f.Tracks, i, i+1)
	f.timeMap = nil
	return t, nil
}

// Parse reads a complete file from data. The header must be intact and
// every declared track chunk present; a chunk length that overruns the
// buffer, a bad magic, or an undecodable event fails the whole parse.
// Bytes after the last declared track are ignored.
func Parse(data []byte) (*File, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("parse: %w: %d bytes", ErrHeader, len(data))
	}
	if string(data[0:4]) != "MThd" {
		return nil, fmt.Errorf("parse: %w: bad magic", ErrHeader)
	}
	headerLen := binary.BigEndian.Uint32(data[4:8])
	if headerLen < 6 {
		return nil, fmt.Errorf("parse: %w: header length %d", ErrHeader, headerLen)
	}
	format, err := parseFormat(binary.BigEndian.Uint16(data[8:10]))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	numTracks := int(binary.BigEndian.Uint16(data[10:12]))
	division := binary.BigEndian.Uint16(data[12:14])

	f := &File{
		Format:          format,
		TicksPerQuarter: division,
		Tracks:          make([]*Track, 0, numTracks),
	}
	pos := 8 + int(headerLen)
	for len(f.Tracks) < numTracks {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("parse: %w: %d of %d tracks", ErrUnexpectedEOF, len(f.Tracks), numTracks)
		}
		if string(data[pos:pos+4]) != "MTrk" {
			return nil, fmt.Errorf("parse: %w", ErrTrackHeader)
		}
		length := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if pos+length > len(data) {
			return nil, fmt.Errorf("parse: %w: track %d", ErrUnexpectedEOF, len(f.Tracks))
		}
		track, err := parseTrack(data[pos : pos+length])
		if err != nil {
			return nil, fmt.Errorf("parse track %d: %w", len(f.Tracks), err)
		}
		for i := range track.Events {
			track.Events[i].Track = len(f.Tracks)
		}
		f.Tracks = append(f.Tracks, track)
		pos += length
	}
	return f, nil
}

// Read parses a file from r, reading it fully into memory first.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read: %v", err)
	}
	return Parse(data)
}

// ReadFile parses the named file.
func ReadFile(name string) (*File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("could not read %v: %v", name, err)
	}
	return Parse(data)
}

// parseTrack decodes one MTrk chunk body into a track with absolute
// tick times. Running status carries the previous status byte through
// events that omit their own and is reset by meta and SysEx events.
func parseTrack(data []byte) (*Track, error) {
	track := &Track{}
	var tick uint64
	var runningStatus uint8
	pos := 0
	for pos < len(data) {
		delta, n, err := readVarLen(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		tick += uint64(delta)
		if pos >= len(data) {
			break
		}

		status := data[pos]
		if status == 0xFF {
			pos++
			if pos >= len(data) {
				return nil, fmt.Errorf("meta event: %w", ErrUnexpectedEOF)
			}
			ev, n, err := DecodeMetaEvent(data[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			if name, ok := ev.(TrackName); ok && track.Name == "" {
				track.Name = string(name)
			}
			track.AddEvent(Event{Tick: tick, Message: Meta{Event: ev}})
			runningStatus = 0
			continue
		}
		if status == 0xF0 || status == 0xF7 {
			pos++
			length, n, err := readVarLen(data[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			if pos+int(length) > len(data) {
				return nil, fmt.Errorf("sysex event: %w", ErrUnexpectedEOF)
			}
			payload := data[pos : pos+int(length)]
			// The counted bytes include the terminating 0xF7; Data holds
			// the payload without framing.
			if len(payload) > 0 && payload[len(payload)-1] == 0xF7 {
				payload = payload[:len(payload)-1]
			}
			pos += int(length)
			track.AddEvent(Event{Tick: tick, Message: SysEx{Data: slices.Clone(payload)}})
			runningStatus = 0
			continue
		}

		if status&0x80 != 0 {
			runningStatus = status
			pos++
		} else {
			if runningStatus == 0 {
				return nil, fmt.Errorf("%w: 0x%02X", ErrRunningStatus, status)
			}
			status = runningStatus
		}

		var size int
		switch status & 0xF0 {
		case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
			size = 2
		case 0xC0, 0xD0:
			size = 1
		default:
			return nil, fmt.Errorf("%w: 0x%02X", ErrStatus, status)
		}
		if pos+size > len(data) {
			return nil, fmt.Errorf("channel message: %w", ErrUnexpectedEOF)
		}

		ch := status & 0x0F
		var msg Message
		switch status & 0xF0 {
		case 0x80:
			msg = NoteOff{Channel: ch, Key: data[pos], Velocity: data[pos+1]}
		case 0x90:
			msg = NoteOn{Channel: ch, Key: data[pos], Velocity: data[pos+1]}
		case 0xA0:
			msg = PolyPressure{Channel: ch, Key: data[pos], Pressure: data[pos+1]}
		case 0xB0:
			msg = ControlChange{Channel: ch, Controller: data[pos], Value: data[pos+1]}
		case 0xC0:
			msg = ProgramChange{Channel: ch, Program: data[pos]}
		case 0xD0:
			msg = ChannelPressure{Channel: ch, Pressure: data[pos]}
		case 0xE0:
			msg = PitchBend{Channel: ch, Value: uint16(data[pos]) | uint16(data[pos+1])<<7}
		}
		pos += size
		track.AddEvent(Event{Tick: tick, Message: msg})
	}
	return track, nil
}

// Bytes serializes the file. Tracks are encoded from sorted copies in
// absolute time, without running status compression. Call Finalize
// first if the end-of-track markers are not in place yet.
func (f *File) Bytes() ([]byte, error) {
	data := make([]byte, 0, 14)
	data = append(data, "MThd"...)
	data = binary.BigEndian.AppendUint32(data, 6)
	data = binary.BigEndian.AppendUint16(data, uint16(f.Format))
	data = binary.BigEndian.AppendUint16(data, uint16(len(f.Tracks)))
	data = binary.BigEndian.AppendUint16(data, f.TicksPerQuarter)
	for i, t := range f.Tracks {
		body, err := encodeTrack(t)
		if err != nil {
			return nil, fmt.Errorf("encode track %d: %w", i, err)
		}
		data = append(data, "MTrk"...)
		data = binary.BigEndian.AppendUint32(data, uint32(len(body)))
		data = append(data, body...)
	}
	return data, nil
}

// Write serializes the file to w.
func (f *File) Write(w io.Writer) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("could not write: %v", err)
	}
	return nil
}

// WriteFile serializes the file to the named path.
func (f *File) WriteFile(name string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("could not write %v: %v", name, err)
	}
	return nil
}

// sortedEvents returns a sorted copy of the track's events, leaving the
// track itself untouched.
func sortedEvents(t *Track) []Event {
	events := slices.Clone(t.Events)
	for i := range events {
		events[i].seq = uint32(i)
	}
	slices.SortFunc(events, compareEvents)
	return events
}

func encodeTrack(t *Track) ([]byte, error) {
	events := sortedEvents(t)
	var data []byte
	var prev uint64
	for i := range events {
		delta := events[i].Tick - prev
		if delta > maxVarLen {
			return nil, fmt.Errorf("%w: delta %d", ErrVarLen, delta)
		}
		data = appendVarLen(data, uint32(delta))
		prev = events[i].Tick

		// SysEx in a track chunk is length-prefixed; the count covers
		// the payload plus the terminating 0xF7.
		if sx, ok := events[i].Message.(SysEx); ok {
			data = append(data, 0xF0)
			data = appendVarLen(data, uint32(len(sx.Data)+1))
			data = append(data, sx.Data...)
			data = append(data, 0xF7)
			continue
		}
		data = events[i].Message.AppendBytes(data)
	}
	return data, nil
}

// MergeTracks combines all tracks into one sorted track and switches
// the format to SingleTrack. Each event keeps its source index in
// Track. Note links are dropped; relink after merging.
func (f *File) MergeTracks() {
	if len(f.Tracks) == 0 {
		return
	}
	merged := &Track{}
	for i, t := range f.Tracks {
		start := len(merged.Events)
		merged.Merge(t)
		for j := start; j < len(merged.Events); j++ {
			merged.Events[j].Track = i
		}
	}
	merged.Sort()
	f.Tracks = []*Track{merged}
	f.Format = SingleTrack
	f.timeMap = nil
}

// SplitTracksByChannel redistributes the first track into a leading
// meta track named "Tempo" plus one track per channel that has events,
// converting a single-track file to multi-track form. Any other tracks
// are discarded, as are system messages without a channel. Merge first
// when the file has more than one track.
func (f *File) SplitTracksByChannel() {
	if len(f.Tracks) == 0 {
		return
	}
	source := f.Tracks[0]
	tempo := &Track{Name: "Tempo"}
	var channels [16]*Track
	for i := range channels {
		channels[i] = &Track{}
	}
	for i := range source.Events {
		e := source.Events[i]
		e.ClearLinked()
		if _, ok := e.Message.(Meta); ok {
			tempo.AddEvent(e)
			continue
		}
		if ch, ok := e.Channel(); ok {
			channels[ch].AddEvent(e)
		}
	}

	tracks := []*Track{tempo}
	for ch, t := range channels {
		if len(t.Events) > 0 {
			t.Name = fmt.Sprintf("Channel %d", ch)
			tracks = append(tracks, t)
		}
	}
	for i, t := range tracks {
		for j := range t.Events {
			t.Events[j].Track = i
		}
	}
	f.Tracks = tracks
	f.Format = MultiTrack
	f.timeMap = nil
}

// LastTick returns the largest final tick across all tracks.
func (f *File) LastTick() uint64 {
	var last uint64
	for _, t := range f.Tracks {
		last = max(last, t.LastTick())
	}
	return last
}

// TimeMap returns the tick-to-seconds map for the file's tempo events,
// building and caching it on first use. Mutating methods on File drop
// the cache; after editing Tracks directly, call InvalidateTimeMap.
func (f *File) TimeMap() *TimeMap {
	if f.timeMap == nil {
		var changes []TempoChange
		for _, t := range f.Tracks {
			changes = append(changes, t.TempoChanges()...)
		}
		f.timeMap = newTimeMap(changes, f.TicksPerQuarter)
	}
	return f.timeMap
}

// InvalidateTimeMap drops the cached time map so the next use rebuilds
// it.
func (f *File) InvalidateTimeMap() {
	f.timeMap = nil
}

// TicksToSeconds converts a tick time to seconds under the file's tempo
// events.
func (f *File) TicksToSeconds(ticks uint64) float64 {
	return f.TimeMap().TicksToSeconds(ticks)
}

// SecondsToTicks converts seconds to a tick time under the file's tempo
// events.
func (f *File) SecondsToTicks(seconds float64) uint64 {
	return f.TimeMap().SecondsToTicks(seconds)
}

// Duration returns the length of the file in seconds.
func (f *File) Duration() float64 {
	return f.TicksToSeconds(f.LastTick())
}

// UpdateSeconds stamps every event with its wall-clock time. The time
// map is built once up front, so all tracks see the same tempo layout.
func (f *File) UpdateSeconds() {
	tm := f.TimeMap()
	for _, t := range f.Tracks {
		for i := range t.Events {
			t.Events[i].SetSeconds(tm.TicksToSeconds(t.Events[i].Tick))
		}
	}
}

// AddNote adds a linked note pair to the given track.
func (f *File) AddNote(track int, start, duration uint64, channel, key, velocity uint8) error {
	t, err := f.Track(track)
	if err != nil {
		return err
	}
	t.AddNote(start, duration, channel, key, velocity)
	f.timeMap = nil
	return nil
}

// AddTempo adds a tempo change in beats per minute to the given track.
func (f *File) AddTempo(track int, tick uint64, bpm float64) error {
	t, err := f.Track(track)
	if err != nil {
		return err
	}
	t.AddTempo(tick, bpm)
	f.timeMap = nil
	return nil
}

// AddTimeSignature adds a time signature to the given track.
func (f *File) AddTimeSignature(track int, tick uint64, numerator, denominator uint8) error {
	t, err := f.Track(track)
	if err != nil {
		return err
	}
	t.AddTimeSignature(tick, numerator, denominator)
	return nil
}

// AddKeySignature adds a key signature to the given track.
func (f *File) AddKeySignature(track int, tick uint64, sharpsFlats int8, minor bool) error {
	t, err := f.Track(track)
	if err != nil {
		return err
	}
	t.AddKeySignature(tick, sharpsFlats, minor)
	return nil
}

// Finalize gives every track an end-of-track marker if missing.
func (f *File) Finalize() {
	for _, t := range f.Tracks {
		t.EnsureEndOfTrack()
	}
}

// LinkNoteEvents links note pairs in every track.
func (f *File) LinkNoteEvents() {
	for _, t := range f.Tracks {
		t.LinkNoteEvents()
	}
}

// ForEachEvent walks all tracks in time order, interleaving them by
// tick with the usual tie-break so releases come before new notes.
// End-of-track markers are skipped. The walk runs over sorted copies,
// leaving the file untouched; each yielded event carries its source
// track index. Returning StopIteration from yield ends the walk without
// error.
func (f *File) ForEachEvent(yield func(e *Event) error) error {
	tracks := make([][]Event, len(f.Tracks))
	for i, t := range f.Tracks {
		tracks[i] = sortedEvents(t)
		for j := range tracks[i] {
			tracks[i][j].Track = i
		}
	}
	pos := make([]int, len(tracks))
	for {
		// Ties across tracks go to the lowest track index.
		earliest := -1
		for i := range tracks {
			if pos[i] >= len(tracks[i]) {
				continue
			}
			if earliest < 0 {
				earliest = i
				continue
			}
			a, b := tracks[i][pos[i]], tracks[earliest][pos[earliest]]
			if a.Tick < b.Tick ||
				a.Tick == b.Tick && messagePriority(a.Message) < messagePriority(b.Message) {
				earliest = i
			}
		}
		if earliest < 0 {
			return nil
		}
		e := &tracks[earliest][pos[earliest]]
		pos[earliest]++
		if m, ok := e.Message.(Meta); ok {
			if _, ok := m.Event.(EndOfTrack); ok {
				continue
			}
		}
		err := yield(e)
		if errors.Is(err, StopIteration) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
