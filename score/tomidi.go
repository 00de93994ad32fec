package score

import (
	"fmt"
	"math/big"

	"github.com/seqview/midifile"
)

// ScoreToMidi converts a score into a multi-track file: a leading meta
// track named "Tempo" carrying the global tempo and signatures, then
// one track per part.
type ScoreToMidi struct {
	// TicksPerQuarter of the produced file; zero means 480.
	TicksPerQuarter uint16
}

// Convert builds the file. Parts map to channels by index modulo 16, so
// channel identity is lost beyond sixteen parts. Offsets and durations
// convert via floor(quarters * ticks per quarter). All note pairs come
// back linked.
func (c ScoreToMidi) Convert(s *Score) *midifile.File {
	tpq := c.TicksPerQuarter
	if tpq == 0 {
		tpq = 480
	}
	f := midifile.NewWithFormat(midifile.MultiTrack, tpq)

	tempo := f.AddTrack()
	tempo.Name = "Tempo"
	tempo.AddEvent(midifile.Event{Message: midifile.Meta{Event: midifile.TrackName("Tempo")}})
	bpm := s.Tempo
	if bpm == 0 {
		bpm = 120
	}
	tempo.AddTempo(0, bpm)
	if s.TimeSig != nil {
		tempo.AddEvent(midifile.Event{Message: midifile.Meta{Event: *s.TimeSig}})
	}
	if s.Key != nil {
		tempo.AddEvent(midifile.Event{Message: midifile.Meta{Event: *s.Key}})
	}
	tempo.AddEndOfTrack()

	for i := range s.Parts {
		part := &s.Parts[i]
		name := part.Name
		if name == "" {
			name = fmt.Sprintf("Part %d", i+1)
		}
		t := f.AddTrack()
		t.Name = name
		t.AddEvent(midifile.Event{Message: midifile.Meta{Event: midifile.TrackName(name)}})

		channel := uint8(i % 16)
		if part.Program != nil {
			t.AddProgramChange(0, channel, *part.Program)
		}
		var measureStart uint64
		for _, m := range part.Measures {
			for _, n := range m.Notes {
				start := measureStart + quartersToTicks(n.Offset, tpq)
				t.AddNote(start, quartersToTicks(n.Duration, tpq), channel, n.Key, n.Velocity)
			}
			measureStart += QuartersPerMeasure * uint64(tpq)
		}
		t.AddEndOfTrack()
	}

	f.LinkNoteEvents()
	return f
}

// quartersToTicks converts a quarter-length rational to whole ticks,
// rounding down.
func quartersToTicks(r *big.Rat, tpq uint16) uint64 {
	if r == nil {
		return 0
	}
	ticks := new(big.Rat).Mul(r, new(big.Rat).SetInt64(int64(tpq)))
	return new(big.Int).Quo(ticks.Num(), ticks.Denom()).Uint64()
}
