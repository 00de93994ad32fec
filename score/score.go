// Package score bridges MIDI files and a simple notation-level score
// model: parts holding measures of notes with rational quarter-length
// offsets and durations. Measures are fixed at four quarters.
package score

import (
	"math/big"

	"github.com/seqview/midifile"
)

// QuartersPerMeasure is the fixed measure length of the model.
const QuartersPerMeasure = 4

// Score is a piece: global tempo and signatures plus one part per
// voice or instrument.
type Score struct {
	Parts []Part

	// Tempo is in beats per minute; zero means unset and converts as
	// 120.
	Tempo float64

	TimeSig *midifile.TimeSignature
	Key     *midifile.KeySignature
}

// Part is one voice: a name, an optional program, and its measures in
// order.
type Part struct {
	Name     string
	Program  *uint8
	Measures []Measure
}

// Measure holds the notes starting within one measure.
type Measure struct {
	Notes []Note
}

// Note is a single pitched note. Offset is in quarter lengths from the
// start of its measure, Duration in quarter lengths; both are exact
// rationals. A nil Offset or Duration counts as zero.
type Note struct {
	Offset   *big.Rat
	Duration *big.Rat
	Key      uint8
	Velocity uint8
}

// AddPart appends a part and returns a pointer to it.
func (s *Score) AddPart(name string) *Part {
	s.Parts = append(s.Parts, Part{Name: name})
	return &s.Parts[len(s.Parts)-1]
}

// AddMeasure appends an empty measure and returns a pointer to it.
func (p *Part) AddMeasure() *Measure {
	p.Measures = append(p.Measures, Measure{})
	return &p.Measures[len(p.Measures)-1]
}

// AddNote appends a note to the measure.
func (m *Measure) AddNote(offset, duration *big.Rat, key, velocity uint8) {
	m.Notes = append(m.Notes, Note{Offset: offset, Duration: duration, Key: key, Velocity: velocity})
}
