package score

import (
	"cmp"
	"math/big"
	"slices"

	"github.com/seqview/midifile"
)

// MidiToScore converts a file back into the score model. Only pitched
// notes survive: controller data, pitch bends and system messages are
// dropped, and measures are cut at a fixed four quarters regardless of
// the file's time signature.
type MidiToScore struct{}

// Convert reads the global tempo and signatures from the first track,
// then builds one part per remaining track (per track, in multi-track
// files with more than one). The file's note pairs are relinked first;
// notes without a release are dropped.
func (MidiToScore) Convert(f *midifile.File) *Score {
	f.LinkNoteEvents()

	tpq := f.TicksPerQuarter
	if tpq == 0 {
		tpq = 480
	}
	s := &Score{}
	if len(f.Tracks) > 0 {
		for i := range f.Tracks[0].Events {
			m, ok := f.Tracks[0].Events[i].Message.(midifile.Meta)
			if !ok {
				continue
			}
			switch ev := m.Event.(type) {
			case midifile.Tempo:
				s.Tempo = ev.BPM()
			case midifile.TimeSignature:
				ts := ev
				s.TimeSig = &ts
			case midifile.KeySignature:
				ks := ev
				s.Key = &ks
			}
		}
	}

	start := 0
	if f.Format == midifile.MultiTrack && len(f.Tracks) > 1 {
		start = 1
	}
	for _, t := range f.Tracks[start:] {
		s.Parts = append(s.Parts, convertTrack(t, tpq))
	}
	return s
}

type notePair struct {
	start, duration uint64
	key, velocity   uint8
}

func convertTrack(t *midifile.Track, tpq uint16) Part {
	part := Part{Name: t.Name}

	var notes []notePair
	for i := range t.Events {
		e := &t.Events[i]
		if pc, ok := e.Message.(midifile.ProgramChange); ok && part.Program == nil {
			program := pc.Program
			part.Program = &program
			continue
		}
		if !midifile.IsNoteOn(e.Message) {
			continue
		}
		duration, ok := e.TickDuration(t.Events)
		if !ok {
			continue
		}
		key, _ := e.Key()
		velocity, _ := e.Velocity()
		notes = append(notes, notePair{start: e.Tick, duration: duration, key: key, velocity: velocity})
	}
	slices.SortStableFunc(notes, func(a, b notePair) int {
		return cmp.Compare(a.start, b.start)
	})

	ticksPerMeasure := QuartersPerMeasure * uint64(tpq)
	var measure Measure
	var measureStart uint64
	for _, n := range notes {
		for n.start >= measureStart+ticksPerMeasure {
			part.Measures = append(part.Measures, measure)
			measure = Measure{}
			measureStart += ticksPerMeasure
		}
		measure.AddNote(
			big.NewRat(int64(n.start-measureStart), int64(tpq)),
			big.NewRat(int64(n.duration), int64(tpq)),
			n.key, n.velocity,
		)
	}
	part.Measures = append(part.Measures, measure)
	return part
}
