package midifile

import (
	"cmp"
	"slices"
)

// defaultTempo is 120 BPM in microseconds per quarter note, the tempo
// in effect wherever a file does not say otherwise.
const defaultTempo = 500000

// TimeMap converts between ticks and wall-clock seconds. It is built
// from the tempo events of a file and holds one breakpoint per tempo
// change with the accumulated seconds up to that point, so conversions
// are a lookup plus linear interpolation within the tempo segment.
//
// A TimeMap is a snapshot. File.TimeMap caches one and drops it when a
// mutation could change the tempo layout.
type TimeMap struct {
	points          []tempoPoint
	ticksPerQuarter uint16
}

type tempoPoint struct {
	tick             uint64
	seconds          float64
	microsPerQuarter uint32
}

// newTimeMap builds a map from tempo changes, which need not be sorted.
// Zero tempos are skipped. Without any usable change the map holds a
// single 120 BPM point at tick 0.
func newTimeMap(changes []TempoChange, ticksPerQuarter uint16) *TimeMap {
	changes = slices.Clone(changes)
	changes = slices.DeleteFunc(changes, func(c TempoChange) bool {
		return c.MicrosPerQuarter == 0
	})
	slices.SortStableFunc(changes, func(a, b TempoChange) int {
		return cmp.Compare(a.Tick, b.Tick)
	})
	if len(changes) == 0 {
		changes = []TempoChange{{Tick: 0, MicrosPerQuarter: defaultTempo}}
	}

	m := &TimeMap{
		points:          make([]tempoPoint, 0, len(changes)),
		ticksPerQuarter: ticksPerQuarter,
	}
	var seconds float64
	var prevTick uint64
	prevTempo := uint32(defaultTempo)
	for _, c := range changes {
		seconds += float64(c.Tick-prevTick) * secondsPerTick(prevTempo, ticksPerQuarter)
		m.points = append(m.points, tempoPoint{
			tick:             c.Tick,
			seconds:          seconds,
			microsPerQuarter: c.MicrosPerQuarter,
		})
		prevTick = c.Tick
		prevTempo = c.MicrosPerQuarter
	}
	return m
}

func secondsPerTick(microsPerQuarter uint32, ticksPerQuarter uint16) float64 {
	return float64(microsPerQuarter) / 1e6 / float64(ticksPerQuarter)
}

// TicksToSeconds converts a tick time to seconds.
func (m *TimeMap) TicksToSeconds(ticks uint64) float64 {
	base := tempoPoint{microsPerQuarter: defaultTempo}
	for _, p := range m.points {
		if p.tick > ticks {
			break
		}
		base = p
	}
	return base.seconds + float64(ticks-base.tick)*secondsPerTick(base.microsPerQuarter, m.ticksPerQuarter)
}

// SecondsToTicks converts seconds to a tick time, truncating to a whole
// tick. Negative times clamp to tick 0.
func (m *TimeMap) SecondsToTicks(seconds float64) uint64 {
	base := tempoPoint{microsPerQuarter: defaultTempo}
	for _, p := range m.points {
		if p.seconds > seconds {
			break
		}
		base = p
	}
	if seconds <= base.seconds {
		return base.tick
	}
	ticksPerSecond := float64(m.ticksPerQuarter) * 1e6 / float64(base.microsPerQuarter)
	return base.tick + uint64((seconds-base.seconds)*ticksPerSecond)
}

// TempoAt returns the microseconds per quarter note in effect at the
// given tick.
func (m *TimeMap) TempoAt(ticks uint64) uint32 {
	tempo := uint32(defaultTempo)
	for _, p := range m.points {
		if p.tick > ticks {
			break
		}
		tempo = p.microsPerQuarter
	}
	return tempo
}
