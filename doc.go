// Package midifile reads, writes, builds and transforms Standard MIDI Files.
//
// The package models a MIDI file as a File holding Tracks of tick-stamped
// Events. Events carry immutable Messages (channel voice, system or meta).
// Parsing and serialization are bulk and deterministic: a File either decodes
// completely or the parse fails with an error, never returning a partial
// document. A TimeMap derived from the tempo events of all tracks converts
// between ticks and real seconds.
//
// Nothing in this package is safe for concurrent mutation; callers that share
// a File or Track across goroutines must lock around it.
package midifile
