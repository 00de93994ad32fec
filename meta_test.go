package midifile

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestMetaEncodeDecode(t *testing.T) {
	cases := []struct {
		ev   MetaEvent
		want []byte
	}{
		{SequenceNumber(0x0102), []byte{0xFF, 0x00, 0x02, 0x01, 0x02}},
		{Text("hi"), []byte{0xFF, 0x01, 0x02, 'h', 'i'}},
		{Copyright("c"), []byte{0xFF, 0x02, 0x01, 'c'}},
		{TrackName("Piano"), []byte{0xFF, 0x03, 0x05, 'P', 'i', 'a', 'n', 'o'}},
		{InstrumentName("Flute"), []byte{0xFF, 0x04, 0x05, 'F', 'l', 'u', 't', 'e'}},
		{Lyric("la"), []byte{0xFF, 0x05, 0x02, 'l', 'a'}},
		{Marker("A"), []byte{0xFF, 0x06, 0x01, 'A'}},
		{CuePoint("q"), []byte{0xFF, 0x07, 0x01, 'q'}},
		{ProgramName("p"), []byte{0xFF, 0x08, 0x01, 'p'}},
		{DeviceName("d"), []byte{0xFF, 0x09, 0x01, 'd'}},
		{ChannelPrefix(9), []byte{0xFF, 0x20, 0x01, 0x09}},
		{MIDIPort(2), []byte{0xFF, 0x21, 0x01, 0x02}},
		{EndOfTrack{}, []byte{0xFF, 0x2F, 0x00}},
		{Tempo(500000), []byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}},
		{SMPTEOffset{Hour: 1, Minute: 2, Second: 3, Frame: 4, SubFrame: 5}, []byte{0xFF, 0x54, 0x05, 1, 2, 3, 4, 5}},
		{TimeSignature{Numerator: 6, DenomPower: 3, ClocksPerClick: 24, ThirtySecondsPerQuarter: 8}, []byte{0xFF, 0x58, 0x04, 6, 3, 24, 8}},
		{KeySignature{SharpsFlats: -3, Minor: true}, []byte{0xFF, 0x59, 0x02, 0xFD, 0x01}},
		{KeySignature{SharpsFlats: 2}, []byte{0xFF, 0x59, 0x02, 0x02, 0x00}},
		{SequencerSpecific([]byte{0x00, 0x42}), []byte{0xFF, 0x7F, 0x02, 0x00, 0x42}},
		{Unknown{Type: 0x60, Data: []byte{1, 2, 3}}, []byte{0xFF, 0x60, 0x03, 1, 2, 3}},
	}
	for _, c := range cases {
		got := Meta{Event: c.ev}.AppendBytes(nil)
		if !bytes.Equal(got, c.want) {
			t.Errorf("%v encoded to %v, want %v", c.ev, got, c.want)
			continue
		}
		ev, n, err := DecodeMetaEvent(got[1:])
		if err != nil {
			t.Errorf("DecodeMetaEvent(%v): %v", got[1:], err)
			continue
		}
		if n != len(got)-1 {
			t.Errorf("DecodeMetaEvent(%v) consumed %d bytes, want %d", got[1:], n, len(got)-1)
		}
		if !reflect.DeepEqual(ev, c.ev) {
			t.Errorf("DecodeMetaEvent(%v) = %#v, want %#v", got[1:], ev, c.ev)
		}
	}
}

func TestMetaShortPayloadBecomesUnknown(t *testing.T) {
	// A tempo event needs 3 payload bytes; with fewer, the event is kept
	// as Unknown so the bytes survive a rewrite.
	ev, n, err := DecodeMetaEvent([]byte{0x51, 0x02, 0x07, 0xA1})
	if err != nil {
		t.Fatalf("DecodeMetaEvent: %v", err)
	}
	if n != 4 {
		t.Errorf("consumed %d bytes, want 4", n)
	}
	want := Unknown{Type: 0x51, Data: []byte{0x07, 0xA1}}
	if !reflect.DeepEqual(ev, want) {
		t.Errorf("DecodeMetaEvent = %#v, want %#v", ev, want)
	}
	if got := (Meta{Event: ev}).AppendBytes(nil); !bytes.Equal(got, []byte{0xFF, 0x51, 0x02, 0x07, 0xA1}) {
		t.Errorf("re-encode = %v", got)
	}
}

func TestMetaDecodeErrors(t *testing.T) {
	if _, _, err := DecodeMetaEvent(nil); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("empty err = %v, want ErrUnexpectedEOF", err)
	}
	// Declared length runs past the end of the data.
	if _, _, err := DecodeMetaEvent([]byte{0x51, 0x03, 0x07}); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("overrun err = %v, want ErrUnexpectedEOF", err)
	}
	// Length itself is a truncated varlen.
	if _, _, err := DecodeMetaEvent([]byte{0x51, 0x81}); !errors.Is(err, ErrVarLen) {
		t.Errorf("varlen err = %v, want ErrVarLen", err)
	}
}

func TestTempoBPM(t *testing.T) {
	if got := TempoFromBPM(120); got != 500000 {
		t.Errorf("TempoFromBPM(120) = %d, want 500000", got)
	}
	if got := TempoFromBPM(90); got != 666667 {
		t.Errorf("TempoFromBPM(90) = %d, want 666667", got)
	}
	if got := Tempo(500000).BPM(); got != 120 {
		t.Errorf("BPM() = %v, want 120", got)
	}
}

func TestTimeSignatureFromRatio(t *testing.T) {
	cases := []struct {
		num, denom uint8
		wantPower  uint8
	}{
		{4, 4, 2},
		{3, 4, 2},
		{6, 8, 3},
		{2, 2, 1},
		{4, 1, 0},
	}
	for _, c := range cases {
		ts := TimeSignatureFromRatio(c.num, c.denom)
		if ts.DenomPower != c.wantPower {
			t.Errorf("TimeSignatureFromRatio(%d, %d).DenomPower = %d, want %d", c.num, c.denom, ts.DenomPower, c.wantPower)
		}
		if ts.Denominator() != uint16(c.denom) {
			t.Errorf("Denominator() = %d, want %d", ts.Denominator(), c.denom)
		}
		if ts.ClocksPerClick != 24 || ts.ThirtySecondsPerQuarter != 8 {
			t.Errorf("conventional fields = %d, %d, want 24, 8", ts.ClocksPerClick, ts.ThirtySecondsPerQuarter)
		}
	}
}

func TestMetaStrings(t *testing.T) {
	cases := []struct {
		ev   MetaEvent
		want string
	}{
		{Tempo(500000), "Tempo(120.00 BPM)"},
		{TimeSignature{Numerator: 3, DenomPower: 2}, "TimeSignature(3/4)"},
		{KeySignature{SharpsFlats: 2}, "KeySignature(2 major)"},
		{KeySignature{SharpsFlats: -1, Minor: true}, "KeySignature(-1 minor)"},
		{TrackName("Lead"), "TrackName(Lead)"},
		{EndOfTrack{}, "EndOfTrack"},
	}
	for _, c := range cases {
		if got := c.ev.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
