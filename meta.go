package midifile

import (
	"fmt"
	"math"
)

// Meta wraps a MetaEvent as a Message. Meta events occur only in files,
// never on a live wire.
type Meta struct {
	Event MetaEvent
}

// MetaEvent is the payload of a Meta message.
type MetaEvent interface {
	fmt.Stringer

	// MetaType returns the meta event type byte.
	MetaType() uint8

	appendData(dst []byte) []byte
	isMetaEvent()
}

// Meta event type bytes.
const (
	metaSequenceNumber    = 0x00
	metaText              = 0x01
	metaCopyright         = 0x02
	metaTrackName         = 0x03
	metaInstrumentName    = 0x04
	metaLyric             = 0x05
	metaMarker            = 0x06
	metaCuePoint          = 0x07
	metaProgramName       = 0x08
	metaDeviceName        = 0x09
	metaChannelPrefix     = 0x20
	metaMIDIPort          = 0x21
	metaEndOfTrack        = 0x2F
	metaTempo             = 0x51
	metaSMPTEOffset       = 0x54
	metaTimeSignature     = 0x58
	metaKeySignature      = 0x59
	metaSequencerSpecific = 0x7F
)

type (
	// SequenceNumber numbers a sequence or pattern.
	SequenceNumber uint16

	// The text family. Strings are stored as raw bytes, so arbitrary
	// payloads survive a rewrite unchanged.
	Text           string
	Copyright      string
	TrackName      string
	InstrumentName string
	Lyric          string
	Marker         string
	CuePoint       string
	ProgramName    string
	DeviceName     string

	// ChannelPrefix associates following meta events with a channel.
	ChannelPrefix uint8

	// MIDIPort is the obsolete port assignment event.
	MIDIPort uint8

	// EndOfTrack marks the end of a track chunk.
	EndOfTrack struct{}

	// Tempo is microseconds per quarter note.
	Tempo uint32

	// SMPTEOffset is the SMPTE start time of the track.
	SMPTEOffset struct {
		Hour     uint8
		Minute   uint8
		Second   uint8
		Frame    uint8
		SubFrame uint8
	}

	// TimeSignature holds the notated meter. DenomPower stores the
	// denominator as a power of two, as it appears on the wire.
	TimeSignature struct {
		Numerator               uint8
		DenomPower              uint8
		ClocksPerClick          uint8
		ThirtySecondsPerQuarter uint8
	}

	// KeySignature gives the key as a count of sharps (positive) or
	// flats (negative) and the mode.
	KeySignature struct {
		SharpsFlats int8
		Minor       bool
	}

	// SequencerSpecific is an opaque sequencer extension payload.
	SequencerSpecific []byte

	// Unknown preserves a meta event this package does not interpret,
	// including known types with malformed payloads.
	Unknown struct {
		Type uint8
		Data []byte
	}
)

// TempoFromBPM converts beats per minute to microseconds per quarter
// note, rounding to the nearest microsecond.
func TempoFromBPM(bpm float64) Tempo {
	return Tempo(math.Round(60e6 / bpm))
}

// BPM converts the tempo to beats per minute.
func (t Tempo) BPM() float64 {
	return 60e6 / float64(t)
}

// TimeSignatureFromRatio builds a TimeSignature from a notated meter
// such as 3/4 or 6/8. The denominator is rounded down to a power of
// two. Clocks per click and notated 32nds per quarter take their
// conventional values of 24 and 8.
func TimeSignatureFromRatio(numerator, denominator uint8) TimeSignature {
	var power uint8
	for d := denominator; d > 1; d >>= 1 {
		power++
	}
	return TimeSignature{
		Numerator:               numerator,
		DenomPower:              power,
		ClocksPerClick:          24,
		ThirtySecondsPerQuarter: 8,
	}
}

// Denominator returns the notated denominator, 2 to the DenomPower.
func (ts TimeSignature) Denominator() uint16 {
	return 1 << ts.DenomPower
}

// Mode returns "minor" or "major".
func (k KeySignature) Mode() string {
	if k.Minor {
		return "minor"
	}
	return "major"
}

func (v SequenceNumber) MetaType() uint8  { return metaSequenceNumber }
func (Text) MetaType() uint8              { return metaText }
func (Copyright) MetaType() uint8         { return metaCopyright }
func (TrackName) MetaType() uint8         { return metaTrackName }
func (InstrumentName) MetaType() uint8    { return metaInstrumentName }
func (Lyric) MetaType() uint8             { return metaLyric }
func (Marker) MetaType() uint8            { return metaMarker }
func (CuePoint) MetaType() uint8          { return metaCuePoint }
func (ProgramName) MetaType() uint8       { return metaProgramName }
func (DeviceName) MetaType() uint8        { return metaDeviceName }
func (ChannelPrefix) MetaType() uint8     { return metaChannelPrefix }
func (MIDIPort) MetaType() uint8          { return metaMIDIPort }
func (EndOfTrack) MetaType() uint8        { return metaEndOfTrack }
func (Tempo) MetaType() uint8             { return metaTempo }
func (SMPTEOffset) MetaType() uint8       { return metaSMPTEOffset }
func (TimeSignature) MetaType() uint8     { return metaTimeSignature }
func (KeySignature) MetaType() uint8      { return metaKeySignature }
func (SequencerSpecific) MetaType() uint8 { return metaSequencerSpecific }
func (u Unknown) MetaType() uint8         { return u.Type }

func (v SequenceNumber) appendData(dst []byte) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func (v Text) appendData(dst []byte) []byte           { return append(dst, v...) }
func (v Copyright) appendData(dst []byte) []byte      { return append(dst, v...) }
func (v TrackName) appendData(dst []byte) []byte      { return append(dst, v...) }
func (v InstrumentName) appendData(dst []byte) []byte { return append(dst, v...) }
func (v Lyric) appendData(dst []byte) []byte          { return append(dst, v...) }
func (v Marker) appendData(dst []byte) []byte         { return append(dst, v...) }
func (v CuePoint) appendData(dst []byte) []byte       { return append(dst, v...) }
func (v ProgramName) appendData(dst []byte) []byte    { return append(dst, v...) }
func (v DeviceName) appendData(dst []byte) []byte     { return append(dst, v...) }

func (v ChannelPrefix) appendData(dst []byte) []byte { return append(dst, byte(v)) }
func (v MIDIPort) appendData(dst []byte) []byte      { return append(dst, byte(v)) }
func (EndOfTrack) appendData(dst []byte) []byte      { return dst }

func (t Tempo) appendData(dst []byte) []byte {
	return append(dst, byte(t>>16), byte(t>>8), byte(t))
}

func (v SMPTEOffset) appendData(dst []byte) []byte {
	return append(dst, v.Hour, v.Minute, v.Second, v.Frame, v.SubFrame)
}

func (ts TimeSignature) appendData(dst []byte) []byte {
	return append(dst, ts.Numerator, ts.DenomPower, ts.ClocksPerClick, ts.ThirtySecondsPerQuarter)
}

func (k KeySignature) appendData(dst []byte) []byte {
	var minor byte
	if k.Minor {
		minor = 1
	}
	return append(dst, byte(k.SharpsFlats), minor)
}

func (v SequencerSpecific) appendData(dst []byte) []byte { return append(dst, v...) }
func (u Unknown) appendData(dst []byte) []byte           { return append(dst, u.Data...) }

func (v SequenceNumber) String() string { return fmt.Sprintf("SequenceNumber(%d)", uint16(v)) }
func (v Text) String() string           { return fmt.Sprintf("Text(%s)", string(v)) }
func (v Copyright) String() string      { return fmt.Sprintf("Copyright(%s)", string(v)) }
func (v TrackName) String() string      { return fmt.Sprintf("TrackName(%s)", string(v)) }
func (v InstrumentName) String() string { return fmt.Sprintf("InstrumentName(%s)", string(v)) }
func (v Lyric) String() string          { return fmt.Sprintf("Lyric(%s)", string(v)) }
func (v Marker) String() string         { return fmt.Sprintf("Marker(%s)", string(v)) }
func (v CuePoint) String() string       { return fmt.Sprintf("CuePoint(%s)", string(v)) }
func (v ProgramName) String() string    { return fmt.Sprintf("ProgramName(%s)", string(v)) }
func (v DeviceName) String() string     { return fmt.Sprintf("DeviceName(%s)", string(v)) }
func (v ChannelPrefix) String() string  { return fmt.Sprintf("ChannelPrefix(%d)", uint8(v)) }
func (v MIDIPort) String() string       { return fmt.Sprintf("MIDIPort(%d)", uint8(v)) }
func (EndOfTrack) String() string       { return "EndOfTrack" }

func (t Tempo) String() string {
	return fmt.Sprintf("Tempo(%.2f BPM)", t.BPM())
}

func (v SMPTEOffset) String() string {
	return fmt.Sprintf("SMPTEOffset(%02d:%02d:%02d frame %d.%d)",
		v.Hour, v.Minute, v.Second, v.Frame, v.SubFrame)
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("TimeSignature(%d/%d)", ts.Numerator, ts.Denominator())
}

func (k KeySignature) String() string {
	return fmt.Sprintf("KeySignature(%d %s)", k.SharpsFlats, k.Mode())
}

func (v SequencerSpecific) String() string {
	return fmt.Sprintf("SequencerSpecific(%d bytes)", len(v))
}

func (u Unknown) String() string {
	return fmt.Sprintf("Unknown(type=0x%02X, %d bytes)", u.Type, len(u.Data))
}

func (SequenceNumber) isMetaEvent()    {}
func (Text) isMetaEvent()              {}
func (Copyright) isMetaEvent()         {}
func (TrackName) isMetaEvent()         {}
func (InstrumentName) isMetaEvent()    {}
func (Lyric) isMetaEvent()             {}
func (Marker) isMetaEvent()            {}
func (CuePoint) isMetaEvent()          {}
func (ProgramName) isMetaEvent()       {}
func (DeviceName) isMetaEvent()        {}
func (ChannelPrefix) isMetaEvent()     {}
func (MIDIPort) isMetaEvent()          {}
func (EndOfTrack) isMetaEvent()        {}
func (Tempo) isMetaEvent()             {}
func (SMPTEOffset) isMetaEvent()       {}
func (TimeSignature) isMetaEvent()     {}
func (KeySignature) isMetaEvent()      {}
func (SequencerSpecific) isMetaEvent() {}
func (Unknown) isMetaEvent()           {}

func (m Meta) AppendBytes(dst []byte) []byte {
	payload := m.Event.appendData(nil)
	dst = append(dst, 0xFF, m.Event.MetaType())
	dst = appendVarLen(dst, uint32(len(payload)))
	return append(dst, payload...)
}

func (m Meta) String() string { return m.Event.String() }
func (Meta) isMessage()       {}

// DecodeMetaEvent decodes a meta event from b, which must begin at the
// type byte that follows the 0xFF status. It returns the event and the
// number of bytes consumed. Known types whose payload is too short come
// back as Unknown rather than failing, so nothing is lost on rewrite.
func DecodeMetaEvent(b []byte) (MetaEvent, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("decode meta event: %w", ErrUnexpectedEOF)
	}
	typ := b[0]
	length, n, err := readVarLen(b[1:])
	if err != nil {
		return nil, 0, fmt.Errorf("decode meta event: %w", err)
	}
	end := 1 + n + int(length)
	if end > len(b) {
		return nil, 0, fmt.Errorf("decode meta event: %w", ErrUnexpectedEOF)
	}
	return metaEventFromData(typ, b[1+n:end]), end, nil
}

func metaEventFromData(typ uint8, data []byte) MetaEvent {
	switch {
	case typ == metaSequenceNumber && len(data) >= 2:
		return SequenceNumber(uint16(data[0])<<8 | uint16(data[1]))
	case typ == metaText:
		return Text(data)
	case typ == metaCopyright:
		return Copyright(data)
	case typ == metaTrackName:
		return TrackName(data)
	case typ == metaInstrumentName:
		return InstrumentName(data)
	case typ == metaLyric:
		return Lyric(data)
	case typ == metaMarker:
		return Marker(data)
	case typ == metaCuePoint:
		return CuePoint(data)
	case typ == metaProgramName:
		return ProgramName(data)
	case typ == metaDeviceName:
		return DeviceName(data)
	case typ == metaChannelPrefix && len(data) >= 1:
		return ChannelPrefix(data[0])
	case typ == metaMIDIPort && len(data) >= 1:
		return MIDIPort(data[0])
	case typ == metaEndOfTrack:
		return EndOfTrack{}
	case typ == metaTempo && len(data) >= 3:
		return Tempo(uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]))
	case typ == metaSMPTEOffset && len(data) >= 5:
		return SMPTEOffset{
			Hour:     data[0],
			Minute:   data[1],
			Second:   data[2],
			Frame:    data[3],
			SubFrame: data[4],
		}
	case typ == metaTimeSignature && len(data) >= 4:
		return TimeSignature{
			Numerator:               data[0],
			DenomPower:              data[1],
			ClocksPerClick:          data[2],
			ThirtySecondsPerQuarter: data[3],
		}
	case typ == metaKeySignature && len(data) >= 2:
		return KeySignature{SharpsFlats: int8(data[0]), Minor: data[1] != 0}
	case typ == metaSequencerSpecific:
		return SequencerSpecific(append([]byte(nil), data...))
	}
	return Unknown{Type: typ, Data: append([]byte(nil), data...)}
}
