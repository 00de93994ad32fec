package midifile

import "fmt"

// Message is a single MIDI message: a channel voice message, a system
// message, or a meta event wrapped in Meta. The message types in this
// package form a closed set, so code that needs per-kind behavior can
// switch on the concrete type.
type Message interface {
	fmt.Stringer

	// AppendBytes appends the wire encoding of the message to dst and
	// returns the extended slice. Channels are masked to 4 bits and data
	// bytes to 7 bits on the way out.
	AppendBytes(dst []byte) []byte

	isMessage()
}

// PitchBendCenter is the 14-bit pitch bend value meaning no bend.
const PitchBendCenter = 0x2000

// Channel voice messages.
type (
	// NoteOff releases a key. A NoteOn with zero velocity means the same
	// thing on the wire; IsNoteOff treats both alike.
	NoteOff struct {
		Channel  uint8
		Key      uint8
		Velocity uint8
	}

	// NoteOn presses a key.
	NoteOn struct {
		Channel  uint8
		Key      uint8
		Velocity uint8
	}

	// PolyPressure is per-key aftertouch.
	PolyPressure struct {
		Channel  uint8
		Key      uint8
		Pressure uint8
	}

	// ControlChange sets a controller. The Controller* constants name
	// the common controller numbers.
	ControlChange struct {
		Channel    uint8
		Controller uint8
		Value      uint8
	}

	// ProgramChange selects an instrument program.
	ProgramChange struct {
		Channel uint8
		Program uint8
	}

	// ChannelPressure is channel-wide aftertouch.
	ChannelPressure struct {
		Channel  uint8
		Pressure uint8
	}

	// PitchBend carries a raw 14-bit bend value, PitchBendCenter meaning
	// no bend.
	PitchBend struct {
		Channel uint8
		Value   uint16
	}
)

// System messages.
type (
	// SysEx is a system exclusive payload without the 0xF0 introducer
	// and 0xF7 terminator.
	SysEx struct {
		Data []byte
	}

	// MTCQuarterFrame is a MIDI time code quarter frame.
	MTCQuarterFrame struct {
		Value uint8
	}

	// SongPosition is a 14-bit song position pointer.
	SongPosition struct {
		Value uint16
	}

	// SongSelect chooses a song or sequence.
	SongSelect struct {
		Value uint8
	}

	TuneRequest   struct{}
	TimingClock   struct{}
	Start         struct{}
	Continue      struct{}
	Stop          struct{}
	ActiveSensing struct{}
	SystemReset   struct{}
)

// PitchBendSigned builds a PitchBend from a signed offset in the range
// -8192..8191. Out-of-range offsets are clamped.
func PitchBendSigned(channel uint8, value int16) PitchBend {
	v := int32(value) + PitchBendCenter
	if v < 0 {
		v = 0
	} else if v > 0x3FFF {
		v = 0x3FFF
	}
	return PitchBend{Channel: channel, Value: uint16(v)}
}

// Signed reports the bend as an offset from PitchBendCenter.
func (m PitchBend) Signed() int16 {
	return int16(int32(m.Value&0x3FFF) - PitchBendCenter)
}

func (m NoteOff) AppendBytes(dst []byte) []byte {
	return append(dst, 0x80|m.Channel&0x0F, m.Key&0x7F, m.Velocity&0x7F)
}

func (m NoteOn) AppendBytes(dst []byte) []byte {
	return append(dst, 0x90|m.Channel&0x0F, m.Key&0x7F, m.Velocity&0x7F)
}

func (m PolyPressure) AppendBytes(dst []byte) []byte {
	return append(dst, 0xA0|m.Channel&0x0F, m.Key&0x7F, m.Pressure&0x7F)
}

func (m ControlChange) AppendBytes(dst []byte) []byte {
	return append(dst, 0xB0|m.Channel&0x0F, m.Controller&0x7F, m.Value&0x7F)
}

func (m ProgramChange) AppendBytes(dst []byte) []byte {
	return append(dst, 0xC0|m.Channel&0x0F, m.Program&0x7F)
}

func (m ChannelPressure) AppendBytes(dst []byte) []byte {
	return append(dst, 0xD0|m.Channel&0x0F, m.Pressure&0x7F)
}

func (m PitchBend) AppendBytes(dst []byte) []byte {
	return append(dst, 0xE0|m.Channel&0x0F, byte(m.Value&0x7F), byte(m.Value>>7&0x7F))
}

func (m SysEx) AppendBytes(dst []byte) []byte {
	dst = append(dst, 0xF0)
	dst = append(dst, m.Data...)
	return append(dst, 0xF7)
}

func (m MTCQuarterFrame) AppendBytes(dst []byte) []byte {
	return append(dst, 0xF1, m.Value&0x7F)
}

func (m SongPosition) AppendBytes(dst []byte) []byte {
	return append(dst, 0xF2, byte(m.Value&0x7F), byte(m.Value>>7&0x7F))
}

func (m SongSelect) AppendBytes(dst []byte) []byte {
	return append(dst, 0xF3, m.Value&0x7F)
}

func (TuneRequest) AppendBytes(dst []byte) []byte   { return append(dst, 0xF6) }
func (TimingClock) AppendBytes(dst []byte) []byte   { return append(dst, 0xF8) }
func (Start) AppendBytes(dst []byte) []byte         { return append(dst, 0xFA) }
func (Continue) AppendBytes(dst []byte) []byte      { return append(dst, 0xFB) }
func (Stop) AppendBytes(dst []byte) []byte          { return append(dst, 0xFC) }
func (ActiveSensing) AppendBytes(dst []byte) []byte { return append(dst, 0xFE) }
func (SystemReset) AppendBytes(dst []byte) []byte   { return append(dst, 0xFF) }

func (m NoteOff) String() string {
	return fmt.Sprintf("NoteOff(ch=%d key=%d vel=%d)", m.Channel, m.Key, m.Velocity)
}

func (m NoteOn) String() string {
	return fmt.Sprintf("NoteOn(ch=%d key=%d vel=%d)", m.Channel, m.Key, m.Velocity)
}

func (m PolyPressure) String() string {
	return fmt.Sprintf("PolyPressure(ch=%d key=%d val=%d)", m.Channel, m.Key, m.Pressure)
}

func (m ControlChange) String() string {
	return fmt.Sprintf("ControlChange(ch=%d cc=%d val=%d)", m.Channel, m.Controller, m.Value)
}

func (m ProgramChange) String() string {
	return fmt.Sprintf("ProgramChange(ch=%d prog=%d)", m.Channel, m.Program)
}

func (m ChannelPressure) String() string {
	return fmt.Sprintf("ChannelPressure(ch=%d val=%d)", m.Channel, m.Pressure)
}

func (m PitchBend) String() string {
	return fmt.Sprintf("PitchBend(ch=%d val=%d)", m.Channel, m.Signed())
}

func (m SysEx) String() string {
	return fmt.Sprintf("SysEx(%d bytes)", len(m.Data))
}

func (m MTCQuarterFrame) String() string { return fmt.Sprintf("MTCQuarterFrame(%d)", m.Value) }
func (m SongPosition) String() string    { return fmt.Sprintf("SongPosition(%d)", m.Value) }
func (m SongSelect) String() string      { return fmt.Sprintf("SongSelect(%d)", m.Value) }
func (TuneRequest) String() string       { return "TuneRequest" }
func (TimingClock) String() string       { return "TimingClock" }
func (Start) String() string             { return "Start" }
func (Continue) String() string          { return "Continue" }
func (Stop) String() string              { return "Stop" }
func (ActiveSensing) String() string     { return "ActiveSensing" }
func (SystemReset) String() string       { return "SystemReset" }

func (NoteOff) isMessage()         {}
func (NoteOn) isMessage()          {}
func (PolyPressure) isMessage()    {}
func (ControlChange) isMessage()   {}
func (ProgramChange) isMessage()   {}
func (ChannelPressure) isMessage() {}
func (PitchBend) isMessage()       {}
func (SysEx) isMessage()           {}
func (MTCQuarterFrame) isMessage() {}
func (SongPosition) isMessage()    {}
func (SongSelect) isMessage()      {}
func (TuneRequest) isMessage()     {}
func (TimingClock) isMessage()     {}
func (Start) isMessage()           {}
func (Continue) isMessage()        {}
func (Stop) isMessage()            {}
func (ActiveSensing) isMessage()   {}
func (SystemReset) isMessage()     {}

// DecodeMessage decodes one message from the start of b, which must
// begin at a status byte, and returns the number of bytes consumed.
// SysEx payloads run up to a 0xF7 terminator; the length-prefixed track
// form is handled by Parse instead. A lone 0xFF starts a meta event when
// a type byte follows, and is SystemReset otherwise.
func DecodeMessage(b []byte) (Message, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
	}
	status := b[0]
	if status < 0x80 {
		return nil, 0, fmt.Errorf("decode message: %w: 0x%02X", ErrStatus, status)
	}
	ch := status & 0x0F
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		if len(b) < 3 {
			return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
		}
	case 0xC0, 0xD0:
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
		}
	}
	switch status & 0xF0 {
	case 0x80:
		return NoteOff{Channel: ch, Key: b[1], Velocity: b[2]}, 3, nil
	case 0x90:
		return NoteOn{Channel: ch, Key: b[1], Velocity: b[2]}, 3, nil
	case 0xA0:
		return PolyPressure{Channel: ch, Key: b[1], Pressure: b[2]}, 3, nil
	case 0xB0:
		return ControlChange{Channel: ch, Controller: b[1], Value: b[2]}, 3, nil
	case 0xC0:
		return ProgramChange{Channel: ch, Program: b[1]}, 2, nil
	case 0xD0:
		return ChannelPressure{Channel: ch, Pressure: b[1]}, 2, nil
	case 0xE0:
		return PitchBend{Channel: ch, Value: uint16(b[1]) | uint16(b[2])<<7}, 3, nil
	}
	switch status {
	case 0xF0:
		for i := 1; i < len(b); i++ {
			if b[i] == 0xF7 {
				return SysEx{Data: append([]byte(nil), b[1:i]...)}, i + 1, nil
			}
		}
		return nil, 0, fmt.Errorf("decode sysex: %w: missing terminator", ErrUnexpectedEOF)
	case 0xF1:
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
		}
		return MTCQuarterFrame{Value: b[1]}, 2, nil
	case 0xF2:
		if len(b) < 3 {
			return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
		}
		return SongPosition{Value: uint16(b[1]) | uint16(b[2])<<7}, 3, nil
	case 0xF3:
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("decode message: %w", ErrUnexpectedEOF)
		}
		return SongSelect{Value: b[1]}, 2, nil
	case 0xF6:
		return TuneRequest{}, 1, nil
	case 0xF8:
		return TimingClock{}, 1, nil
	case 0xFA:
		return Start{}, 1, nil
	case 0xFB:
		return Continue{}, 1, nil
	case 0xFC:
		return Stop{}, 1, nil
	case 0xFE:
		return ActiveSensing{}, 1, nil
	case 0xFF:
		if len(b) >= 2 && b[1] < 0x80 {
			ev, n, err := DecodeMetaEvent(b[1:])
			if err != nil {
				return nil, 0, err
			}
			return Meta{Event: ev}, 1 + n, nil
		}
		return SystemReset{}, 1, nil
	}
	return nil, 0, fmt.Errorf("decode message: %w: 0x%02X", ErrStatus, status)
}

// IsNoteOn reports whether m starts a note, meaning a NoteOn with
// nonzero velocity.
func IsNoteOn(m Message) bool {
	v, ok := m.(NoteOn)
	return ok && v.Velocity > 0
}

// IsNoteOff reports whether m ends a note: a NoteOff, or a NoteOn with
// zero velocity.
func IsNoteOff(m Message) bool {
	switch v := m.(type) {
	case NoteOff:
		return true
	case NoteOn:
		return v.Velocity == 0
	}
	return false
}

// MessageChannel returns the channel of a channel voice message.
func MessageChannel(m Message) (uint8, bool) {
	switch v := m.(type) {
	case NoteOff:
		return v.Channel, true
	case NoteOn:
		return v.Channel, true
	case PolyPressure:
		return v.Channel, true
	case ControlChange:
		return v.Channel, true
	case ProgramChange:
		return v.Channel, true
	case ChannelPressure:
		return v.Channel, true
	case PitchBend:
		return v.Channel, true
	}
	return 0, false
}

// StatusByte returns the status byte m encodes with. Meta events share
// 0xFF with SystemReset.
func StatusByte(m Message) uint8 {
	switch v := m.(type) {
	case NoteOff:
		return 0x80 | v.Channel&0x0F
	case NoteOn:
		return 0x90 | v.Channel&0x0F
	case PolyPressure:
		return 0xA0 | v.Channel&0x0F
	case ControlChange:
		return 0xB0 | v.Channel&0x0F
	case ProgramChange:
		return 0xC0 | v.Channel&0x0F
	case ChannelPressure:
		return 0xD0 | v.Channel&0x0F
	case PitchBend:
		return 0xE0 | v.Channel&0x0F
	case SysEx:
		return 0xF0
	case MTCQuarterFrame:
		return 0xF1
	case SongPosition:
		return 0xF2
	case SongSelect:
		return 0xF3
	case TuneRequest:
		return 0xF6
	case TimingClock:
		return 0xF8
	case Start:
		return 0xFA
	case Continue:
		return 0xFB
	case Stop:
		return 0xFC
	case ActiveSensing:
		return 0xFE
	}
	return 0xFF
}
