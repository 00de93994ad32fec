package main

import (
	"fmt"
	"regexp"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Port name classes seen on ALSA: the through port and PipeWire
// plumbing are never playable instruments, USB ports usually are, and
// software synthesizers are a last resort.
var (
	badPortsRE       = regexp.MustCompile(`\bMidi Through\b|\bPipeWire-System\b|\bPipeWire-RT-Event\b`)
	usbPortsRE       = regexp.MustCompile(`\bUSB|\bUM-`)
	softSynthPortsRE = regexp.MustCompile(`\bFLUID\b|\bSynth\b|\bTiMidity\b`)
)

// findPort picks the output port to play on. A non-empty pattern
// restricts the choice to matching ports; otherwise any port not known
// to be useless qualifies. Among the candidates, USB ports win and
// software synthesizers lose.
func findPort(pattern string) (drivers.Out, error) {
	var candidates []drivers.Out
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile -port RE %v: %v", pattern, err)
		}
		for _, p := range midi.GetOutPorts() {
			if re.MatchString(p.String()) {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("no output port matches %v", pattern)
		}
	} else {
		for _, p := range midi.GetOutPorts() {
			if !badPortsRE.MatchString(p.String()) {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("no output port found")
		}
	}
	return slices.MinFunc(candidates, func(a, b drivers.Out) int {
		aUSB := usbPortsRE.MatchString(a.String())
		bUSB := usbPortsRE.MatchString(b.String())
		if aUSB != bUSB {
			if aUSB {
				return -1
			}
			return 1
		}
		aSoft := softSynthPortsRE.MatchString(a.String())
		bSoft := softSynthPortsRE.MatchString(b.String())
		if aSoft != bSoft {
			if aSoft {
				return 1
			}
			return -1
		}
		return a.Number() - b.Number()
	}), nil
}
