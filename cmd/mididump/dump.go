package main

import (
	"errors"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/seqview/midifile"
	"github.com/seqview/midifile/internal/logutil"
	"github.com/seqview/midifile/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (SMF)")
	listEvents  = flag.Bool("events", false, "list every event per track")
	listNotes   = flag.Bool("notes", false, "list paired notes with durations")
	showStats   = flag.Bool("stats", false, "print instrument usage statistics")
	verbose     = flag.Bool("v", false, "verbose logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func Main(logger *zap.Logger) error {
	if *showVersion {
		fmt.Println(version.String())
		return nil
	}
	if *i == "" {
		return errors.New("need -i with an input file")
	}

	f, err := midifile.ReadFile(*i)
	if err != nil {
		return fmt.Errorf("failed to read %v: %v", *i, err)
	}
	logger.Debug("parsed",
		zap.String("file", *i),
		zap.Stringer("format", f.Format),
		zap.Int("tracks", len(f.Tracks)))

	f.LinkNoteEvents()
	metrical := !f.SMPTETiming()
	if metrical {
		f.UpdateSeconds()
	} else {
		logger.Warn("SMPTE division, seconds and durations unavailable",
			zap.Uint16("division", f.TicksPerQuarter))
	}

	printHeader(f, metrical)
	for n, t := range f.Tracks {
		printTrack(f, n, t, metrical)
	}
	if *showStats {
		printStats(f)
	}
	return nil
}

func printHeader(f *midifile.File, metrical bool) {
	if !metrical {
		fmt.Printf("%s: %v, %d tracks, SMPTE division 0x%04X\n",
			*i, f.Format, len(f.Tracks), f.TicksPerQuarter)
		return
	}
	fmt.Printf("%s: %v, %d tracks, %d ticks per quarter, %.3fs\n",
		*i, f.Format, len(f.Tracks), f.TicksPerQuarter, f.Duration())
}

func printTrack(f *midifile.File, n int, t *midifile.Track, metrical bool) {
	name := t.Name
	if name == "" {
		name = "(unnamed)"
	}
	if metrical {
		fmt.Printf("track %d %s: %d events, last tick %d, %.3fs\n",
			n, name, len(t.Events), t.LastTick(), f.TicksToSeconds(t.LastTick()))
	} else {
		fmt.Printf("track %d %s: %d events, last tick %d\n",
			n, name, len(t.Events), t.LastTick())
	}
	if *listEvents {
		for _, e := range t.Events {
			if sec, ok := e.Seconds(); ok {
				fmt.Printf("  %10d %9.3fs  %v\n", e.Tick, sec, e.Message)
			} else {
				fmt.Printf("  %10d            %v\n", e.Tick, e.Message)
			}
		}
	}
	if *listNotes {
		t.ForEachNoteOn(func(j int, e *midifile.Event) error {
			ch, _ := e.Channel()
			key, _ := e.Key()
			vel, _ := e.Velocity()
			ticks, ok := e.TickDuration(t.Events)
			if !ok {
				fmt.Printf("  note ch=%d key=%d vel=%d at %d: unpaired\n",
					ch, key, vel, e.Tick)
				return nil
			}
			if sec, ok := e.SecondsDuration(t.Events); ok {
				fmt.Printf("  note ch=%d key=%d vel=%d at %d: %d ticks (%.3fs)\n",
					ch, key, vel, e.Tick, ticks, sec)
			} else {
				fmt.Printf("  note ch=%d key=%d vel=%d at %d: %d ticks\n",
					ch, key, vel, e.Tick, ticks)
			}
			return nil
		})
	}
}

// printStats counts sounded notes per General MIDI program. Each track
// keeps its own channel-to-program assignment, and channel 10 counts as
// percussion regardless of program.
func printStats(f *midifile.File) {
	var noteCounts [128]uint64
	var percussion uint64
	for _, t := range f.Tracks {
		var programs [16]uint8
		for _, e := range t.Events {
			switch m := e.Message.(type) {
			case midifile.ProgramChange:
				programs[m.Channel&0x0F] = m.Program
			case midifile.NoteOn:
				if m.Velocity == 0 {
					continue
				}
				if m.Channel&0x0F == 9 {
					percussion++
					continue
				}
				noteCounts[programs[m.Channel&0x0F]]++
			}
		}
	}
	for p, count := range noteCounts {
		if count == 0 {
			continue
		}
		fmt.Printf("program %3d %s: %d notes\n",
			p, midifile.GMInstrumentName(uint8(p)), count)
	}
	if percussion > 0 {
		fmt.Printf("percussion (channel 10): %d notes\n", percussion)
	}
}

func main() {
	flag.Parse()
	logger := logutil.New(*verbose)
	defer logger.Sync()
	if err := Main(logger); err != nil {
		logger.Fatal("dump failed", zap.Error(err))
	}
}
