package main

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	_ "gitlab.com/gomidi/midi/v2/drivers/webmididrv"
	"go.uber.org/zap"

	"github.com/seqview/midifile"
	"github.com/seqview/midifile/internal/logutil"
	"github.com/seqview/midifile/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (SMF)")
	port        = flag.String("port", "", "regular expression to match the preferred output port")
	list        = flag.Bool("list", false, "list output ports and exit")
	tempo       = flag.Float64("tempo", 1.0, "tempo factor, 2 plays twice as fast")
	verbose     = flag.Bool("v", false, "verbose logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

var errInterrupted = errors.New("interrupted")

var sigInt chan os.Signal

func sigSleep(d time.Duration) error {
	select {
	case <-sigInt:
		return errInterrupted
	case <-time.After(d):
		return nil
	}
}

// play sends the file's channel and system events to out in real time.
// Event ticks map to wall clock time through the tempo map, divided by
// the tempo factor.
func play(out drivers.Out, f *midifile.File, factor float64) error {
	tm := f.TimeMap()
	var prevT time.Duration
	prevNow := time.Now()
	return f.ForEachEvent(func(e *midifile.Event) error {
		if _, ok := e.Message.(midifile.Meta); ok {
			return nil
		}

		at := time.Duration(tm.TicksToSeconds(e.Tick) * float64(time.Second))
		deltaT := at - prevT
		prevT = at

		newNow := prevNow.Add(time.Duration(float64(deltaT) / factor))
		if wait := time.Until(newNow); wait > 0 {
			if err := sigSleep(wait); err != nil {
				return err
			}
		}
		prevNow = newNow

		return out.Send(e.Message.AppendBytes(nil))
	})
}

// silence releases every note the file ever starts. Best effort: send
// errors are ignored, the port may already be gone.
func silence(out drivers.Out, f *midifile.File) {
	type note struct{ channel, key uint8 }
	seen := map[note]bool{}
	f.ForEachEvent(func(e *midifile.Event) error {
		if midifile.IsNoteOn(e.Message) {
			channel, _ := e.Channel()
			key, _ := e.Key()
			seen[note{channel, key}] = true
		}
		return nil
	})
	notes := make([]note, 0, len(seen))
	for n := range seen {
		notes = append(notes, n)
	}
	slices.SortFunc(notes, func(a, b note) int {
		if c := cmp.Compare(a.channel, b.channel); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	for _, n := range notes {
		off := midifile.NoteOff{Channel: n.channel, Key: n.key}
		out.Send(off.AppendBytes(nil))
	}
}

func listPorts() {
	for _, p := range midi.GetOutPorts() {
		fmt.Printf("%d: %s\n", p.Number(), p.String())
	}
}

func Main(logger *zap.Logger) error {
	if *showVersion {
		fmt.Println(version.String())
		return nil
	}
	if *list {
		listPorts()
		return nil
	}
	if *i == "" {
		return errors.New("need -i with an input file")
	}
	if *tempo <= 0 {
		return fmt.Errorf("tempo factor must be positive, got %v", *tempo)
	}

	f, err := midifile.ReadFile(*i)
	if err != nil {
		return fmt.Errorf("failed to read %v: %v", *i, err)
	}
	if f.SMPTETiming() {
		return fmt.Errorf("cannot play %v: SMPTE division is not supported", *i)
	}

	out, err := findPort(*port)
	if err != nil {
		return fmt.Errorf("could not find MIDI port: %v", err)
	}
	logger.Info("picked output port",
		zap.Int("number", out.Number()),
		zap.String("name", out.String()))

	if err := out.Open(); err != nil {
		return fmt.Errorf("could not open MIDI port %v: %v", out, err)
	}
	defer out.Close()
	defer silence(out, f)

	sigInt = make(chan os.Signal, 1)
	signal.Notify(sigInt, os.Interrupt)

	logger.Info("playing",
		zap.String("file", *i),
		zap.Float64("seconds", f.Duration()),
		zap.Float64("factor", *tempo))
	return play(out, f, *tempo)
}

func main() {
	flag.Parse()
	logger := logutil.New(*verbose)
	defer logger.Sync()
	err := Main(logger)
	if errors.Is(err, errInterrupted) {
		logger.Info("interrupted")
		os.Exit(127)
	}
	if err != nil {
		logger.Fatal("play failed", zap.Error(err))
	}
}
