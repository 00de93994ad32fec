package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/seqview/midifile"
	"github.com/seqview/midifile/internal/logutil"
	"github.com/seqview/midifile/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (SMF)")
	o           = flag.String("o", "", "output file name (SMF)")
	optionsFile = flag.String("options", "", "options file name (YAML)")
	verbose     = flag.Bool("v", false, "verbose logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

// Options select the transformations to apply. They run in a fixed
// order: merge, split_channels, force_bpm, tempo_scale, rename_tracks,
// format, finalize.
type Options struct {
	// Merge combines all tracks into one and switches to format 0.
	Merge bool `yaml:"merge"`

	// SplitChannels splits channel events into one track per channel
	// and switches to format 1.
	SplitChannels bool `yaml:"split_channels"`

	// ForceBPM discards all tempo events and sets a single tempo.
	ForceBPM float64 `yaml:"force_bpm"`

	// TempoScale multiplies every tempo by the factor; 2 doubles the
	// playback speed.
	TempoScale float64 `yaml:"tempo_scale"`

	// RenameTracks maps track indices to new names.
	RenameTracks map[int]string `yaml:"rename_tracks"`

	// Format overrides the container format word.
	Format *int `yaml:"format"`

	// Finalize terminates every track with an end of track event.
	Finalize bool `yaml:"finalize"`
}

func ReadOptions(name string) (*Options, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %v", name, err)
	}
	defer f.Close()
	var options Options
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&options); err != nil {
		return nil, fmt.Errorf("could not decode %v: %v", name, err)
	}
	return &options, nil
}

func Main(logger *zap.Logger) error {
	if *showVersion {
		fmt.Println(version.String())
		return nil
	}
	if *i == "" || *o == "" {
		return errors.New("need -i and -o")
	}

	options := &Options{}
	if *optionsFile != "" {
		var err error
		options, err = ReadOptions(*optionsFile)
		if err != nil {
			return fmt.Errorf("failed to read options: %v", err)
		}
	}

	f, err := midifile.ReadFile(*i)
	if err != nil {
		return fmt.Errorf("failed to read %v: %v", *i, err)
	}
	logger.Debug("parsed",
		zap.String("file", *i),
		zap.Stringer("format", f.Format),
		zap.Int("tracks", len(f.Tracks)))

	if err := apply(f, options, logger); err != nil {
		return err
	}

	if err := f.WriteFile(*o); err != nil {
		return fmt.Errorf("failed to write %v: %v", *o, err)
	}
	logger.Info("wrote", zap.String("file", *o), zap.Int("tracks", len(f.Tracks)))
	return nil
}

func apply(f *midifile.File, options *Options, logger *zap.Logger) error {
	if options.Merge {
		f.MergeTracks()
		f.LinkNoteEvents()
		logger.Info("merged tracks")
	}
	if options.SplitChannels {
		f.SplitTracksByChannel()
		logger.Info("split tracks by channel", zap.Int("tracks", len(f.Tracks)))
	}
	if options.ForceBPM != 0 {
		if options.ForceBPM < 0 {
			return fmt.Errorf("force_bpm must be positive, got %v", options.ForceBPM)
		}
		forceTempo(f, options.ForceBPM)
		logger.Info("forced tempo", zap.Float64("bpm", options.ForceBPM))
	}
	if options.TempoScale != 0 {
		if options.TempoScale < 0 {
			return fmt.Errorf("tempo_scale must be positive, got %v", options.TempoScale)
		}
		scaleTempo(f, options.TempoScale)
		logger.Info("scaled tempo", zap.Float64("factor", options.TempoScale))
	}
	for n, name := range options.RenameTracks {
		t, err := f.Track(n)
		if err != nil {
			return fmt.Errorf("cannot rename track %d: %v", n, err)
		}
		renameTrack(t, name)
		logger.Info("renamed track", zap.Int("track", n), zap.String("name", name))
	}
	if options.Format != nil {
		format := midifile.Format(*options.Format)
		switch format {
		case midifile.SingleTrack, midifile.MultiTrack, midifile.MultiSequence:
		default:
			return fmt.Errorf("unsupported format %d", *options.Format)
		}
		if format == midifile.SingleTrack && len(f.Tracks) > 1 {
			return fmt.Errorf("format 0 allows one track, file has %d", len(f.Tracks))
		}
		f.Format = format
		logger.Info("set format", zap.Stringer("format", format))
	}
	if options.Finalize {
		f.Finalize()
		logger.Info("finalized tracks")
	}
	return nil
}

// forceTempo removes every tempo event and sets a single tempo at the
// start of the first track.
func forceTempo(f *midifile.File, bpm float64) {
	for _, t := range f.Tracks {
		kept := t.Events[:0]
		for _, e := range t.Events {
			if m, ok := e.Message.(midifile.Meta); ok {
				if _, ok := m.Event.(midifile.Tempo); ok {
					continue
				}
			}
			kept = append(kept, e)
		}
		t.Events = kept
		// Removal shifts indices, so note links must be rebuilt.
		t.LinkNoteEvents()
	}
	if len(f.Tracks) == 0 {
		f.AddTrack()
	}
	f.Tracks[0].AddTempo(0, bpm)
	f.InvalidateTimeMap()
}

// scaleTempo multiplies every tempo by factor, keeping tick positions.
func scaleTempo(f *midifile.File, factor float64) {
	for _, t := range f.Tracks {
		for j := range t.Events {
			m, ok := t.Events[j].Message.(midifile.Meta)
			if !ok {
				continue
			}
			tempo, ok := m.Event.(midifile.Tempo)
			if !ok {
				continue
			}
			t.Events[j].Message = midifile.Meta{
				Event: midifile.TempoFromBPM(tempo.BPM() * factor),
			}
		}
	}
	f.InvalidateTimeMap()
}

// renameTrack sets the in-memory name and the serialized track name
// meta event, inserting one at tick 0 when the track has none.
func renameTrack(t *midifile.Track, name string) {
	t.Name = name
	for j := range t.Events {
		m, ok := t.Events[j].Message.(midifile.Meta)
		if !ok {
			continue
		}
		if _, ok := m.Event.(midifile.TrackName); ok {
			t.Events[j].Message = midifile.Meta{Event: midifile.TrackName(name)}
			return
		}
	}
	t.InsertEvent(0, midifile.Event{Message: midifile.Meta{Event: midifile.TrackName(name)}})
	t.LinkNoteEvents()
}

func main() {
	flag.Parse()
	logger := logutil.New(*verbose)
	defer logger.Sync()
	if err := Main(logger); err != nil {
		logger.Fatal("convert failed", zap.Error(err))
	}
}
