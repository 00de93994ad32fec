package main

import (
	"errors"
	"flag"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/seqview/midifile"
	"github.com/seqview/midifile/internal/logutil"
	"github.com/seqview/midifile/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (SMF)")
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
		zap.Stringer("format", f.Format),
		zap.Int("tracks", len(f.Tracks)))

	p := tea.NewProgram(newModel(*i, f), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run UI: %v", err)
	}
	return nil
}

func main() {
	flag.Parse()
	logger := logutil.New(*verbose)
	defer logger.Sync()
	if err := Main(logger); err != nil {
		logger.Fatal("scope failed", zap.Error(err))
	}
}
