package score

import (
	"gopkg.in/music-theory.v0/key"

	"github.com/seqview/midifile"
)

// Root names along the circle of fifths, indexed by sharps/flats count
// offset by 7. Major and minor modes have different roots for the same
// signature.
var (
	majorRoots = [15]string{"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#"}
	minorRoots = [15]string{"Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#"}
)

// KeyName renders a key signature as root plus mode, such as "F# minor"
// for three sharps minor. Counts beyond seven sharps or flats clamp to
// the table edge.
func KeyName(ks midifile.KeySignature) string {
	i := int(ks.SharpsFlats) + 7
	if i < 0 {
		i = 0
	}
	if i >= len(majorRoots) {
		i = len(majorRoots) - 1
	}
	root := majorRoots[i]
	if ks.Minor {
		root = minorRoots[i]
	}
	return root + " " + ks.Mode()
}

// TheoryKey adapts a key signature to the music-theory key model.
func TheoryKey(ks midifile.KeySignature) key.Key {
	return key.Of(KeyName(ks))
}
