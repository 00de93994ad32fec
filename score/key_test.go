package score

import (
	"reflect"
	"testing"

	"gopkg.in/music-theory.v0/key"

	"github.com/seqview/midifile"
)

func TestKeyName(t *testing.T) {
	cases := []struct {
		sf    int8
		minor bool
		want  string
	}{
		{0, false, "C major"},
		{1, false, "G major"},
		{2, false, "D major"},
		{-1, false, "F major"},
		{-2, false, "Bb major"},
		{6, false, "F# major"},
		{7, false, "C# major"},
		{-7, false, "Cb major"},
		{0, true, "A minor"},
		{1, true, "E minor"},
		{3, true, "F# minor"},
		{-3, true, "C minor"},
		{-7, true, "Ab minor"},
		{7, true, "A# minor"},
	}
	for _, c := range cases {
		ks := midifile.KeySignature{SharpsFlats: c.sf, Minor: c.minor}
		if got := KeyName(ks); got != c.want {
			t.Errorf("KeyName(%d, %v) = %q, want %q", c.sf, c.minor, got, c.want)
		}
	}
}

func TestTheoryKey(t *testing.T) {
	got := TheoryKey(midifile.KeySignature{SharpsFlats: 2})
	want := key.Of("D major")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TheoryKey = %+v, want %+v", got, want)
	}

	got = TheoryKey(midifile.KeySignature{SharpsFlats: 0, Minor: true})
	want = key.Of("A minor")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TheoryKey = %+v, want %+v", got, want)
	}
}
