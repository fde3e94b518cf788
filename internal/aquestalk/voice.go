// Package aquestalk is the boundary to the AquesTalk speech synthesizer and the
// AqKanji2Koe converter.
//
// The vendor libraries are closed source. This package only resolves voice
// parameters, locates the conversion dictionary and drives an engine, either the
// vendor command-line tools (ExecEngine) or, when built with the aquestalk tag,
// the shared libraries through cgo (NativeEngine).
package aquestalk

import (
	"errors"
	"fmt"
	"strconv"
)

// Parameter names accepted by the synthesizer.
const (
	ParamType   = "type"
	ParamBase   = "bas"
	ParamSpeed  = "spd"
	ParamVolume = "vol"
	ParamPitch  = "pit"
	ParamAccent = "acc"
	ParamLmd    = "lmd"
	ParamFsc    = "fsc"
)

// ErrInvalidVoiceType is returned when the type parameter does not name a preset.
var ErrInvalidVoiceType = errors.New("invalid voice type")

// Voice mirrors the vendor's AQTK_VOICE structure.
type Voice struct {
	Base   int
	Speed  int
	Volume int
	Pitch  int
	Accent int
	Lmd    int
	Fsc    int
}

// Presets lists the built-in voices in the order selected by the type parameter.
var Presets = []struct {
	Name  string
	Voice Voice
}{
	{"F1", Voice{Base: 0, Speed: 100, Volume: 100, Pitch: 100, Accent: 100, Lmd: 100, Fsc: 100}},
	{"F2", Voice{Base: 1, Speed: 100, Volume: 100, Pitch: 77, Accent: 150, Lmd: 100, Fsc: 100}},
	{"F3", Voice{Base: 0, Speed: 80, Volume: 100, Pitch: 100, Accent: 100, Lmd: 61, Fsc: 148}},
	{"M1", Voice{Base: 2, Speed: 100, Volume: 100, Pitch: 30, Accent: 100, Lmd: 100, Fsc: 100}},
	{"M2", Voice{Base: 2, Speed: 105, Volume: 100, Pitch: 45, Accent: 130, Lmd: 120, Fsc: 100}},
	{"R1", Voice{Base: 2, Speed: 100, Volume: 100, Pitch: 30, Accent: 20, Lmd: 190, Fsc: 100}},
	{"R2", Voice{Base: 1, Speed: 70, Volume: 100, Pitch: 50, Accent: 50, Lmd: 50, Fsc: 180}},
}

// ResolveVoice picks the preset named by params["type"] (F1 when absent) and
// applies every non-negative override on top of it. Negative values keep the
// preset's setting.
func ResolveVoice(params map[string]int) (Voice, error) {
	voiceType := params[ParamType]
	if voiceType < 0 || voiceType >= len(Presets) {
		return Voice{}, fmt.Errorf("%w: %d", ErrInvalidVoiceType, voiceType)
	}

	voice := Presets[voiceType].Voice

	override := func(name string, field *int) {
		if value, ok := params[name]; ok && value >= 0 {
			*field = value
		}
	}

	override(ParamBase, &voice.Base)
	override(ParamSpeed, &voice.Speed)
	override(ParamVolume, &voice.Volume)
	override(ParamPitch, &voice.Pitch)
	override(ParamAccent, &voice.Accent)
	override(ParamLmd, &voice.Lmd)
	override(ParamFsc, &voice.Fsc)

	return voice, nil
}

// Args renders the voice as command-line flags for the synthesizer tool.
func (v Voice) Args() []string {
	return []string{
		"-" + ParamBase, strconv.Itoa(v.Base),
		"-" + ParamSpeed, strconv.Itoa(v.Speed),
		"-" + ParamVolume, strconv.Itoa(v.Volume),
		"-" + ParamPitch, strconv.Itoa(v.Pitch),
		"-" + ParamAccent, strconv.Itoa(v.Accent),
		"-" + ParamLmd, strconv.Itoa(v.Lmd),
		"-" + ParamFsc, strconv.Itoa(v.Fsc),
	}
}
