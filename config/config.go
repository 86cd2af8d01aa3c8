// Package config loads the TOML configuration file (SPEC_FULL.md §4.M)
// that controls unit conversion and presentation-only settings consumed
// by the report package. None of it feeds back into decoding semantics
// beyond the UnitPolicy it projects.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tgoetz/fitmonitor/decode"
)

// HRZone is one heart-rate training zone, named for display purposes
// only; the decoder and aggregator never consult these.
type HRZone struct {
	Name     string `toml:"name"`
	LowBPM   int    `toml:"low_bpm"`
	HighBPM  int    `toml:"high_bpm"`
}

// SleepWindow names the local clock hours a user considers their typical
// sleep period, used only by output writers that want to annotate
// monitoring samples falling inside it.
type SleepWindow struct {
	StartHour int `toml:"start_hour"`
	EndHour   int `toml:"end_hour"`
}

// File is the top-level shape of the TOML configuration file.
type File struct {
	EnglishUnits bool     `toml:"english_units"`
	HRZones      []HRZone `toml:"hr_zone"`
	Sleep        SleepWindow `toml:"sleep"`
}

// Default returns the configuration used when no file is supplied:
// metric units, no HR zones, and a midnight-to-midnight (disabled) sleep
// window.
func Default() File {
	return File{}
}

// Load reads and parses a TOML configuration file. A missing file is not
// an error — this component is presentation-adjacent, and a fresh install
// should behave like Default rather than fail the whole run.
func Load(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}

// UnitPolicy projects the configuration's unit preference into the
// decoder's immutable UnitPolicy value.
func (f File) UnitPolicy() decode.UnitPolicy {
	return decode.UnitPolicy{English: f.EnglishUnits}
}

// InSleepWindow reports whether the given local hour (0-23) falls inside
// the configured sleep window, handling the wraparound case (e.g. 22-6).
func (f File) InSleepWindow(hour int) bool {
	s, e := f.Sleep.StartHour, f.Sleep.EndHour
	if s == e {
		return false
	}
	if s < e {
		return hour >= s && hour < e
	}
	return hour >= s || hour < e
}
