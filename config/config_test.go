package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if f.EnglishUnits {
		t.Fatal("expected metric default")
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fitmon.toml")
	contents := `
english_units = true

[[hr_zone]]
name = "zone2"
low_bpm = 120
high_bpm = 140

[sleep]
start_hour = 22
end_hour = 6
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !f.EnglishUnits {
		t.Fatal("expected english_units true")
	}
	if len(f.HRZones) != 1 || f.HRZones[0].Name != "zone2" {
		t.Fatalf("unexpected hr zones: %+v", f.HRZones)
	}
	if !f.UnitPolicy().English {
		t.Fatal("expected UnitPolicy.English true")
	}
}

func TestInSleepWindowWraparound(t *testing.T) {
	f := File{Sleep: SleepWindow{StartHour: 22, EndHour: 6}}
	cases := map[int]bool{23: true, 2: true, 6: false, 12: false, 22: true}
	for hour, want := range cases {
		if got := f.InSleepWindow(hour); got != want {
			t.Errorf("InSleepWindow(%d) = %v, want %v", hour, got, want)
		}
	}
}
