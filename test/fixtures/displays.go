// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"os"
	"path/filepath"
)

// DeskSetup writes a simulated display fixture: a built-in Retina panel
// and an external 27" monitor.
type DeskSetup struct {
	Dir string
}

// Display IDs used by the desk fixture.
const (
	BuiltinID  uint32 = 1
	ExternalID uint32 = 69733382
)

// NewDeskSetup creates a fixture generator writing into dir.
func NewDeskSetup(dir string) *DeskSetup {
	return &DeskSetup{Dir: dir}
}

// Path returns the fixture file path.
func (d *DeskSetup) Path() string {
	return filepath.Join(d.Dir, "displays.toml")
}

// Create writes the fixture file.
func (d *DeskSetup) Create() error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(d.Path(), []byte(deskTOML), 0644)
}

// Exists reports whether the fixture file was written.
func (d *DeskSetup) Exists() bool {
	_, err := os.Stat(d.Path())
	return err == nil
}

const deskTOML = `
[[display]]
id = 1
name = "Built-in Retina Display"
builtin = true
current = 103

  [[display.mode]]
  id = 101
  width = 1800
  height = 1169
  pixel_width = 3600
  pixel_height = 2338
  refresh = 120.0

  [[display.mode]]
  id = 102
  width = 1728
  height = 1117
  pixel_width = 3456
  pixel_height = 2234
  refresh = 120.0

  [[display.mode]]
  id = 103
  width = 1512
  height = 982
  pixel_width = 3024
  pixel_height = 1964
  refresh = 120.0

  [[display.mode]]
  id = 104
  width = 1352
  height = 878
  pixel_width = 2704
  pixel_height = 1756
  refresh = 120.0

  [[display.mode]]
  id = 105
  width = 1147
  height = 745
  pixel_width = 2294
  pixel_height = 1490
  refresh = 120.0

  [[display.mode]]
  id = 106
  width = 1024
  height = 665
  pixel_width = 2048
  pixel_height = 1330
  refresh = 120.0

  [[display.mode]]
  id = 107
  width = 3024
  height = 1964
  refresh = 120.0

  [[display.mode]]
  id = 108
  width = 1512
  height = 982
  refresh = 120.0

  [[display.mode]]
  id = 109
  width = 800
  height = 520
  refresh = 120.0

[[display]]
id = 69733382
name = "DELL U2720Q"
current = 204

  [[display.mode]]
  id = 201
  width = 3840
  height = 2160
  refresh = 60.0

  [[display.mode]]
  id = 202
  width = 2560
  height = 1440
  refresh = 59.951

  [[display.mode]]
  id = 203
  width = 2560
  height = 1440
  refresh = 60.0

  [[display.mode]]
  id = 204
  width = 1920
  height = 1080
  refresh = 60.0

  [[display.mode]]
  id = 205
  width = 1920
  height = 1080
  pixel_width = 3840
  pixel_height = 2160
  refresh = 60.0

  [[display.mode]]
  id = 206
  width = 1680
  height = 945
  refresh = 60.0

  [[display.mode]]
  id = 207
  width = 1280
  height = 720
  refresh = 60.0

  [[display.mode]]
  id = 208
  width = 1024
  height = 768
  refresh = 60.0

  [[display.mode]]
  id = 209
  width = 640
  height = 480
  refresh = 60.0

  [[display.mode]]
  id = 210
  width = 1920
  height = 1080
  refresh = 24.0
  unusable = true
`
