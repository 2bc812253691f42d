// Package config provides the map catalog and server settings.
//
// The config package handles:
//   - Loading map files (*.txt) from the maps directory
//   - Validating maps before they are cached or saved
//   - Default map selection and listing
//   - Reading YAML server settings
//
// Map Format:
//
// Maps use the line format of the engine package: one "C - width - height"
// record, then M, T and A records with fields separated by " - ". A map is
// invalid only when it cannot be loaded at all (a negative dimension); skipped
// records are reported as warnings by Validate.
//
// Usage:
//
//	manager, err := config.NewManager("maps")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	text, err := manager.LoadMap("classic")
//	maps, err := manager.ListMaps()
//
//	settings, err := config.LoadSettings("treasure.yaml")
//
// The catalog ships a built-in "classic" map that is used when the directory
// holds no map of that name.
package config
