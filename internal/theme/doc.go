// Package theme provides window decoration colour themes.
//
// Two themes are built in ("dark" and "light"). Custom themes are read from
// YAML or TOML files and may extend a built-in:
//
//	name: ocean
//	extends: dark
//	title_height: 28
//	colors:
//	  background: "#0B1D2A"
//	  close_button_hover: "#E06C75"
//
// Colours are written as #RRGGBB or #AARRGGBB and stored premultiplied.
//
// Discover loads a directory of theme files named after their files; those
// shadow the built-ins when resolved through ResolveIn.
package theme
