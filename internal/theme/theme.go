package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Color is a 32-bit premultiplied ARGB value
type Color uint32

// Palette holds the colours used for decorations and the desktop
type Palette struct {
	Background       Color
	Frame            Color
	FrameActive      Color
	TitleBar         Color
	TitleBarActive   Color
	TitleLabel       Color
	CloseButton      Color
	CloseButtonHover Color
	CloseGlyph       Color
}

// Theme describes decoration colours and metrics
type Theme struct {
	Name        string
	Palette     Palette
	TitleHeight int
	BorderWidth int
}

// file is the on-disk representation (YAML or TOML)
type file struct {
	Name        string            `yaml:"name" toml:"name"`
	Extends     string            `yaml:"extends" toml:"extends"`
	TitleHeight int               `yaml:"title_height" toml:"title_height"`
	BorderWidth int               `yaml:"border_width" toml:"border_width"`
	Colors      map[string]string `yaml:"colors" toml:"colors"`
}

var builtins = map[string]Theme{
	"dark": {
		Name: "dark",
		Palette: Palette{
			Background:       0xFF1E1E2E,
			Frame:            0xFF313244,
			FrameActive:      0xFF45475A,
			TitleBar:         0xFF313244,
			TitleBarActive:   0xFF585B70,
			TitleLabel:       0xFFCDD6F4,
			CloseButton:      0xFF45475A,
			CloseButtonHover: 0xFFF38BA8,
			CloseGlyph:       0xFFCDD6F4,
		},
		TitleHeight: 24,
		BorderWidth: 4,
	},
	"light": {
		Name: "light",
		Palette: Palette{
			Background:       0xFFEFF1F5,
			Frame:            0xFFCCD0DA,
			FrameActive:      0xFFBCC0CC,
			TitleBar:         0xFFDCE0E8,
			TitleBarActive:   0xFFACB0BE,
			TitleLabel:       0xFF4C4F69,
			CloseButton:      0xFFBCC0CC,
			CloseButtonHover: 0xFFD20F39,
			CloseGlyph:       0xFF4C4F69,
		},
		TitleHeight: 24,
		BorderWidth: 4,
	},
}

// Default returns the built-in dark theme
func Default() Theme {
	return builtins["dark"]
}

// Builtin returns a built-in theme by name
func Builtin(name string) (Theme, bool) {
	t, ok := builtins[strings.ToLower(name)]
	return t, ok
}

// Builtins returns the names of the built-in themes, sorted
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns a built-in theme for a bare name, otherwise loads the file at ref
func Resolve(ref string) (Theme, error) {
	if ref == "" {
		return Default(), nil
	}
	if t, ok := Builtin(ref); ok {
		return t, nil
	}
	return Load(ref)
}

// Load reads a theme from a .yaml/.yml or .toml file
func Load(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("failed to read theme: %w", err)
	}

	var f file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return Theme{}, fmt.Errorf("unsupported theme format: %s", filepath.Ext(path))
	}
	if err != nil {
		return Theme{}, fmt.Errorf("failed to parse theme %s: %w", path, err)
	}
	return f.build()
}

// build overlays the file onto its base theme
func (f file) build() (Theme, error) {
	base := Default()
	if f.Extends != "" {
		b, ok := Builtin(f.Extends)
		if !ok {
			return Theme{}, fmt.Errorf("unknown base theme %q", f.Extends)
		}
		base = b
	}
	if f.Name != "" {
		base.Name = f.Name
	}
	if f.TitleHeight > 0 {
		base.TitleHeight = f.TitleHeight
	}
	if f.BorderWidth > 0 {
		base.BorderWidth = f.BorderWidth
	}

	slots := map[string]*Color{
		"background":         &base.Palette.Background,
		"frame":              &base.Palette.Frame,
		"frame_active":       &base.Palette.FrameActive,
		"title_bar":          &base.Palette.TitleBar,
		"title_bar_active":   &base.Palette.TitleBarActive,
		"title_label":        &base.Palette.TitleLabel,
		"close_button":       &base.Palette.CloseButton,
		"close_button_hover": &base.Palette.CloseButtonHover,
		"close_glyph":        &base.Palette.CloseGlyph,
	}
	for key, value := range f.Colors {
		slot, ok := slots[key]
		if !ok {
			return Theme{}, fmt.Errorf("unknown theme colour %q", key)
		}
		c, err := ParseColor(value)
		if err != nil {
			return Theme{}, fmt.Errorf("colour %s: %w", key, err)
		}
		*slot = c
	}
	return base, nil
}

// ParseColor parses #RRGGBB or #AARRGGBB into premultiplied ARGB
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 6:
		hex = "FF" + hex
	case 8:
	default:
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return premultiply(uint32(v)), nil
}

func premultiply(argb uint32) Color {
	a := argb >> 24
	if a == 0xFF {
		return Color(argb)
	}
	scale := func(c uint32) uint32 { return (c*a + 127) / 255 }
	r := scale(argb >> 16 & 0xFF)
	g := scale(argb >> 8 & 0xFF)
	b := scale(argb & 0xFF)
	return Color(a<<24 | r<<16 | g<<8 | b)
}
