package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTheme(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, filepath.Join(dir, "Ocean.yaml"), "name: ocean\nextends: dark\nborder_width: 3\n")
	writeTheme(t, filepath.Join(dir, "nested", "paper.toml"), "name = \"paper\"\nextends = \"light\"\n")
	writeTheme(t, filepath.Join(dir, "notes.txt"), "not a theme")

	themes, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, themes, 2)
	assert.Equal(t, 3, themes["ocean"].BorderWidth)
	assert.Equal(t, "paper", themes["paper"].Name)
}

func TestDiscoverRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, filepath.Join(dir, "ocean.yaml"), "name: ocean\n")
	writeTheme(t, filepath.Join(dir, "more", "ocean.toml"), "name = \"ocean\"\n")

	_, err := Discover(dir)
	assert.ErrorContains(t, err, "defined twice")
}

func TestResolveIn(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, filepath.Join(dir, "dark.yaml"), "name: midnight\ntitle_height: 40\n")

	th, err := ResolveIn("dark", dir)
	require.NoError(t, err)
	assert.Equal(t, "midnight", th.Name, "directory themes shadow built-ins")

	th, err = ResolveIn("light", dir)
	require.NoError(t, err)
	assert.Equal(t, "light", th.Name)

	th, err = ResolveIn("dark", "")
	require.NoError(t, err)
	assert.Equal(t, "dark", th.Name)
}
