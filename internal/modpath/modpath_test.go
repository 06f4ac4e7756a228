package modpath

import (
	"os"
	"path"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

func TestLibResolvesToSrcLibSdg(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(path.Join(dir, "src", "lib.sdg"), nil, 0o644))

	got, err := Resolve(dir, Lib())
	require.NoError(t, err)
	require.Equal(t, path.Join(dir, "src", "lib.sdg"), got)
}

func TestJoinResolvesFlatFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(path.Join(dir, "src", "list.sdg"), nil, 0o644))

	got, err := Resolve(dir, Lib().Join("list"))
	require.NoError(t, err)
	require.Equal(t, path.Join(dir, "src", "list.sdg"), got)
}

func TestJoinResolvesModDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src", "collections"), 0o755))
	require.NoError(t, os.WriteFile(path.Join(dir, "src", "collections", "mod.sdg"), nil, 0o644))

	got, err := Resolve(dir, Lib().Join("collections"))
	require.NoError(t, err)
	require.Equal(t, path.Join(dir, "src", "collections", "mod.sdg"), got)
}

func TestResolveErrorsOnAmbiguity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src", "list"), 0o755))
	require.NoError(t, os.WriteFile(path.Join(dir, "src", "list.sdg"), nil, 0o644))
	require.NoError(t, os.WriteFile(path.Join(dir, "src", "list", "mod.sdg"), nil, 0o644))

	_, err := Resolve(dir, Lib().Join("list"))
	require.Error(t, err)
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)

	wantFound := []string{
		path.Join(dir, "src", "list.sdg"),
		path.Join(dir, "src", "list", "mod.sdg"),
	}
	if diffs := deep.Equal(wantFound, resolveErr.Found); diffs != nil {
		t.Errorf("unexpected Found candidates: %v", diffs)
	}
}

func TestResolveRejectsPathTraversalSegment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src"), 0o755))

	_, err := Resolve(dir, Lib().Join(".."))
	require.Error(t, err)
}

func TestResolveErrorsOnMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "src"), 0o755))

	_, err := Resolve(dir, Lib().Join("ghost"))
	require.Error(t, err)
}

func TestStringFormatsWithLibPrefix(t *testing.T) {
	require.Equal(t, "lib", Lib().String())
	require.Equal(t, "lib.collections.list", Lib().Join("collections").Join("list").String())
}
