package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sodigy-lang/sodigy/internal/cache"
	"github.com/sodigy-lang/sodigy/internal/modpath"
)

func TestCompileRunsEveryModuleIndependently(t *testing.T) {
	mods := []Module{
		{Path: modpath.Lib().Join("a"), File: 1, Src: []byte("fn id(x) = x;")},
		{Path: modpath.Lib().Join("b"), File: 2, Src: []byte("fn twice(x) = x + x;")},
	}

	outcomes := Compile(context.Background(), mods, 0, nil)
	require.Len(t, outcomes, 2)
	for i, o := range outcomes {
		require.Falsef(t, o.Bus.HasErrors(), "module %d: %v", i, o.Bus.Errors())
		require.NotNil(t, o.Executable)
		require.False(t, o.FromCache)
	}
}

func TestCompileReportsPerModuleErrorsIndependently(t *testing.T) {
	mods := []Module{
		{Path: modpath.Lib().Join("a"), File: 1, Src: []byte("fn id(x) = x;")},
		{Path: modpath.Lib().Join("bad"), File: 2, Src: []byte("fn f(x) = y;")},
	}

	outcomes := Compile(context.Background(), mods, 2, nil)
	require.False(t, outcomes[0].Bus.HasErrors())
	require.True(t, outcomes[1].Bus.HasErrors())
	require.Nil(t, outcomes[1].Executable)
}

func TestCompileReusesCachedExecutableOnSecondRun(t *testing.T) {
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	mods := []Module{{Path: modpath.Lib().Join("a"), File: 1, Src: []byte("fn id(x) = x;")}}

	first := Compile(context.Background(), mods, 0, store)
	require.False(t, first[0].FromCache)
	require.NotNil(t, first[0].Executable)

	second := Compile(context.Background(), mods, 0, store)
	require.True(t, second[0].FromCache)
	require.Equal(t, first[0].Executable.Bytecode, second[0].Executable.Bytecode)
}
