package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sodigy-lang/sodigy/internal/lir"
	"github.com/sodigy-lang/sodigy/internal/link"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/value"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissReportsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), Hash([]byte("fn id(x) = x;")))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutThenGetRoundTripsExecutable(t *testing.T) {
	s := openTestStore(t)
	hash := Hash([]byte("fn id(x) = x;"))
	exe := &link.Executable{
		Bytecode: []lir.Bytecode{
			{Op: lir.OpPushConst, Const: value.Scalar(1), Dest: lir.Return},
			{Op: lir.OpGoto, Target: lir.GlobalLabel(span.Range(1, 10, 20))},
			{Op: lir.OpReturn},
		},
		Asserts: []link.AssertEntry{{Name: "check", EntryPC: 2}},
	}

	require.NoError(t, s.Put(context.Background(), hash, exe))

	got, ok, err := s.Get(context.Background(), hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, exe.Bytecode, got.Bytecode)
	require.Equal(t, exe.Asserts, got.Asserts)
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	s := openTestStore(t)
	hash := Hash([]byte("fn id(x) = x;"))

	first := &link.Executable{Bytecode: []lir.Bytecode{{Op: lir.OpReturn}}}
	require.NoError(t, s.Put(context.Background(), hash, first))

	second := &link.Executable{Bytecode: []lir.Bytecode{{Op: lir.OpPop}, {Op: lir.OpReturn}}}
	require.NoError(t, s.Put(context.Background(), hash, second))

	got, ok, err := s.Get(context.Background(), hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Bytecode, 2)
}

func TestHashIsStableAndContentAddressed(t *testing.T) {
	require.Equal(t, Hash([]byte("same")), Hash([]byte("same")))
	require.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
