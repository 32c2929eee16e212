package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/typeid"
)

func TestTable_RegisterAndFind(t *testing.T) {
	tbl := NewTable()

	h, err := tbl.Register("player-sprite", KindTexture, "img/player.png")
	require.NoError(t, err)
	assert.NotZero(t, h)

	entry, ok := tbl.Find(typeid.Hash("player-sprite"))
	require.True(t, ok)
	assert.Equal(t, h, entry.Handle)
	assert.Equal(t, KindTexture, entry.Kind)
	assert.Equal(t, "img/player.png", entry.Path)

	byHandle, ok := tbl.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, "player-sprite", byHandle.Name)

	_, ok = tbl.FindByName("missing")
	assert.False(t, ok)
	_, ok = tbl.Lookup(0)
	assert.False(t, ok)
}

func TestTable_DuplicateName(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Register("cube", KindMesh, "cube.obj")
	require.NoError(t, err)

	_, err = tbl.Register("cube", KindMesh, "other.obj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestTable_EntriesSorted(t *testing.T) {
	tbl := NewTable()
	for _, name := range []string{"b", "c", "a"} {
		_, err := tbl.Register(name, KindAny, "")
		require.NoError(t, err)
	}
	entries := tbl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}
