package fieldmap

import (
	"testing"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_AssignsMonotonicIDs(t *testing.T) {
	m := New()

	titleID, err := m.Insert("title")
	require.NoError(t, err)
	assert.Equal(t, uint16(0), titleID)

	castID, err := m.Insert("cast")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), castID)

	// Re-inserting an existing name returns the same id, not a new one.
	again, err := m.Insert("title")
	require.NoError(t, err)
	assert.Equal(t, titleID, again)
}

func TestID_RoundTripsWithName(t *testing.T) {
	m := New()
	id, err := m.Insert("genres")
	require.NoError(t, err)

	got, ok := m.ID("genres")
	require.True(t, ok)
	assert.Equal(t, id, got)

	name, ok := m.Name(id)
	require.True(t, ok)
	assert.Equal(t, "genres", name)

	_, ok = m.ID("missing")
	assert.False(t, ok)
}

func TestInsert_ReportsAttributeLimitReached(t *testing.T) {
	m := New()
	m.nextID = maxFieldID // simulate having exhausted the id space

	_, err := m.Insert("overflow")
	require.Error(t, err)
	assert.ErrorIs(t, err, idxerrors.ErrAttributeLimitReached)
}

func TestSnapshot_RestoresEquivalentMap(t *testing.T) {
	m := New()
	_, err := m.Insert("title")
	require.NoError(t, err)
	_, err = m.Insert("cast")
	require.NoError(t, err)

	data, err := m.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(data)
	require.NoError(t, err)

	assert.Equal(t, m.Len(), restored.Len())
	for _, name := range m.Names() {
		id, _ := m.ID(name)
		restoredID, ok := restored.ID(name)
		require.True(t, ok)
		assert.Equal(t, id, restoredID)
	}

	// The restored map continues assigning ids above the highest restored one.
	nextID, err := restored.Insert("new_field")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), nextID)
}

func TestNames_IsSortedAndComplete(t *testing.T) {
	m := New()
	_, _ = m.Insert("year")
	_, _ = m.Insert("cast")
	_, _ = m.Insert("title")

	assert.Equal(t, []string{"cast", "title", "year"}, m.Names())
}
