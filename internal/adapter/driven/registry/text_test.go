package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/pipectl/internal/domain/model"
)

func newTestText(t *testing.T) *Text {
	t.Helper()
	eng := NewText(filepath.Join(t.TempDir(), "registry.json"))
	eng.now = func() time.Time { return testNow }
	return eng
}

// TestTextRemoveSubstringHazard pins the documented limitation of the line
// filter: an id that appears as a quoted substring inside another entry takes
// that entry with it. This is carried-over behavior, not something to harden
// silently; if it ever changes, this test should change with it on purpose.
func TestTextRemoveSubstringHazard(t *testing.T) {
	eng := newTestText(t)

	require.NoError(t, eng.Put("p-1", testRecord("p-1", "Dest1")))
	// Victim entry whose destination is exactly the other pipeline's id, so
	// its serialized line contains the quoted id.
	require.NoError(t, eng.Put("p-2", testRecord("p-2", "p-1")))

	require.NoError(t, eng.Remove("p-1"))

	ids, err := eng.List()
	require.NoError(t, err)
	assert.Empty(t, ids, "line filter over-deletes entries mentioning the id")
}

func TestTextMalformedStore(t *testing.T) {
	eng := newTestText(t)
	require.NoError(t, os.WriteFile(eng.path, []byte("not an object"), 0o600))

	_, err := eng.List()
	assert.ErrorIs(t, err, model.ErrParse)

	err = eng.Put("p-1", testRecord("p-1", "Dest1"))
	assert.ErrorIs(t, err, model.ErrParse)
}

func TestTextEmptyObjectVariants(t *testing.T) {
	eng := newTestText(t)
	require.NoError(t, os.WriteFile(eng.path, []byte("{}\n"), 0o600))

	require.NoError(t, eng.Put("p-1", testRecord("p-1", "Dest1")))

	rec, err := eng.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, "Dest1", rec.Configuration.Destination)
}
