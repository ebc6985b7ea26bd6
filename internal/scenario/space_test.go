package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace() *Space {
	return &Space{
		Heights: []RangeDim{
			{Name: "b1", Min: 10, Max: 30, Samples: 3},
			{Name: "b2", Min: 10, Max: 10, Samples: 1},
		},
		Greens: []RangeDim{
			{Name: "z1", Min: 0.1, Max: 0.5, Samples: 3},
		},
		LandUses: []CategoryDim{
			{Name: "p1", Categories: []LandUse{UseResidential, UseCommercial}},
		},
	}
}

func TestSpaceCount(t *testing.T) {
	sp := testSpace()
	count, err := sp.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3*1*3*2), count)
}

func TestSpaceValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Space)
	}{
		{"inverted range", func(sp *Space) { sp.Heights[0].Min = 40 }},
		{"zero samples", func(sp *Space) { sp.Greens[0].Samples = 0 }},
		{"empty categories", func(sp *Space) { sp.LandUses[0].Categories = nil }},
		{"unknown category", func(sp *Space) { sp.LandUses[0].Categories = []LandUse{"spaceport"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := testSpace()
			tt.mutate(sp)
			err := sp.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameterRange)
		})
	}
}

func TestRangeDimValue(t *testing.T) {
	d := RangeDim{Min: 10, Max: 30, Samples: 3}
	assert.InDelta(t, 10, d.Value(0), 1e-12)
	assert.InDelta(t, 20, d.Value(1), 1e-12)
	assert.InDelta(t, 30, d.Value(2), 1e-12)

	single := RangeDim{Min: 5, Max: 50, Samples: 1}
	assert.InDelta(t, 5, single.Value(0), 1e-12)
}

func TestEnumeratorVisitsAllInRowMajorOrder(t *testing.T) {
	sp := testSpace()
	e, err := sp.Enumerate()
	require.NoError(t, err)

	var seen []Scenario
	for {
		s, ok := e.Next()
		if !ok {
			break
		}
		seen = append(seen, s)
	}
	require.Len(t, seen, int(e.Total()))

	// The last dimension (land use of p1) varies fastest.
	assert.Equal(t, UseResidential, seen[0].LandUses[0])
	assert.Equal(t, UseCommercial, seen[1].LandUses[0])
	assert.Equal(t, seen[0].GreenFractions[0], seen[1].GreenFractions[0])

	// The first dimension (height of b1) varies slowest.
	assert.InDelta(t, 10, seen[0].Heights[0], 1e-12)
	assert.InDelta(t, 10, seen[5].Heights[0], 1e-12)
	assert.InDelta(t, 20, seen[6].Heights[0], 1e-12)

	// Enumeration index matches position.
	for i, s := range seen {
		assert.Equal(t, int64(i), s.Index)
	}
}

func TestEnumeratorRestartable(t *testing.T) {
	sp := testSpace()
	e, err := sp.Enumerate()
	require.NoError(t, err)

	first, ok := e.Next()
	require.True(t, ok)

	e.Reset()
	again, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)
}

func TestAtMatchesSequentialEnumeration(t *testing.T) {
	sp := testSpace()
	e, err := sp.Enumerate()
	require.NoError(t, err)

	for i := int64(0); ; i++ {
		s, ok := e.Next()
		if !ok {
			break
		}
		assert.Equal(t, s, sp.At(i))
	}
}

func TestLoadSpace(t *testing.T) {
	yaml := `
space:
  heights:
    - name: b1
      min: 10
      max: 30
      samples: 3
  greens:
    - name: z1
      min: 0.1
      max: 0.5
      samples: 3
  land_uses:
    - name: p1
      categories: [residential, commercial]
`
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	sp, err := LoadSpace(path)
	require.NoError(t, err)
	require.Len(t, sp.Heights, 1)
	require.Len(t, sp.LandUses, 1)
	assert.Equal(t, []LandUse{UseResidential, UseCommercial}, sp.LandUses[0].Categories)

	count, err := sp.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(18), count)
}

func TestLoadSpaceRejectsUnknownCategory(t *testing.T) {
	yaml := `
space:
  land_uses:
    - name: p1
      categories: [spaceport]
`
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := LoadSpace(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameterRange)
}

func TestLoadSpaceMissingFile(t *testing.T) {
	_, err := LoadSpace(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
