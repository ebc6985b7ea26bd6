package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossQuantizationNoise(t *testing.T) {
	q := DefaultQuantization()

	a := Scenario{
		Heights:        []float64{10.0, 20.0},
		GreenFractions: []float64{0.3},
		LandUses:       []LandUse{UseResidential},
	}
	// Same vector up to sub-step floating point noise.
	b := Scenario{
		Heights:        []float64{10.000001, 19.999999},
		GreenFractions: []float64{0.300001},
		LandUses:       []LandUse{UseResidential},
	}

	assert.Equal(t, a.Fingerprint(q), b.Fingerprint(q))
}

func TestFingerprintDistinguishesVariables(t *testing.T) {
	q := DefaultQuantization()
	base := Scenario{
		Heights:        []float64{10, 20},
		GreenFractions: []float64{0.3},
		LandUses:       []LandUse{UseResidential},
	}

	taller := base
	taller.Heights = []float64{10, 25}
	assert.NotEqual(t, base.Fingerprint(q), taller.Fingerprint(q))

	greener := base
	greener.GreenFractions = []float64{0.5}
	assert.NotEqual(t, base.Fingerprint(q), greener.Fingerprint(q))

	rezoned := base
	rezoned.LandUses = []LandUse{UseCommercial}
	assert.NotEqual(t, base.Fingerprint(q), rezoned.Fingerprint(q))
}

func TestFingerprintIgnoresIndex(t *testing.T) {
	q := DefaultQuantization()
	a := Scenario{Index: 0, Heights: []float64{12}}
	b := Scenario{Index: 99, Heights: []float64{12}}
	assert.Equal(t, a.Fingerprint(q), b.Fingerprint(q))
}

func TestCoarserQuantizationMergesNeighbors(t *testing.T) {
	a := Scenario{Heights: []float64{10.0}}
	b := Scenario{Heights: []float64{10.4}}

	fine := Quantization{HeightStep: 0.1, FractionStep: 0.01}
	coarse := Quantization{HeightStep: 1.0, FractionStep: 0.01}

	assert.NotEqual(t, a.Fingerprint(fine), b.Fingerprint(fine))
	assert.Equal(t, a.Fingerprint(coarse), b.Fingerprint(coarse))
}

func TestParseLandUse(t *testing.T) {
	u, err := ParseLandUse("commercial")
	require.NoError(t, err)
	assert.Equal(t, UseCommercial, u)

	_, err = ParseLandUse("spaceport")
	assert.Error(t, err)
}
