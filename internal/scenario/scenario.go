// Package scenario defines the decision vector for one candidate urban
// configuration, its quantized fingerprint, and the parameter-space
// enumerator that generates the candidate sequence.
package scenario

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// LandUse is the categorical land-use assignment for a parcel.
type LandUse string

const (
	UseResidential LandUse = "residential"
	UseCommercial  LandUse = "commercial"
	UseMixed       LandUse = "mixed"
	UseIndustrial  LandUse = "industrial"
	UseGreen       LandUse = "green"
	UseCivic       LandUse = "civic"
)

// KnownUses lists every recognized land-use category.
var KnownUses = []LandUse{UseResidential, UseCommercial, UseMixed, UseIndustrial, UseGreen, UseCivic}

// ParseLandUse validates a category name from configuration input.
func ParseLandUse(s string) (LandUse, error) {
	for _, u := range KnownUses {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("scenario: unknown land use %q", s)
}

// Scenario is one candidate assignment of all decision variables: a building
// height per building, a green-space fraction per zone, and a land-use
// category per parcel. Treat it as immutable once constructed; the runner
// and evaluator share scenarios across goroutines without copying.
type Scenario struct {
	Index          int64     `json:"index"` // position in enumeration order
	Heights        []float64 `json:"heights"`
	GreenFractions []float64 `json:"green_fractions"`
	LandUses       []LandUse `json:"land_uses"`
}

// Fingerprint uniquely identifies a scenario's quantized decision vector.
type Fingerprint uint64

func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Quantization controls the rounding applied to continuous variables before
// fingerprinting. Coarser steps raise the cache hit rate at the cost of
// approximation error in reused results; it is a tunable, not a constant.
type Quantization struct {
	HeightStep   float64 `json:"height_step"`   // meters, default 0.1
	FractionStep float64 `json:"fraction_step"` // default 0.01
}

// DefaultQuantization returns the default per-variable steps.
func DefaultQuantization() Quantization {
	return Quantization{HeightStep: 0.1, FractionStep: 0.01}
}

// Fingerprint computes the FNV-64a hash of the quantized decision vector.
// Two scenarios whose variables round to the same steps share a fingerprint,
// which is exactly what makes memoized results reusable between them.
func (s *Scenario) Fingerprint(q Quantization) Fingerprint {
	h := fnv.New64a()
	var buf [8]byte

	writeQuantized := func(v, step float64) {
		var qv int64
		if step > 0 {
			qv = int64(math.Round(v / step))
		} else {
			qv = int64(math.Float64bits(v))
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(qv))
		_, _ = h.Write(buf[:])
	}

	_, _ = h.Write([]byte{'H'})
	for _, v := range s.Heights {
		writeQuantized(v, q.HeightStep)
	}
	_, _ = h.Write([]byte{'G'})
	for _, v := range s.GreenFractions {
		writeQuantized(v, q.FractionStep)
	}
	_, _ = h.Write([]byte{'U'})
	for _, u := range s.LandUses {
		_, _ = h.Write([]byte(u))
		_, _ = h.Write([]byte{0})
	}

	return Fingerprint(h.Sum64())
}
