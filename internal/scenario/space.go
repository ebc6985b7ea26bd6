package scenario

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidParameterRange indicates a malformed parameter-space
// configuration: an empty or inverted range, a sample count below one, or an
// empty category list. It is fatal and surfaced before any work starts.
var ErrInvalidParameterRange = eris.New("scenario: invalid parameter range")

// RangeDim is one continuous decision dimension sampled at evenly spaced
// points over a closed range.
type RangeDim struct {
	Name    string  `json:"name" yaml:"name"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Samples int     `json:"samples" yaml:"samples"`
}

// Value returns the i-th sample of the dimension. A single-sample dimension
// collapses to Min.
func (d RangeDim) Value(i int) float64 {
	if d.Samples <= 1 {
		return d.Min
	}
	return d.Min + (d.Max-d.Min)*float64(i)/float64(d.Samples-1)
}

func (d RangeDim) validate() error {
	if math.IsNaN(d.Min) || math.IsNaN(d.Max) || math.IsInf(d.Min, 0) || math.IsInf(d.Max, 0) {
		return eris.Wrapf(ErrInvalidParameterRange, "dimension %q: non-finite bounds", d.Name)
	}
	if d.Min > d.Max {
		return eris.Wrapf(ErrInvalidParameterRange, "dimension %q: min %v > max %v", d.Name, d.Min, d.Max)
	}
	if d.Samples < 1 {
		return eris.Wrapf(ErrInvalidParameterRange, "dimension %q: sample count %d < 1", d.Name, d.Samples)
	}
	return nil
}

// CategoryDim is one categorical decision dimension enumerated over an
// explicit land-use list.
type CategoryDim struct {
	Name       string    `json:"name" yaml:"name"`
	Categories []LandUse `json:"categories" yaml:"categories"`
}

func (d CategoryDim) validate() error {
	if len(d.Categories) == 0 {
		return eris.Wrapf(ErrInvalidParameterRange, "dimension %q: empty category list", d.Name)
	}
	for _, c := range d.Categories {
		if _, err := ParseLandUse(string(c)); err != nil {
			return eris.Wrapf(ErrInvalidParameterRange, "dimension %q: unknown category %q", d.Name, c)
		}
	}
	return nil
}

// Space is the full parameter space: one height dimension per building, one
// green-fraction dimension per zone, one land-use dimension per parcel.
// Enumeration order is row-major over the dimensions in that order, with the
// last dimension varying fastest.
type Space struct {
	Heights  []RangeDim    `json:"heights" yaml:"heights"`
	Greens   []RangeDim    `json:"greens" yaml:"greens"`
	LandUses []CategoryDim `json:"land_uses" yaml:"land_uses"`
}

// Validate checks every dimension and the total-count product. A space that
// fails validation must not be enumerated.
func (sp *Space) Validate() error {
	for _, d := range sp.Heights {
		if err := d.validate(); err != nil {
			return err
		}
	}
	for _, d := range sp.Greens {
		if err := d.validate(); err != nil {
			return err
		}
	}
	for _, d := range sp.LandUses {
		if err := d.validate(); err != nil {
			return err
		}
	}
	if _, err := sp.Count(); err != nil {
		return err
	}
	return nil
}

// Count returns the total number of scenarios the space enumerates, the
// product of per-dimension sample counts. Reported up front so callers can
// estimate runtime before launching a run.
func (sp *Space) Count() (int64, error) {
	total := int64(1)
	mul := func(n int64) bool {
		if n <= 0 {
			return false
		}
		if total > math.MaxInt64/n {
			return false
		}
		total *= n
		return true
	}

	for _, d := range sp.Heights {
		if !mul(int64(d.Samples)) {
			return 0, eris.Wrap(ErrInvalidParameterRange, "scenario count overflows int64")
		}
	}
	for _, d := range sp.Greens {
		if !mul(int64(d.Samples)) {
			return 0, eris.Wrap(ErrInvalidParameterRange, "scenario count overflows int64")
		}
	}
	for _, d := range sp.LandUses {
		if !mul(int64(len(d.Categories))) {
			return 0, eris.Wrap(ErrInvalidParameterRange, "scenario count overflows int64")
		}
	}
	return total, nil
}

// radices returns the per-dimension sample counts in enumeration order.
func (sp *Space) radices() []int64 {
	r := make([]int64, 0, len(sp.Heights)+len(sp.Greens)+len(sp.LandUses))
	for _, d := range sp.Heights {
		r = append(r, int64(d.Samples))
	}
	for _, d := range sp.Greens {
		r = append(r, int64(d.Samples))
	}
	for _, d := range sp.LandUses {
		r = append(r, int64(len(d.Categories)))
	}
	return r
}

// At constructs the scenario at the given enumeration index without walking
// its predecessors. The index decodes as a mixed-radix number with the last
// dimension as the least significant digit, which is what makes contiguous
// chunking across workers cheap.
func (sp *Space) At(index int64) Scenario {
	radices := sp.radices()
	digits := make([]int64, len(radices))
	rem := index
	for i := len(radices) - 1; i >= 0; i-- {
		digits[i] = rem % radices[i]
		rem /= radices[i]
	}

	s := Scenario{
		Index:          index,
		Heights:        make([]float64, len(sp.Heights)),
		GreenFractions: make([]float64, len(sp.Greens)),
		LandUses:       make([]LandUse, len(sp.LandUses)),
	}

	di := 0
	for i, d := range sp.Heights {
		s.Heights[i] = d.Value(int(digits[di]))
		di++
	}
	for i, d := range sp.Greens {
		s.GreenFractions[i] = d.Value(int(digits[di]))
		di++
	}
	for i, d := range sp.LandUses {
		s.LandUses[i] = d.Categories[digits[di]]
		di++
	}
	return s
}

// Enumerator walks the space in its fixed deterministic order. It is lazy
// (scenarios are built on demand), finite, and restartable via Reset. Two
// runs over the same space visit scenarios in identical order.
type Enumerator struct {
	space  *Space
	total  int64
	cursor int64
}

// Enumerate returns an enumerator positioned before the first scenario. The
// space must already be validated.
func (sp *Space) Enumerate() (*Enumerator, error) {
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	total, err := sp.Count()
	if err != nil {
		return nil, err
	}
	return &Enumerator{space: sp, total: total}, nil
}

// Total returns the number of scenarios in the sequence.
func (e *Enumerator) Total() int64 {
	return e.total
}

// Next returns the next scenario, or false when the sequence is exhausted.
func (e *Enumerator) Next() (Scenario, bool) {
	if e.cursor >= e.total {
		return Scenario{}, false
	}
	s := e.space.At(e.cursor)
	e.cursor++
	return s, true
}

// Reset rewinds the enumerator to the start of the sequence.
func (e *Enumerator) Reset() {
	e.cursor = 0
}
