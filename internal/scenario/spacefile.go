package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// spaceFile is the on-disk shape of a parameter-space definition.
type spaceFile struct {
	Space struct {
		Heights  []RangeDim `yaml:"heights"`
		Greens   []RangeDim `yaml:"greens"`
		LandUses []struct {
			Name       string   `yaml:"name"`
			Categories []string `yaml:"categories"`
		} `yaml:"land_uses"`
	} `yaml:"space"`
}

// LoadSpace reads a parameter-space definition from a YAML file and
// validates it. Category names are checked against the known land-use set.
func LoadSpace(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read space file %s", path)
	}

	var f spaceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "scenario: parse space file")
	}

	sp := &Space{
		Heights: f.Space.Heights,
		Greens:  f.Space.Greens,
	}
	for _, d := range f.Space.LandUses {
		cd := CategoryDim{Name: d.Name}
		for _, c := range d.Categories {
			use, err := ParseLandUse(c)
			if err != nil {
				return nil, eris.Wrapf(ErrInvalidParameterRange, "dimension %q: unknown category %q", d.Name, c)
			}
			cd.Categories = append(cd.Categories, use)
		}
		sp.LandUses = append(sp.LandUses, cd)
	}

	if err := sp.Validate(); err != nil {
		return nil, err
	}
	return sp, nil
}
