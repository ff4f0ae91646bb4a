package classify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/model"
)

// LabelReviewWeight flags a pair ordered by count but invoiced by weight.
const LabelReviewWeight = "🔵 AVALIAR PESO (PEDIDO EM UN vs XML EM KG)"

// Override replaces numeric classification for one supplier and family root.
type Override struct {
	Supplier   string `yaml:"supplier"`
	FamilyRoot string `yaml:"family_root"`
	Label      string `yaml:"label"`
}

// Overrides is consulted in order; the first hit wins.
type Overrides []Override

// DefaultOverrides holds the known unit mismatches.
var DefaultOverrides = Overrides{
	{Supplier: "DRUB", FamilyRoot: "PIMENTAO", Label: LabelReviewWeight},
}

// Lookup returns the review status for a matched pair, if one applies.
func (o Overrides) Lookup(supplier, family string) (Result, bool) {
	for _, ov := range o {
		if ov.Supplier == supplier && strings.Contains(family, ov.FamilyRoot) {
			return Result{Label: ov.Label, Code: model.StatusReconciled, Difference: 0}, true
		}
	}
	return Result{}, false
}

// LoadOverrides reads extra overrides from a YAML file with a top-level
// "overrides" list. A missing label defaults to LabelReviewWeight.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read overrides %s", path)
	}

	var wrapper struct {
		Overrides Overrides `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse overrides")
	}

	for i, ov := range wrapper.Overrides {
		if ov.Supplier == "" || ov.FamilyRoot == "" {
			return nil, eris.Errorf("classify: override %d needs supplier and family_root", i)
		}
		if ov.Label == "" {
			wrapper.Overrides[i].Label = LabelReviewWeight
		}
	}
	return wrapper.Overrides, nil
}
