package record

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mapping declares how raw source fields translate to canonical fields for
// one record kind. Renames are applied before required-field checks, so
// Required always names canonical fields.
type Mapping struct {
	Kind     Kind              `yaml:"kind"`
	Renames  map[string]string `yaml:"renames,omitempty"`
	Required []string          `yaml:"required"`
}

// defaultMappings mirrors the field contracts of the two upstream sources.
// The harvest API already serves canonical names; the hosted table service
// serves kilos_* names that rename to the destination columns.
func defaultMappings() map[Kind]Mapping {
	return map[Kind]Mapping{
		KindHarvest: {
			Kind: KindHarvest,
			Required: []string{
				"id", "farm", "plot", "produce", "worker", "unit",
				"harvest_date", "start_time", "end_time",
				"duration", "containers", "kgs_harvested",
			},
		},
		KindDailyTotal: {
			Kind: KindDailyTotal,
			Renames: map[string]string{
				"kilos_harvested": "kgs_harvest_tvn",
				"kilos_packed":    "kgs_packed_cnd",
			},
			Required: []string{"date", "kgs_harvest_tvn", "kgs_packed_cnd"},
		},
	}
}

// ParseMappingOverrides parses a YAML document of Mapping entries. Kinds not
// present in the document keep their default mapping, so an override file
// only needs to restate the kind whose source fields moved.
func ParseMappingOverrides(doc []byte) (map[Kind]Mapping, error) {
	var overrides []Mapping
	if err := yaml.Unmarshal(doc, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse mapping overrides: %w", err)
	}

	mappings := defaultMappings()
	for _, m := range overrides {
		if _, ok := mappings[m.Kind]; !ok {
			return nil, fmt.Errorf("mapping override for unknown kind %q", m.Kind)
		}
		if len(m.Required) == 0 {
			return nil, fmt.Errorf("mapping override for kind %q lists no required fields", m.Kind)
		}
		mappings[m.Kind] = m
	}

	return mappings, nil
}

// applyRenames returns a copy of raw with source field names translated to
// canonical names. Fields without a rename pass through unchanged.
func (m Mapping) applyRenames(raw map[string]any) map[string]any {
	if len(m.Renames) == 0 {
		return raw
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if canonical, ok := m.Renames[k]; ok {
			k = canonical
		}
		out[k] = v
	}
	return out
}
