package checker

import (
	"slices"
	"strings"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// schemaCompliance checks decoded property values against existence
// constraints and small indexes.
type schemaCompliance struct {
	mandatory map[int32][]int32
	indexes   []index.Accessor
	scratch   []store.Value
}

func newSchemaCompliance(mandatory map[int32][]int32, indexes []index.Accessor) *schemaCompliance {
	return &schemaCompliance{mandatory: mandatory, indexes: indexes}
}

// checkExistence reports every mandatory key of tokens missing from values.
func (s *schemaCompliance) checkExistence(owner report.EntityReport, tokens []int32, values map[int32]store.Value) {
	if len(s.mandatory) == 0 {
		return
	}
	var missing []int32
	for _, t := range tokens {
		for _, key := range s.mandatory[t] {
			if _, ok := values[key]; !ok && !slices.Contains(missing, key) {
				missing = append(missing, key)
			}
		}
	}
	slices.Sort(missing)
	for _, key := range missing {
		owner.MissingMandatoryProperty(key)
	}
}

// checkIndexed verifies that the entity is indexed exactly once by every
// small index covering it, and that unique indexes map its values to it alone.
func (s *schemaCompliance) checkIndexed(owner report.EntityReport, id int64, tokens []int32, values map[int32]store.Value) {
	for _, idx := range s.indexes {
		desc := idx.Descriptor()
		if !desc.Matches(tokens) || !s.collect(desc.Keys, values) {
			continue
		}
		text := describeValues(s.scratch)
		var self int
		var others []int64
		for _, e := range idx.Lookup(s.scratch...) {
			if e == id {
				self++
			} else if !slices.Contains(others, e) {
				others = append(others, e)
			}
		}
		switch {
		case self == 0:
			owner.NotIndexed(desc.ID, text)
		case self > 1:
			owner.IndexedMultipleTimes(desc.ID, text, self)
		}
		if desc.Unique {
			for _, other := range others {
				owner.UniqueIndexNotUnique(desc.ID, text, other)
			}
		}
	}
}

func (s *schemaCompliance) collect(keys []int32, values map[int32]store.Value) bool {
	s.scratch = s.scratch[:0]
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			return false
		}
		s.scratch = append(s.scratch, v)
	}
	return len(keys) > 0
}

func describeValues(values []store.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// smallIndexes returns the indexes of entity with fewer than threshold entries.
func smallIndexes(all []index.Accessor, entity index.EntityType, threshold int64) []index.Accessor {
	var out []index.Accessor
	for _, idx := range all {
		if idx.Descriptor().Entity == entity && idx.Size() < threshold {
			out = append(out, idx)
		}
	}
	return out
}

// compareTokens merges two sorted token lists. storeOnly is called for
// tokens only the entity has, indexOnly for tokens only the index has. With
// MatchPartialAny, index-only tokens are reported only if nothing matched.
func compareTokens(match index.MatchType, storeTokens, indexTokens []int32, storeOnly, indexOnly func(int32)) {
	var i, j, hits int
	var missing []int32
	for i < len(storeTokens) || j < len(indexTokens) {
		switch {
		case j == len(indexTokens) || (i < len(storeTokens) && storeTokens[i] < indexTokens[j]):
			storeOnly(storeTokens[i])
			i++
		case i == len(storeTokens) || indexTokens[j] < storeTokens[i]:
			missing = append(missing, indexTokens[j])
			j++
		default:
			hits++
			i++
			j++
		}
	}
	if match == index.MatchPartialAny && hits > 0 {
		return
	}
	for _, t := range missing {
		indexOnly(t)
	}
}
