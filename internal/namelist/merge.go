package namelist

import (
	"encoding/json"
	"strings"

	"gradlist/internal"
)

// Decode parses the stored namelist column into its degree tracks. A
// non-empty value that is not the aggregate JSON document is treated as
// a single pre-migration track under legacyKey instead of being
// discarded.
func Decode(stored, legacyKey string) map[string]internal.DegreeEntry {
	tracks, _ := decode(stored, legacyKey)
	return tracks
}

func decode(stored, legacyKey string) (map[string]internal.DegreeEntry, bool) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return map[string]internal.DegreeEntry{}, false
	}

	tracks := map[string]internal.DegreeEntry{}
	if err := json.Unmarshal([]byte(stored), &tracks); err != nil {
		return map[string]internal.DegreeEntry{
			legacyKey: {Names: stored, HasNames: true},
		}, true
	}
	return tracks, false
}

// Lookup resolves one degree track from the stored column. An
// un-migrated bare-string row carries no per-degree structure, so its
// single list answers for every requested degree.
func Lookup(stored, degree, legacyKey string) (internal.DegreeEntry, bool) {
	tracks, legacy := decode(stored, legacyKey)
	if entry, ok := tracks[degree]; ok {
		return entry, true
	}
	if legacy {
		return tracks[legacyKey], true
	}
	return internal.DegreeEntry{}, false
}

// Merge replaces exactly one degree track in the stored document and
// returns the new serialized aggregate. Sibling tracks are carried
// through untouched; legacy bare-string values survive under legacyKey
// and are never written back in the legacy format.
func Merge(stored, degree string, names []string, hasNames bool, legacyKey string) (string, error) {
	tracks := Decode(stored, legacyKey)
	tracks[degree] = internal.DegreeEntry{
		Names:    strings.Join(names, ","),
		HasNames: hasNames,
	}

	blob, err := json.Marshal(tracks)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}
