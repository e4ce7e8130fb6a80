// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"slices"
	"strings"
)

// DiffMap compares two mappings and returns the keys that were added or
// changed in new and the keys that were deleted from old. Both slices are
// sorted and never share a key.
func DiffMap(old, new map[string]string) (changed, deleted []string) {
	for k, v := range new {
		if ov, ok := old[k]; !ok || ov != v {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			deleted = append(deleted, k)
		}
	}
	slices.Sort(changed)
	slices.Sort(deleted)
	return changed, deleted
}

// DiffSet returns new minus old and old minus new, both sorted.
func DiffSet(old, new map[string]struct{}) (added, removed []string) {
	for k := range new {
		if _, ok := old[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			removed = append(removed, k)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}

// JoinShellwords joins words into one string that `buildah config --cmd`
// splits back with shell-word rules. Each word is wrapped in single quotes.
//
// Embedded single quotes are not escaped, so a word containing ' does not
// survive the round trip.
func JoinShellwords(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return strings.Join(quoted, " ")
}
