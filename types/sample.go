//nolint:revive // types is a common Go package naming convention
package types

import "strings"

// KeyField is the sample field holding the sample key.
// Every tar entry of a sample is named <key>.<field>.
const KeyField = "__key__"

// Sample is a single training sample: a key plus named fields.
//
// Field names carry the encoding by extension (e.g. "jpg", "cls", "json").
// Fields whose name starts with "_" are metadata and are not written
// unless the archive writer is configured to keep them.
type Sample map[string]any

// Key returns the sample key, or "" if missing or not a string.
func (s Sample) Key() string {
	k, _ := s[KeyField].(string)
	return k
}

// IsMetaField reports whether the field name denotes metadata.
func IsMetaField(name string) bool {
	return strings.HasPrefix(name, "_")
}

// FieldExt returns the extension used to pick an encoder for a field:
// the lowercased component after the last ".", or the whole name.
func FieldExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
