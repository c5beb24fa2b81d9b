// Package model defines the typed records persisted by the point-of-sale core.
//
// Every collection in the local database stores one of these records as a
// JSON document. Field names in the JSON encoding are the on-disk and
// export/import names and must not change without a schema version bump.
//
// Records are validated at the repository boundary via their Validate
// methods; the store itself never inspects record shapes beyond the primary
// key and the indexed fields.
package model
