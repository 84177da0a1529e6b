package model

import "strings"

// Permission is one entry of the fixed access-code catalog. The
// catalog is seeded once at startup and never mutated by request
// flows. Codes follow the `<verb>_<resource>` convention where the
// verb is one of manage/create/read/update/delete; `manage_X` implies
// the four CRUD codes for the same resource X.
//
// Fields:
//  ID       - primary key, store-generated.
//  Code     - unique permission code (e.g. "read_role").
//  Resource - resource the code applies to (e.g. "role").
type Permission struct {
	ID       uint64 `gorm:"primaryKey"`
	Code     string `gorm:"uniqueIndex;size:100;not null"`
	Resource string `gorm:"size:100;not null"`
}

// TableName overrides GORM's default table naming.
func (Permission) TableName() string { return "permissions" }

// ManageVerb is the verb whose code implies all CRUD codes for the
// same resource.
const ManageVerb = "manage"

// PermissionVerbs lists the verbs in the catalog. ManageVerb comes
// first so seeded codes group naturally per resource.
var PermissionVerbs = []string{ManageVerb, "create", "read", "update", "delete"}

// PermissionResources lists the resources the platform guards.
var PermissionResources = []string{"user", "role", "file", "email"}

// PermissionCode builds the canonical `<verb>_<resource>` code.
func PermissionCode(verb, resource string) string {
	return verb + "_" + resource
}

// ResourceOf extracts the resource name from a permission code: the
// segment after the first verb token. "create_file" yields "file";
// codes without an underscore yield the empty string.
func ResourceOf(code string) string {
	_, resource, ok := strings.Cut(code, "_")
	if !ok {
		return ""
	}
	return resource
}

// ManageCodeFor returns the manage code that supersedes the given
// permission code, e.g. "create_file" -> "manage_file".
func ManageCodeFor(code string) string {
	resource := ResourceOf(code)
	if resource == "" {
		return ""
	}
	return PermissionCode(ManageVerb, resource)
}
