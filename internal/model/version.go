package model

import "fmt"

// VersionKind distinguishes mutable branch-like revisions from
// immutable tag-like ones.
type VersionKind int

const (
	// Dynamic versions are branch-like pointers; jobs may retarget
	// references at them and commit onto them.
	Dynamic VersionKind = iota
	// Static versions are tag-like and immutable. A job must never
	// mutate a module checked out at a static version.
	Static
)

func (k VersionKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return fmt.Sprintf("VersionKind(%d)", int(k))
	}
}

// ParseVersionKind is the inverse of VersionKind.String.
func ParseVersionKind(s string) (VersionKind, error) {
	switch s {
	case "dynamic":
		return Dynamic, nil
	case "static":
		return Static, nil
	default:
		return 0, fmt.Errorf("unknown version kind %q", s)
	}
}

// Version is a revision identifier of a module. The zero Version means
// "default": the module's configured mainline, resolved by the
// source-control plugin.
type Version struct {
	Kind  VersionKind
	Value string
}

// DynamicVersion returns a branch-like version.
func DynamicVersion(value string) Version { return Version{Kind: Dynamic, Value: value} }

// StaticVersion returns a tag-like version.
func StaticVersion(value string) Version { return Version{Kind: Static, Value: value} }

// IsZero reports whether v is the default (absent) version.
func (v Version) IsZero() bool { return v == Version{} }

func (v Version) String() string {
	if v.IsZero() {
		return "<default>"
	}
	return v.Value
}

// ModuleVersion is a module pinned to a version. Two ModuleVersions
// with equal paths but different versions are distinct.
type ModuleVersion struct {
	Path    NodePath
	Version Version
}

func (mv ModuleVersion) String() string {
	if mv.Version.IsZero() {
		return mv.Path.String()
	}
	return mv.Path.String() + "@" + mv.Version.Value
}
