package model

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("node not found")

// NodePath identifies a location in the classification hierarchy.
// The canonical form is slash-separated segments with no leading or
// trailing slash ("releng/tools/builder"). The empty path addresses
// the hierarchy root.
type NodePath string

// ParsePath normalizes a user-supplied path into canonical form.
// Leading and trailing slashes are stripped; empty segments collapse.
func ParsePath(s string) NodePath {
	parts := strings.Split(s, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return NodePath(strings.Join(segs, "/"))
}

// Segments returns the ordered path segments. The root path has none.
func (p NodePath) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// IsRoot reports whether p addresses the hierarchy root.
func (p NodePath) IsRoot() bool { return p == "" }

// Child returns the path extended by one segment.
func (p NodePath) Child(seg string) NodePath {
	if p == "" {
		return NodePath(seg)
	}
	return NodePath(string(p) + "/" + seg)
}

// Parent returns the path with its last segment removed.
// The root path is its own parent.
func (p NodePath) Parent() NodePath {
	i := strings.LastIndexByte(string(p), '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Name returns the last segment, or "" for the root.
func (p NodePath) Name() string {
	i := strings.LastIndexByte(string(p), '/')
	return string(p[i+1:])
}

func (p NodePath) String() string {
	if p == "" {
		return "/"
	}
	return "/" + string(p)
}
