package scm

import (
	"context"
	"fmt"

	"github.com/release-tools/refwalk/internal/model"
)

// CommitRecord captures one Fake.Commit call.
type CommitRecord struct {
	Module     model.ModuleVersion
	Dir        string
	Message    string
	Attributes map[string]string
}

// Fake is an in-memory System for tests. The zero value treats every
// module as checked out at a synthetic directory and synchronized.
type Fake struct {
	// Dirs overrides the directory returned for a module version.
	Dirs map[model.ModuleVersion]string
	// Unsynced marks module versions that fail the sync check.
	Unsynced map[model.ModuleVersion]bool
	// Versions lists the versions that exist per module path. A nil
	// map means every version exists.
	Versions map[model.NodePath][]model.Version
	// CheckoutErr, if set, fails every checkout.
	CheckoutErr error

	Commits   []CommitRecord
	Checkouts []model.ModuleVersion
}

func (f *Fake) Checkout(ctx context.Context, mv model.ModuleVersion) (string, error) {
	if f.CheckoutErr != nil {
		return "", f.CheckoutErr
	}
	f.Checkouts = append(f.Checkouts, mv)
	if d, ok := f.Dirs[mv]; ok {
		return d, nil
	}
	return "/ws/" + string(mv.Path), nil
}

func (f *Fake) IsSynchronized(ctx context.Context, mv model.ModuleVersion, dir string) (bool, error) {
	return !f.Unsynced[mv], nil
}

func (f *Fake) Commit(ctx context.Context, mv model.ModuleVersion, dir, message string, attributes map[string]string) error {
	f.Commits = append(f.Commits, CommitRecord{Module: mv, Dir: dir, Message: message, Attributes: attributes})
	return nil
}

func (f *Fake) VersionExists(ctx context.Context, mv model.ModuleVersion) (bool, error) {
	if mv.Version.IsZero() {
		return true, nil
	}
	if f.Versions == nil {
		return true, nil
	}
	for _, v := range f.Versions[mv.Path] {
		if v == mv.Version {
			return true, nil
		}
	}
	return false, nil
}

var _ System = (*Fake)(nil)

// String makes Fake useful in failure messages.
func (f *Fake) String() string {
	return fmt.Sprintf("scm.Fake{%d checkouts, %d commits}", len(f.Checkouts), len(f.Commits))
}
