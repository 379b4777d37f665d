package traverse

import (
	"fmt"
	"testing"

	"github.com/release-tools/refwalk/internal/model"
)

func TestGuardByModule(t *testing.T) {
	g := NewGuard(ByModule)
	trunk := model.ModuleVersion{Path: "a", Version: model.DynamicVersion("trunk")}
	v2 := model.ModuleVersion{Path: "a", Version: model.DynamicVersion("v2")}

	if !g.ShouldProcess(trunk) {
		t.Fatal("first visit must be admitted")
	}
	if g.ShouldProcess(trunk) {
		t.Error("second visit of same version must be refused")
	}
	if g.ShouldProcess(v2) {
		t.Error("by-module granularity must refuse a different version too")
	}
	if !g.Seen(v2) {
		t.Error("Seen should report the module as visited")
	}
}

func TestGuardByModuleVersion(t *testing.T) {
	g := NewGuard(ByModuleVersion)
	trunk := model.ModuleVersion{Path: "a", Version: model.DynamicVersion("trunk")}
	v2 := model.ModuleVersion{Path: "a", Version: model.DynamicVersion("v2")}

	if !g.ShouldProcess(trunk) || !g.ShouldProcess(v2) {
		t.Fatal("distinct versions must each be admitted once")
	}
	if g.ShouldProcess(trunk) || g.ShouldProcess(v2) {
		t.Error("repeat visits must be refused")
	}
}

func TestGuardManyKeys(t *testing.T) {
	g := NewGuard(ByModuleVersion)
	for i := 0; i < 10000; i++ {
		mv := model.ModuleVersion{Path: "m", Version: model.DynamicVersion(fmt.Sprintf("rev-%d", i))}
		if !g.ShouldProcess(mv) {
			t.Fatalf("fresh key rev-%d refused", i)
		}
	}
	mv := model.ModuleVersion{Path: "m", Version: model.DynamicVersion("rev-4242")}
	if g.ShouldProcess(mv) {
		t.Error("previously admitted key must stay refused")
	}
}
