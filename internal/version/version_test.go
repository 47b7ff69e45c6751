package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "v1.2.3"

	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if !strings.HasPrefix(Long(), "v1.2.3 (") {
		t.Errorf("Long() = %q", Long())
	}
}
