// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	if buildFlags != nil {
		origFlags = *buildFlags
	}

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	if buildFlags != nil {
		*buildFlags = origFlags
	}

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "t", "c", "v", "BuildName is required"},
		{"Missing BuildTime", "n", "", "c", "v", "BuildTime is required"},
		{"Missing BuildCommit", "n", "t", "", "v", "BuildCommit is required"},
		{"Missing BuildVersion", "n", "t", "c", "", "BuildVersion is required"},
		{"All Present", "spectrum", "2026-01-01T00:00:00Z", "abc123", "0.1.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()
			if tt.wantErrMsg == "" {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
				flags := GetBuildFlags()
				if flags.Name != tt.buildName || flags.Version != tt.buildVer {
					t.Errorf("GetBuildFlags() = %+v, expected name %q version %q", flags, tt.buildName, tt.buildVer)
				}
				if !strings.Contains(flags.String(), tt.buildVer) {
					t.Errorf("String() = %q, expected to contain %q", flags.String(), tt.buildVer)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErrMsg {
				t.Errorf("Initialize() error = %v, expected %q", err, tt.wantErrMsg)
			}
		})
	}
}
