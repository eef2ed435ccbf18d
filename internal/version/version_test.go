// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "without build time",
			info: Info{Version: "v1.0.0", GitCommit: "abc1234", GoVersion: "go1.25"},
			want: "oblog v1.0.0 (commit abc1234, go1.25)",
		},
		{
			name: "with build time",
			info: Info{Version: "v1.0.0", GitCommit: "abc1234", GoVersion: "go1.25", BuildTime: "2026-01-30T12:00:00Z"},
			want: "oblog v1.0.0 (commit abc1234, go1.25) built 2026-01-30T12:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	if !strings.HasPrefix(Get().String(), "oblog dev") {
		t.Errorf("unexpected default version string %q", Get().String())
	}
}
