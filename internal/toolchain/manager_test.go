package toolchain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectManager(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Manager
	}{
		{name: "no lock file", files: nil, want: NPM},
		{name: "npm lock", files: map[string]string{"package-lock.json": "{}"}, want: NPM},
		{name: "pnpm lock", files: map[string]string{"pnpm-lock.yaml": ""}, want: PNPM},
		{name: "pnpm workspace protocol", files: map[string]string{"package.json": `{"dependencies":{"ui":"workspace:*"}}`}, want: PNPM},
		{name: "bun lock", files: map[string]string{"bun.lockb": ""}, want: Bun},
		{name: "yarn lock", files: map[string]string{"yarn.lock": ""}, want: Yarn},
		{name: "pnpm wins over yarn", files: map[string]string{"yarn.lock": "", "pnpm-lock.yaml": ""}, want: PNPM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if got := DetectManager(dir); got != tt.want {
				t.Errorf("DetectManager() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseManager(t *testing.T) {
	tests := []struct {
		in     string
		want   Manager
		wantOK bool
	}{
		{"", NPM, true},
		{"npm", NPM, true},
		{" PNPM ", PNPM, true},
		{"auto", Auto, true},
		{"cargo", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseManager(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseManager(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExecutableNames(t *testing.T) {
	if got := executableNames("windows", NPM); len(got) != 2 || got[0] != "npm.cmd" || got[1] != "npm" {
		t.Errorf("windows names = %v", got)
	}
	if got := executableNames("linux", Yarn); len(got) != 1 || got[0] != "yarn" {
		t.Errorf("linux names = %v", got)
	}
}
