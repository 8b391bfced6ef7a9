package config

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// envFileNames are read in order; earlier files win.
var envFileNames = []string{".env.local", ".env"}

// loadEnvFiles sets environment variables from .env.local and .env in the
// working directory and next to the executable. Variables that are already
// set are left alone.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" && (len(dirs) == 0 || dir != dirs[0]) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		for _, name := range envFileNames {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			for key, value := range parseEnvFile(data) {
				if os.Getenv(key) == "" {
					_ = os.Setenv(key, value)
				}
			}
		}
	}
}

// parseEnvFile reads KEY=value lines. Blank lines, # comments and an
// optional "export " prefix are accepted; surrounding quotes are stripped.
func parseEnvFile(data []byte) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		} else if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out
}
