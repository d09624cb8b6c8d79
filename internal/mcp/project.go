package mcp

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ProjectDetector reads the project's own manifests to report a real
// name and type instead of just the directory basename.
type ProjectDetector struct {
	rootPath string
	logger   *slog.Logger
}

// NewProjectDetector builds a detector for a root directory.
func NewProjectDetector(rootPath string, logger *slog.Logger) *ProjectDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectDetector{rootPath: rootPath, logger: logger}
}

// Detect tries go.mod, then package.json, then pyproject.toml. When
// none yields a name, the directory name stands in and the type stays
// unknown.
func (d *ProjectDetector) Detect() *ProjectInfo {
	info := &ProjectInfo{
		RootPath: d.rootPath,
		Name:     filepath.Base(d.rootPath),
		Type:     "unknown",
	}

	if name := d.detectGoMod(); name != "" {
		info.Name = name
		info.Type = "go"
		return info
	}
	if name := d.detectPackageJSON(); name != "" {
		info.Name = name
		info.Type = "node"
		return info
	}
	if name := d.detectPyproject(); name != "" {
		info.Name = name
		info.Type = "python"
		return info
	}
	return info
}

// detectGoMod reads the module line and keeps its last path segment.
func (d *ProjectDetector) detectGoMod() string {
	file, err := os.Open(filepath.Join(d.rootPath, "go.mod"))
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	moduleRegex := regexp.MustCompile(`^module\s+(.+)$`)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if matches := moduleRegex.FindStringSubmatch(line); len(matches) > 1 {
			return filepath.Base(matches[1])
		}
	}
	return ""
}

// detectPackageJSON reads the name field, unscoping @org/name.
func (d *ProjectDetector) detectPackageJSON() string {
	data, err := os.ReadFile(filepath.Join(d.rootPath, "package.json"))
	if err != nil {
		return ""
	}

	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	name := pkg.Name
	if strings.HasPrefix(name, "@") {
		if parts := strings.Split(name, "/"); len(parts) > 1 {
			name = parts[len(parts)-1]
		}
	}
	return name
}

// detectPyproject scans for name = "..." inside the [project] table.
// A full TOML parser would be overkill for one key.
func (d *ProjectDetector) detectPyproject() string {
	file, err := os.Open(filepath.Join(d.rootPath, "pyproject.toml"))
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	nameRegex := regexp.MustCompile(`^\s*name\s*=\s*["']([^"']+)["']`)
	inProjectSection := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			inProjectSection = strings.TrimSpace(line) == "[project]"
			continue
		}
		if inProjectSection {
			if matches := nameRegex.FindStringSubmatch(line); len(matches) > 1 {
				return matches[1]
			}
		}
	}
	return ""
}
