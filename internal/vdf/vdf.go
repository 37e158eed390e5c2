// Package vdf writes the Valve Data Format build files that
// run_app_build consumes. The format is a simple quoted key/value tree;
// SteamCMD is strict about backslash path separators and trailing
// separators on directory values, so those are produced explicitly
// regardless of the host platform.
package vdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildSpec is everything needed to generate one app build.
type BuildSpec struct {
	AppID       int
	DepotID     int
	Branch      string
	Description string

	// ContentRoot is the directory whose contents get uploaded.
	ContentRoot string

	// BuildOutput is where SteamCMD writes build logs and caches.
	BuildOutput string

	// OutputDir is where the .vdf files are written.
	OutputDir string
}

func (s *BuildSpec) validate() error {
	if s.AppID <= 0 {
		return fmt.Errorf("app id must be positive, got %d", s.AppID)
	}
	if s.DepotID <= 0 {
		return fmt.Errorf("depot id must be positive, got %d", s.DepotID)
	}
	if s.ContentRoot == "" {
		return fmt.Errorf("content root is required")
	}
	if s.OutputDir == "" {
		return fmt.Errorf("output dir is required")
	}
	return nil
}

// Files are the generated artifact paths. AppFile is what run_app_build
// takes as its argument.
type Files struct {
	AppFile   string
	DepotFile string
}

// WriteBuildFiles generates app_<appid>.vdf and depot_<depotid>.vdf under
// spec.OutputDir, creating the directory if needed.
func WriteBuildFiles(spec *BuildSpec) (*Files, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create vdf output dir: %w", err)
	}

	depotName := fmt.Sprintf("depot_%d.vdf", spec.DepotID)
	depotPath := filepath.Join(spec.OutputDir, depotName)
	if err := os.WriteFile(depotPath, []byte(depotVDF(spec)), 0o644); err != nil {
		return nil, fmt.Errorf("write depot vdf: %w", err)
	}

	appPath := filepath.Join(spec.OutputDir, fmt.Sprintf("app_%d.vdf", spec.AppID))
	if err := os.WriteFile(appPath, []byte(appVDF(spec, depotName)), 0o644); err != nil {
		return nil, fmt.Errorf("write app vdf: %w", err)
	}

	return &Files{AppFile: appPath, DepotFile: depotPath}, nil
}

func appVDF(spec *BuildSpec, depotName string) string {
	var b strings.Builder
	b.WriteString("\"appbuild\"\n{\n")
	fmt.Fprintf(&b, "\t\"appid\" \"%d\"\n", spec.AppID)
	fmt.Fprintf(&b, "\t\"desc\" \"%s\"\n", escapeValue(spec.Description))
	fmt.Fprintf(&b, "\t\"buildoutput\" \"%s\"\n", steamPath(spec.BuildOutput))
	fmt.Fprintf(&b, "\t\"contentroot\" \"%s\"\n", steamPath(spec.ContentRoot))
	fmt.Fprintf(&b, "\t\"setlive\" \"%s\"\n", escapeValue(spec.Branch))
	b.WriteString("\t\"preview\" \"0\"\n")
	b.WriteString("\t\"local\" \"\"\n")
	b.WriteString("\t\"depots\"\n\t{\n")
	fmt.Fprintf(&b, "\t\t\"%d\" \"%s\"\n", spec.DepotID, depotName)
	b.WriteString("\t}\n")
	b.WriteString("}\n")
	return b.String()
}

func depotVDF(spec *BuildSpec) string {
	var b strings.Builder
	b.WriteString("\"DepotBuildConfig\"\n{\n")
	fmt.Fprintf(&b, "\t\"DepotID\" \"%d\"\n", spec.DepotID)
	b.WriteString("\t\"FileMapping\"\n\t{\n")
	b.WriteString("\t\t\"LocalPath\" \"*\"\n")
	b.WriteString("\t\t\"DepotPath\" \".\"\n")
	b.WriteString("\t\t\"recursive\" \"1\"\n")
	b.WriteString("\t}\n")
	b.WriteString("\t\"FileExclusion\" \"*.pdb\"\n")
	b.WriteString("}\n")
	return b.String()
}

// steamPath converts p to the backslash form SteamCMD expects, with a
// trailing separator on directory values. An empty path stays empty.
func steamPath(p string) string {
	if p == "" {
		return ""
	}
	out := strings.ReplaceAll(p, "/", `\`)
	if !strings.HasSuffix(out, `\`) {
		out += `\`
	}
	return escapeValue(out)
}

func escapeValue(v string) string {
	return strings.ReplaceAll(v, `"`, `\"`)
}
