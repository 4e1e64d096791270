package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const buildInfoDir = "build-info"

// BuildInfo is the solc standard-json input Hardhat records for a compilation.
type BuildInfo struct {
	SolcVersion     string    `json:"solcVersion"`
	SolcLongVersion string    `json:"solcLongVersion"`
	Input           SolcInput `json:"input"`
}

type SolcInput struct {
	Language string                `json:"language"`
	Sources  map[string]SolcSource `json:"sources"`
	Settings SolcSettings          `json:"settings"`
}

type SolcSource struct {
	Content string `json:"content"`
}

type SolcSettings struct {
	Optimizer struct {
		Enabled bool `json:"enabled"`
		Runs    int  `json:"runs"`
	} `json:"optimizer"`
	EVMVersion string `json:"evmVersion,omitempty"`
}

// debugFile is the <Name>.dbg.json Hardhat writes next to each artifact.
type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// BuildInfo returns the compilation that produced the named artifact. The
// artifact's .dbg.json link is followed first; otherwise build-info/ is searched
// for a compilation containing the artifact's source.
func (l *Loader) BuildInfo(name string) (*BuildInfo, error) {
	artifact, err := l.Load(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	path := l.paths[name]
	l.mu.Unlock()

	dbgPath := strings.TrimSuffix(path, ".json") + ".dbg.json"
	if data, err := os.ReadFile(dbgPath); err == nil {
		var dbg debugFile
		if err := json.Unmarshal(data, &dbg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", dbgPath, err)
		}
		if dbg.BuildInfo != "" {
			return readBuildInfo(filepath.Join(filepath.Dir(dbgPath), dbg.BuildInfo))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", dbgPath, err)
	}

	entries, err := os.ReadDir(filepath.Join(l.dir, buildInfoDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to list build info: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := readBuildInfo(filepath.Join(l.dir, buildInfoDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, ok := info.Input.Sources[artifact.SourceName]; ok {
			return info, nil
		}
	}
	return nil, fmt.Errorf("build info for %s (%s): %w", name, artifact.SourceName, ErrNotFound)
}

func readBuildInfo(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build info %s: %w", path, err)
	}
	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode build info %s: %w", path, err)
	}
	return &info, nil
}
