// Package artifacts reads compiled contract artifacts in the Hardhat JSON format.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrNotFound = errors.New("artifact not found")

type Artifact struct {
	ContractName string
	SourceName   string
	ABI          abi.ABI
	Bytecode     []byte
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// Parse decodes a single artifact document.
func Parse(data []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %q has no abi", raw.ContractName)
	}

	parsed, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi of %q: %w", raw.ContractName, err)
	}

	artifact := &Artifact{
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		ABI:          parsed,
	}
	if artifact.Bytecode, err = decodeHex(raw.Bytecode); err != nil {
		return nil, fmt.Errorf("invalid bytecode in %q: %w", raw.ContractName, err)
	}
	return artifact, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// Loader resolves artifacts by contract name under a Hardhat artifacts dir and
// caches them for the life of the process.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Artifact
	paths map[string]string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]*Artifact), paths: make(map[string]string)}
}

// Load returns the artifact for name.
func (l *Loader) Load(name string) (*Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if artifact, ok := l.cache[name]; ok {
		return artifact, nil
	}

	path, err := l.find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	artifact, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if artifact.ContractName == "" {
		artifact.ContractName = name
	}

	l.cache[name] = artifact
	l.paths[name] = path
	return artifact, nil
}

func (l *Loader) find(name string) (string, error) {
	candidates := []string{
		filepath.Join(l.dir, "contracts", name+".sol", name+".json"),
		filepath.Join(l.dir, name+".json"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	// Contracts in nested source folders, e.g. contracts/tokens/ERC20Token.sol/ERC20Token.json
	var found string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name+".json" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to search artifacts in %s: %w", l.dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%s in %s: %w", name, l.dir, ErrNotFound)
	}
	return found, nil
}
