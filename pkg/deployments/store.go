// Package deployments keeps a per-network manifest of deployed contracts and
// deploys contracts from their compiled artifacts.
package deployments

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownContract = errors.New("no deployment recorded")

const chainIDFile = ".chainId"

// Record describes one deployed contract on one network.
type Record struct {
	Name        string          `json:"name"`
	Address     common.Address  `json:"address"`
	Args        json.RawMessage `json:"args"`
	TxHash      common.Hash     `json:"txHash"`
	BlockNumber uint64          `json:"blockNumber"`
	ChainID     int64           `json:"chainId"`
	DeployedAt  time.Time       `json:"deployedAt"`
}

// Store reads and writes records under <root>/<network>/<Name>.json.
type Store struct {
	dir     string
	network string
	chainID int64
}

func NewStore(root, network string, chainID int64) *Store {
	return &Store{dir: filepath.Join(root, network), network: network, chainID: chainID}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Network() string { return s.network }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// checkChainID fails when the directory was written for another chain.
func (s *Store) checkChainID() error {
	data, err := os.ReadFile(filepath.Join(s.dir, chainIDFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", chainIDFile, err)
	}
	recorded, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s in %s: %w", chainIDFile, s.dir, err)
	}
	if recorded != s.chainID {
		return fmt.Errorf("deployments in %s belong to chain %d, connected to chain %d", s.dir, recorded, s.chainID)
	}
	return nil
}

// Get returns the record for name, or ErrUnknownContract.
func (s *Store) Get(name string) (*Record, error) {
	if err := s.checkChainID(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s on %s: %w", name, s.network, ErrUnknownContract)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment %s: %w", name, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse deployment %s: %w", name, err)
	}
	return &rec, nil
}

// Save writes rec, replacing any previous record for the same name.
func (s *Store) Save(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	if err := s.checkChainID(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, chainIDFile), []byte(strconv.FormatInt(s.chainID, 10)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", chainIDFile, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployment %s: %w", rec.Name, err)
	}

	// write then rename so a crash never leaves a half-written record
	tmp, err := os.CreateTemp(s.dir, rec.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write deployment %s: %w", rec.Name, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write deployment %s: %w", rec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write deployment %s: %w", rec.Name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.Name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write deployment %s: %w", rec.Name, err)
	}
	return nil
}

// Delete removes the record for name. Removing a missing record is not an error.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete deployment %s: %w", name, err)
	}
	return nil
}

// List returns every record of the network sorted by name.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
