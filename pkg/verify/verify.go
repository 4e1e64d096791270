// Package verify publishes the sources of deployed contracts to a verification service.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
)

// Contract names a deployed contract by its artifact name.
type Contract struct {
	Name    string
	Address common.Address
}

type Verifier interface {
	Verify(ctx context.Context, contracts ...Contract) error
}

// Sources resolves the artifact and compiler input of a contract by name;
// *artifacts.Loader satisfies it.
type Sources interface {
	Load(name string) (*artifacts.Artifact, error)
	BuildInfo(name string) (*artifacts.BuildInfo, error)
}

// New returns a Tenderly verifier when credentials are configured, and a
// verifier that only logs otherwise.
func New(cfg devcommon.TenderlyConfig, chainID int64, sources Sources, logger iface.Logger) Verifier {
	if !cfg.Enabled() {
		return NoopVerifier{logger: logger}
	}
	return NewTenderlyVerifier(cfg, chainID, sources, logger, nil)
}

type NoopVerifier struct {
	logger iface.Logger
}

func (v NoopVerifier) Verify(_ context.Context, contracts ...Contract) error {
	for _, c := range contracts {
		v.logger.Debug("Verification not configured, skipping %s at %s", c.Name, c.Address.Hex())
	}
	return nil
}

// TenderlyVerifier uploads contract sources and compiler settings to a Tenderly
// project, which verifies them against the deployed bytecode.
type TenderlyVerifier struct {
	cfg       devcommon.TenderlyConfig
	networkID string
	sources   Sources
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	logger    iface.Logger
}

// NewTenderlyVerifier builds a verifier; a nil client means a default client with a 30s timeout.
func NewTenderlyVerifier(cfg devcommon.TenderlyConfig, chainID int64, sources Sources, logger iface.Logger, client *http.Client) *TenderlyVerifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TenderlyVerifier{
		cfg:       cfg,
		networkID: strconv.FormatInt(chainID, 10),
		sources:   sources,
		client:    client,
		breaker:   newCircuitBreaker("tenderly"),
		logger:    logger,
	}
}

// newCircuitBreaker trips after 3 consecutive failures and lets a trial request through after 30 seconds.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

type verifyRequest struct {
	Config    compilerConfig   `json:"config"`
	Contracts []contractSource `json:"contracts"`
}

type compilerConfig struct {
	CompilerVersion    string `json:"compiler_version"`
	OptimizationsUsed  bool   `json:"optimizations_used"`
	OptimizationsCount int    `json:"optimizations_count"`
	EVMVersion         string `json:"evm_version,omitempty"`
}

type contractSource struct {
	ContractName string                     `json:"contractName"`
	Source       string                     `json:"source"`
	SourcePath   string                     `json:"sourcePath"`
	Networks     map[string]contractNetwork `json:"networks,omitempty"`
	Compiler     compilerVersion            `json:"compiler"`
}

type contractNetwork struct {
	Address string            `json:"address"`
	Links   map[string]string `json:"links"`
}

type compilerVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// buildRequest packs every source of the contract's compilation; only the
// contract itself carries the deployed address.
func (v *TenderlyVerifier) buildRequest(c Contract) (*verifyRequest, error) {
	artifact, err := v.sources.Load(c.Name)
	if err != nil {
		return nil, err
	}
	info, err := v.sources.BuildInfo(c.Name)
	if err != nil {
		return nil, err
	}
	if _, ok := info.Input.Sources[artifact.SourceName]; !ok {
		return nil, fmt.Errorf("build info of %s does not contain %s", c.Name, artifact.SourceName)
	}

	compiler := compilerVersion{Name: "solc", Version: info.SolcVersion}
	req := &verifyRequest{
		Config: compilerConfig{
			CompilerVersion:    info.SolcVersion,
			OptimizationsUsed:  info.Input.Settings.Optimizer.Enabled,
			OptimizationsCount: info.Input.Settings.Optimizer.Runs,
			EVMVersion:         info.Input.Settings.EVMVersion,
		},
	}

	paths := make([]string, 0, len(info.Input.Sources))
	for path := range info.Input.Sources {
		if path != artifact.SourceName {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	paths = append([]string{artifact.SourceName}, paths...)

	for _, path := range paths {
		src := contractSource{
			ContractName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Source:       info.Input.Sources[path].Content,
			SourcePath:   path,
			Compiler:     compiler,
		}
		if path == artifact.SourceName {
			src.ContractName = artifact.ContractName
			src.Networks = map[string]contractNetwork{
				v.networkID: {Address: strings.ToLower(c.Address.Hex()), Links: map[string]string{}},
			}
		}
		req.Contracts = append(req.Contracts, src)
	}
	return req, nil
}

// Verify uploads each contract. Every contract is attempted; failures are joined.
func (v *TenderlyVerifier) Verify(ctx context.Context, contracts ...Contract) error {
	var errs []error
	for _, c := range contracts {
		payload, err := v.buildRequest(c)
		if err == nil {
			_, err = v.breaker.Execute(func() (interface{}, error) {
				return nil, v.post(ctx, payload)
			})
		}
		if err != nil {
			v.logger.Warn("Tenderly verification of %s at %s failed: %v", c.Name, c.Address.Hex(), err)
			errs = append(errs, fmt.Errorf("verify %s: %w", c.Name, err))
			continue
		}
		v.logger.Info("✅ Verified %s at %s on Tenderly", c.Name, c.Address.Hex())
	}
	return errors.Join(errs...)
}

func (v *TenderlyVerifier) post(ctx context.Context, payload *verifyRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/account/%s/project/%s/contracts",
		strings.TrimRight(v.cfg.APIURL, "/"), v.cfg.Account, v.cfg.Project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", v.cfg.AccessKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tenderly returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
