package common

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvitorovic/scaffold-eth-2/config"
)

type Config struct {
	Version      string                   `json:"version" yaml:"version"`
	Project      ProjectConfig            `json:"project" yaml:"project"`
	Networks     map[string]NetworkConfig `json:"networks" yaml:"networks"`
	Verification VerificationConfig       `json:"verification" yaml:"verification"`
	Telemetry    TelemetryConfig          `json:"telemetry" yaml:"telemetry"`
}

type ProjectConfig struct {
	Name           string `json:"name" yaml:"name"`
	DefaultNetwork string `json:"default_network" yaml:"default_network"`
	DeploymentsDir string `json:"deployments_dir" yaml:"deployments_dir"`
	ArtifactsDir   string `json:"artifacts_dir" yaml:"artifacts_dir"`
}

type NetworkConfig struct {
	RPCURL             string             `json:"rpc_url" yaml:"rpc_url"`
	ChainID            int64              `json:"chain_id" yaml:"chain_id"`
	DeployerPrivateKey string             `json:"deployer_private_key" yaml:"deployer_private_key"`
	DeployerKeystore   *KeystoreConfig    `json:"deployer_keystore,omitempty" yaml:"deployer_keystore,omitempty"`
	GasLimit           uint64             `json:"gas_limit" yaml:"gas_limit"`
	AutoMine           bool               `json:"auto_mine" yaml:"auto_mine"`
	Timeout            time.Duration      `json:"timeout" yaml:"timeout"`
	Faucet             FaucetConfig       `json:"faucet" yaml:"faucet"`
	Distribution       DistributionConfig `json:"distribution" yaml:"distribution"`
}

type KeystoreConfig struct {
	Path     string `json:"path" yaml:"path"`
	Password string `json:"password" yaml:"password"`
}

type FaucetConfig struct {
	Method           string `json:"method" yaml:"method"`
	Amount           string `json:"amount" yaml:"amount"`
	FunderPrivateKey string `json:"funder_private_key" yaml:"funder_private_key"`
}

type DistributionConfig struct {
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

type VerificationConfig struct {
	Tenderly TenderlyConfig `json:"tenderly" yaml:"tenderly"`
}

type TenderlyConfig struct {
	APIURL    string `json:"api_url" yaml:"api_url"`
	Account   string `json:"account" yaml:"account"`
	Project   string `json:"project" yaml:"project"`
	AccessKey string `json:"access_key" yaml:"access_key"`
}

type TelemetryConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	PostHogAPIKey string `json:"posthog_api_key" yaml:"posthog_api_key"`
}

// LoadConfig reads the config file at path. When path is the default location and
// the file does not exist, the embedded default config is used instead.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || path != DefaultConfigPath {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
		data = []byte(config.DefaultConfigYaml)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.DeploymentsDir == "" {
		c.Project.DeploymentsDir = DefaultDeploymentsDir
	}
	if c.Project.ArtifactsDir == "" {
		c.Project.ArtifactsDir = DefaultArtifactsDir
	}
	if c.Verification.Tenderly.APIURL == "" {
		c.Verification.Tenderly.APIURL = "https://api.tenderly.co"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TENDERLY_ACCESS_KEY"); v != "" {
		c.Verification.Tenderly.AccessKey = v
	}
	if v := os.Getenv("TENDERLY_ACCOUNT"); v != "" {
		c.Verification.Tenderly.Account = v
	}
	if v := os.Getenv("TENDERLY_PROJECT"); v != "" {
		c.Verification.Tenderly.Project = v
	}
}

// Network resolves a network entry by name, falling back to project.default_network
// when name is empty. Environment overrides and defaults are applied to the copy returned.
func (c *Config) Network(name string) (string, NetworkConfig, error) {
	if name == "" {
		name = c.Project.DefaultNetwork
	}
	if name == "" {
		return "", NetworkConfig{}, fmt.Errorf("no network selected; pass --network or set project.default_network")
	}

	network, ok := c.Networks[name]
	if !ok {
		return "", NetworkConfig{}, fmt.Errorf("network %q not found in configuration", name)
	}

	// Check in env first for the RPC url, e.g. LOCALHOST_RPC_URL
	envPrefix := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if v := os.Getenv(envPrefix + "_RPC_URL"); v != "" {
		network.RPCURL = v
	}
	if v := os.Getenv("DEPLOYER_PRIVATE_KEY"); v != "" {
		network.DeployerPrivateKey = v
	}

	if network.GasLimit == 0 {
		network.GasLimit = DefaultGasLimit
	}
	if network.Timeout == 0 {
		network.Timeout = DefaultTimeout
	}
	if network.Distribution.Concurrency <= 0 {
		network.Distribution.Concurrency = DefaultConcurrency
	}
	if network.Faucet.Method == "" {
		network.Faucet.Method = FaucetNone
	}

	if network.RPCURL == "" {
		return "", NetworkConfig{}, fmt.Errorf("rpc_url not set for %s; set it in %s or %s_RPC_URL in .env", name, DefaultConfigPath, envPrefix)
	}
	if network.DeployerPrivateKey == "" && network.DeployerKeystore == nil {
		return "", NetworkConfig{}, fmt.Errorf("no deployer key configured for %s; set deployer_private_key, deployer_keystore or DEPLOYER_PRIVATE_KEY", name)
	}

	return name, network, nil
}

// IsLocal reports whether the network is a local development node where
// auto-mining is meaningful.
func (n NetworkConfig) IsLocal() bool {
	return n.ChainID == HardhatChainID || n.ChainID == GanacheChainID
}

// AutoMineEnabled is true only for local networks; the flag has no effect on live networks.
func (n NetworkConfig) AutoMineEnabled() bool {
	return n.AutoMine && n.IsLocal()
}

// Enabled reports whether Tenderly credentials are complete.
func (t TenderlyConfig) Enabled() bool {
	return t.Account != "" && t.Project != "" && t.AccessKey != ""
}
