package verify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
	"github.com/nvitorovic/scaffold-eth-2/pkg/testutils"
)

const (
	tokenSource = "pragma solidity ^0.8.20;\nimport \"@openzeppelin/contracts/token/ERC20/ERC20.sol\";\ncontract ERC20Token is ERC20 {}\n"
	ozSource    = "pragma solidity ^0.8.20;\ncontract ERC20 {}\n"
)

func tenderlyConfig(url string) devcommon.TenderlyConfig {
	return devcommon.TenderlyConfig{APIURL: url, Account: "acme", Project: "se2", AccessKey: "secret"}
}

// tokenSources lays out a compiled ERC20Token with its build info.
func tokenSources(t *testing.T) *artifacts.Loader {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteArtifact(t, dir, "ERC20Token", `[]`, testutils.StopInitCode)
	testutils.WriteBuildInfo(t, dir, "ERC20Token", map[string]string{
		"contracts/ERC20Token.sol":                      tokenSource,
		"@openzeppelin/contracts/token/ERC20/ERC20.sol": ozSource,
	})
	return artifacts.NewLoader(dir)
}

func TestTenderlyVerifier_UploadsSources(t *testing.T) {
	var got []verifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/account/acme/project/se2/contracts", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Access-Key"))

		var req verifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	v := NewTenderlyVerifier(tenderlyConfig(server.URL), 31337, tokenSources(t), logger.NewLogger(false), server.Client())
	err := v.Verify(context.Background(),
		Contract{Name: "ERC20Token", Address: common.HexToAddress("0xAA")},
		Contract{Name: "ERC20Token", Address: common.HexToAddress("0xBB")},
	)
	require.NoError(t, err)
	require.Len(t, got, 2)

	req := got[0]
	assert.Equal(t, "0.8.20", req.Config.CompilerVersion)
	assert.True(t, req.Config.OptimizationsUsed)
	assert.Equal(t, 200, req.Config.OptimizationsCount)
	assert.Equal(t, "paris", req.Config.EVMVersion)

	require.Len(t, req.Contracts, 2)
	main := req.Contracts[0]
	assert.Equal(t, "ERC20Token", main.ContractName)
	assert.Equal(t, "contracts/ERC20Token.sol", main.SourcePath)
	assert.Equal(t, tokenSource, main.Source)
	assert.Equal(t, compilerVersion{Name: "solc", Version: "0.8.20"}, main.Compiler)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", main.Networks["31337"].Address)

	dep := req.Contracts[1]
	assert.Equal(t, "ERC20", dep.ContractName)
	assert.Equal(t, "@openzeppelin/contracts/token/ERC20/ERC20.sol", dep.SourcePath)
	assert.Equal(t, ozSource, dep.Source)
	assert.Empty(t, dep.Networks)

	assert.Equal(t, "0x00000000000000000000000000000000000000bb", got[1].Contracts[0].Networks["31337"].Address)
}

func TestTenderlyVerifier_MissingBuildInfo(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	dir := t.TempDir()
	testutils.WriteArtifact(t, dir, "ERC20Token", `[]`, testutils.StopInitCode)

	v := NewTenderlyVerifier(tenderlyConfig(server.URL), 1, artifacts.NewLoader(dir), logger.NewLogger(false), server.Client())
	err := v.Verify(context.Background(), Contract{Name: "ERC20Token", Address: common.HexToAddress("0xAA")})
	assert.True(t, errors.Is(err, artifacts.ErrNotFound))
	assert.Equal(t, int32(0), calls.Load())
}

func TestTenderlyVerifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	v := NewTenderlyVerifier(tenderlyConfig(server.URL), 1, tokenSources(t), logger.NewLogger(false), server.Client())
	err := v.Verify(context.Background(), Contract{Name: "ERC20Token", Address: common.HexToAddress("0xAA")})
	assert.ErrorContains(t, err, "401")
	assert.ErrorContains(t, err, "unauthorized")
}

func TestTenderlyVerifier_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	v := NewTenderlyVerifier(tenderlyConfig(server.URL), 1, tokenSources(t), logger.NewLogger(false), server.Client())
	contracts := make([]Contract, 5)
	for i := range contracts {
		contracts[i] = Contract{Name: "ERC20Token", Address: common.BigToAddress(common.Big1)}
	}

	err := v.Verify(context.Background(), contracts...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNew_NoopWithoutCredentials(t *testing.T) {
	v := New(devcommon.TenderlyConfig{APIURL: "https://api.tenderly.co"}, 1, nil, logger.NewLogger(false))
	assert.IsType(t, NoopVerifier{}, v)
	assert.NoError(t, v.Verify(context.Background(), Contract{Name: "ERC20Token"}))

	v = New(tenderlyConfig("https://api.tenderly.co"), 1, artifacts.NewLoader(t.TempDir()), logger.NewLogger(false))
	assert.IsType(t, &TenderlyVerifier{}, v)
}
