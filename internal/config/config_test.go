package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.Contracts.Controller = "0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643"
	cfg.Contracts.SeriesDirectory = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Chain.RPCURL = ""
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should fail")
	}

	for _, want := range []string{"log_level", "wallet", "rpc_url", "controller", "redis"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got:\n%v", want, err)
		}
	}
}

func TestValidateArchiveNeedsPostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Enabled = false
	cfg.S3.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "requires postgres") {
		t.Errorf("archiving without postgres should be rejected, got: %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[chain]
rpc_url = "http://node:8545"
chain_id = 5

[vault]
collaterals = ["ETH-A", "DAI"]
confirm_timeout = "45s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VAULTD_CHAIN_RPC_URL", "http://override:8545")
	t.Setenv("VAULTD_REDIS_DB", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Chain.RPCURL != "http://override:8545" {
		t.Errorf("rpc_url = %q, env override should win", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 5 {
		t.Errorf("chain_id = %d, want 5", cfg.Chain.ChainID)
	}
	if cfg.Vault.ConfirmTimeout.Duration != 45*time.Second {
		t.Errorf("confirm_timeout = %v, want 45s", cfg.Vault.ConfirmTimeout.Duration)
	}
	if len(cfg.Vault.Collaterals) != 2 {
		t.Errorf("collaterals = %v, want two entries", cfg.Vault.Collaterals)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("redis db = %d, env override should win", cfg.Redis.DB)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Port != 8000 {
		t.Errorf("server port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "deadbeef"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" {
		t.Error("private key should be redacted")
	}
	if red.Redis.Password != "***" || red.Server.APIKey != "***" {
		t.Error("redis password and api key should be redacted")
	}
	if cfg.Wallet.PrivateKey == "***" {
		t.Error("original config must not be mutated")
	}
}
