package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Oracle struct {
		BaseURL string `yaml:"base_url" env:"ORACLE_BASE_URL"`
		APIKey  string `yaml:"api_key" env:"ORACLE_API_KEY"`
		File    string `yaml:"file" env:"ORACLE_FILE"` // may contain {epoch}
	} `yaml:"oracle"`
	Schedule struct {
		CloseCron string `yaml:"close_cron" env:"CRON_CLOSE"`
		OpenCron  string `yaml:"open_cron" env:"CRON_OPEN"`
	} `yaml:"schedule"`
	Game struct {
		Admin           string            `yaml:"admin" env:"ADMIN_ID"`
		VaultAccount    string            `yaml:"vault_account"`
		VaultAuthority  string            `yaml:"vault_authority"`
		ShopAccount     string            `yaml:"shop_account"`
		Provider        string            `yaml:"provider"`
		StateFile       string            `yaml:"state_file" env:"STATE_FILE"`
		EnforceEpochEnd bool              `yaml:"enforce_epoch_end" env:"ENFORCE_EPOCH_END"`
		Faucet          map[string]uint64 `yaml:"faucet"` // wallets minted on first start
	} `yaml:"game"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Journal struct {
		Dir string `yaml:"dir" env:"JOURNAL_DIR"`
	} `yaml:"journal"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides; unset variables keep the file value.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Defaults
	if cfg.Schedule.CloseCron == "" {
		cfg.Schedule.CloseCron = "0 0 0 */3 * *"
	}
	if cfg.Schedule.OpenCron == "" {
		cfg.Schedule.OpenCron = "0 5 0 */3 * *"
	}
	if cfg.Game.VaultAccount == "" {
		cfg.Game.VaultAccount = "vault"
	}
	if cfg.Game.VaultAuthority == "" {
		cfg.Game.VaultAuthority = "program"
	}
	if cfg.Game.ShopAccount == "" {
		cfg.Game.ShopAccount = "shop"
	}
	if cfg.Game.Provider == "" {
		cfg.Game.Provider = "provider"
	}
	if cfg.Game.StateFile == "" {
		cfg.Game.StateFile = "data/game_state.json.zst"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/faction_vault.db"
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "data/journal"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Oracle.BaseURL == "" && c.Oracle.File == "" {
		return fmt.Errorf("oracle.base_url or oracle.file is required")
	}
	if c.Game.Admin == "" {
		return fmt.Errorf("game.admin is required")
	}
	if c.Game.VaultAccount == c.Game.ShopAccount {
		return fmt.Errorf("game.vault_account and game.shop_account must differ")
	}
	return nil
}
