package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Chain    ChainConfig    `yaml:"chain"`
	Protocol ProtocolConfig `yaml:"protocol"`
	ZKVM     ZKVMConfig     `yaml:"zkvm"`
	Fixtures FixturesConfig `yaml:"fixtures"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig run ledger database; an empty DSN disables the ledger
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig proof event bus; an empty URL disables publishing
type NATSConfig struct {
	URL             string `yaml:"url"`
	Timeout         int    `yaml:"timeout"`
	ReconnectWait   int    `yaml:"reconnect_wait"`
	MaxReconnects   int    `yaml:"max_reconnects"`
	EnableJetStream bool   `yaml:"enable_jetstream"`
	SubjectPrefix   string `yaml:"subject_prefix"`
}

// ChainConfig source chain access
type ChainConfig struct {
	RPCURL          string `yaml:"rpcUrl"`
	BlockTag        string `yaml:"blockTag"`        // latest | safe | finalized | <number>
	ContractAddress string `yaml:"contractAddress"` // wormhole-enabled token
}

// ProtocolConfig deployment-wide protocol settings. They must match the
// verifier contract and never change for a live deployment.
type ProtocolConfig struct {
	Version          string `yaml:"version"`          // v1 | v2
	BindAmountInSalt bool   `yaml:"bindAmountInSalt"` // amount participates in the dead address salt
}

// ZKVMConfig proving engine configuration
type ZKVMConfig struct {
	Mode        string `yaml:"mode"` // local | remote
	BaseURL     string `yaml:"baseUrl"`
	Timeout     int    `yaml:"timeout"` // seconds
	ProofSystem string `yaml:"proofSystem"`
	SelfVerify  bool   `yaml:"selfVerify"`
	MaxCycles   uint64 `yaml:"maxCycles"`
}

// FixturesConfig where proof fixtures are written
type FixturesConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig API authentication
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// LogConfig logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

const (
	ZKVMModeLocal  = "local"
	ZKVMModeRemote = "remote"

	// DefaultContractAddress is the reference token deployment on holesky
	DefaultContractAddress = "0x4C6D1355Ff9922ac12Bd2BBA55d1E2CB9101BbCE"
)

var AppConfig *Config

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database: DatabaseConfig{Driver: "postgres"},
		NATS: NATSConfig{
			Timeout:       5,
			ReconnectWait: 2,
			MaxReconnects: 10,
			SubjectPrefix: "zkwormhole.proofs",
		},
		Chain: ChainConfig{
			BlockTag:        string(sketch.TagLatest),
			ContractAddress: DefaultContractAddress,
		},
		Protocol: ProtocolConfig{Version: "v2", BindAmountInSalt: true},
		ZKVM: ZKVMConfig{
			Mode:        ZKVMModeLocal,
			Timeout:     600,
			ProofSystem: string(zkvm.Groth16),
			SelfVerify:  true,
		},
		Fixtures: FixturesConfig{Dir: "contracts/src/fixtures"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration into AppConfig
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads .env, the yaml file and environment overrides, in that order
// of increasing priority. With an empty path, config.local.yaml or
// config.yaml is used when present; otherwise defaults apply.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	explicit := configPath != ""
	if !explicit {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Printf("✅ Loading configuration from config file: %s", configPath)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		log.Printf("📋 [Config] No config file found, using defaults and environment")
	}

	overrideFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Printf("📋 [Config] Protocol %s, bindAmountInSalt=%v, zkvm mode=%s, proof system=%s",
		config.Protocol.Version, config.Protocol.BindAmountInSalt, config.ZKVM.Mode, config.ZKVM.ProofSystem)
	return config, nil
}

// overrideFromEnv Override configuration from environment variables
func overrideFromEnv(config *Config) {
	// Chain
	if rpcURL := os.Getenv("ETH_RPC_URL"); rpcURL != "" {
		config.Chain.RPCURL = rpcURL
	}
	if contract := os.Getenv("WORMHOLE_CONTRACT"); contract != "" {
		config.Chain.ContractAddress = contract
	}
	if tag := os.Getenv("WORMHOLE_BLOCK_TAG"); tag != "" {
		config.Chain.BlockTag = tag
	}

	// Protocol
	if version := os.Getenv("PROTOCOL_VERSION"); version != "" {
		config.Protocol.Version = version
	}
	if bind := os.Getenv("BIND_AMOUNT_IN_SALT"); bind != "" {
		if b, err := strconv.ParseBool(bind); err == nil {
			config.Protocol.BindAmountInSalt = b
		}
	}

	// ZKVM
	if mode := os.Getenv("ZKVM_MODE"); mode != "" {
		config.ZKVM.Mode = mode
	}
	if zkvmURL := os.Getenv("ZKVM_BASE_URL"); zkvmURL != "" {
		config.ZKVM.BaseURL = zkvmURL
	}
	if timeout := os.Getenv("ZKVM_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.ZKVM.Timeout = t
		}
	}
	if system := os.Getenv("PROOF_SYSTEM"); system != "" {
		config.ZKVM.ProofSystem = system
	}
	if dir := os.Getenv("FIXTURES_DIR"); dir != "" {
		config.Fixtures.Dir = dir
	}

	// Server
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// Validate checks that every protocol-level value parses
func (c *Config) Validate() error {
	if _, err := c.ProtocolVersion(); err != nil {
		return fmt.Errorf("protocol.version: %w", err)
	}
	if _, err := c.ProofSystem(); err != nil {
		return fmt.Errorf("zkvm.proofSystem: %w", err)
	}
	if _, err := c.BlockTag(); err != nil {
		return fmt.Errorf("chain.blockTag: %w", err)
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("chain.contractAddress: invalid address %q", c.Chain.ContractAddress)
	}
	switch c.ZKVM.Mode {
	case ZKVMModeLocal:
	case ZKVMModeRemote:
		if c.ZKVM.BaseURL == "" {
			return errors.New("zkvm.baseUrl is required in remote mode")
		}
	default:
		return fmt.Errorf("zkvm.mode: unknown mode %q", c.ZKVM.Mode)
	}
	return nil
}

// ProtocolVersion returns the configured public values schema
func (c *Config) ProtocolVersion() (types.ProtocolVersion, error) {
	return types.ParseProtocolVersion(c.Protocol.Version)
}

// SaltPolicy returns the configured dead address salt policy
func (c *Config) SaltPolicy() wormhole.SaltPolicy {
	if c.Protocol.BindAmountInSalt {
		return wormhole.SaltBindsAmount
	}
	return wormhole.SaltOmitsAmount
}

// ProofSystem returns the configured proof wrapping
func (c *Config) ProofSystem() (zkvm.ProofSystem, error) {
	return zkvm.ParseProofSystem(c.ZKVM.ProofSystem)
}

// BlockTag returns the configured block the sketch is pinned to
func (c *Config) BlockTag() (sketch.BlockTag, error) {
	return sketch.ParseBlockTag(c.Chain.BlockTag)
}

// ContractAddress returns the configured token contract
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Chain.ContractAddress)
}
