package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/clients"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/db"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/repository"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// ProofEventStream is the JetStream stream proof events are stored in
const ProofEventStream = "ZK_WORMHOLE_PROOFS"

// ServiceContainer holds the wired host components
type ServiceContainer struct {
	Config *config.Config
	Logger *logrus.Logger

	// Chain & proving
	Backend sketch.Backend
	Engine  zkvm.Engine

	// Run ledger (nil when no DSN is configured)
	DB      *gorm.DB
	RunRepo repository.WithdrawProofTaskRepository

	// Proof events (nil when NATS is not configured)
	NATSClient *clients.NATSClient

	ProofService *services.WithdrawProofService

	rpc *sketch.RPCBackend
}

// InitializeContainer dials the configured RPC node and wires everything else
func InitializeContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*ServiceContainer, error) {
	if cfg.Chain.RPCURL == "" {
		return nil, errors.New("chain.rpcUrl (or ETH_RPC_URL) is required")
	}
	backend, err := sketch.DialRPC(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	c, err := NewServiceContainer(cfg, logger, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	c.rpc = backend
	return c, nil
}

// NewServiceContainer wires the container around an existing chain backend
func NewServiceContainer(cfg *config.Config, logger *logrus.Logger, backend sketch.Backend) (*ServiceContainer, error) {
	log.Println("🚀 Initializing Service Container...")

	opts, err := ServiceOptions(cfg)
	if err != nil {
		return nil, err
	}

	c := &ServiceContainer{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Engine:  NewEngine(cfg.ZKVM),
	}
	c.ProofService = services.NewWithdrawProofService(backend, c.Engine, opts, logger)

	// 1. Run ledger (optional, but a configured ledger must connect)
	if err := c.initLedger(); err != nil {
		return nil, fmt.Errorf("failed to initialize run ledger: %w", err)
	}

	// 2. Event services (optional, log but don't fail)
	if err := c.initEventServices(); err != nil {
		log.Printf("⚠️ Event services initialization skipped or failed: %v", err)
	}

	log.Println("✅ Service Container initialized successfully")
	return c, nil
}

// NewEngine returns the proving engine selected by zkvm.mode
func NewEngine(cfg config.ZKVMConfig) zkvm.Engine {
	if cfg.Mode == config.ZKVMModeRemote {
		return clients.NewProverClient(cfg.BaseURL)
	}
	return zkvm.NewLocalEngine(cfg.MaxCycles)
}

// ServiceOptions derives the orchestrator options from configuration
func ServiceOptions(cfg *config.Config) (services.Options, error) {
	version, err := cfg.ProtocolVersion()
	if err != nil {
		return services.Options{}, err
	}
	system, err := cfg.ProofSystem()
	if err != nil {
		return services.Options{}, err
	}
	tag, err := cfg.BlockTag()
	if err != nil {
		return services.Options{}, err
	}
	return services.Options{
		Version:     version,
		Salt:        cfg.SaltPolicy(),
		BlockTag:    tag,
		ProofSystem: system,
		SelfVerify:  cfg.ZKVM.SelfVerify,
		FixturesDir: cfg.Fixtures.Dir,
		EngineName:  cfg.ZKVM.Mode,
	}, nil
}

func (c *ServiceContainer) initLedger() error {
	if c.Config.Database.DSN == "" {
		log.Println("📋 Run ledger disabled (no database DSN)")
		return nil
	}
	conn, err := db.InitDB(c.Config.Database)
	if err != nil {
		return err
	}
	c.DB = conn
	c.RunRepo = repository.NewWithdrawProofTaskRepository(conn)
	c.ProofService.WithLedger(c.RunRepo)
	return nil
}

func (c *ServiceContainer) initEventServices() error {
	if c.Config.NATS.URL == "" {
		return errors.New("NATS not configured")
	}

	log.Println("🔌 Connecting to NATS...")
	natsClient, err := clients.NewNATSClient(c.Config.NATS, ProofEventStream)
	if err != nil {
		log.Printf("❌ Failed to connect to NATS at %s: %v", c.Config.NATS.URL, err)
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	c.NATSClient = natsClient
	c.ProofService.WithEvents(natsClient)
	log.Printf("✅ NATS client connected: %s", c.Config.NATS.URL)
	return nil
}

// Cleanup releases connections
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.DB != nil {
		db.Close()
	}
	if c.rpc != nil {
		c.rpc.Close()
	}

	log.Println("✅ Service Container cleaned up")
}
