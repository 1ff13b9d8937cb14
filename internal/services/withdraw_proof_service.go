package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/clients"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/guest"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/metrics"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/models"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/repository"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// ErrProverBusy is returned when a run is requested while another is in progress
var ErrProverBusy = errors.New("prover busy: a proof run is already in progress")

// Mode selects a dry run or full proof generation
type Mode string

const (
	ModeExecute Mode = "execute"
	ModeProve   Mode = "prove"
)

// ParseMode parses execute|prove
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExecute, ModeProve:
		return Mode(s), nil
	case "":
		return ModeExecute, nil
	}
	return "", fmt.Errorf("unknown mode %q (want execute or prove)", s)
}

// WithdrawParams are the caller supplied inputs of one withdrawal
type WithdrawParams struct {
	Secret          [32]byte
	Nonce           [32]byte
	Amount          uint64
	Receiver        common.Address
	ContractAddress common.Address
	Data            []byte

	// System overrides the configured proof system in prove mode
	System zkvm.ProofSystem
}

// Validate performs the checks that need no network access
func (p *WithdrawParams) Validate() error {
	if p.Amount == 0 {
		return wormhole.Errorf(wormhole.KindMalformedInput, "validate params", "%w: amount must be positive", wormhole.ErrMalformedInput)
	}
	if p.ContractAddress == (common.Address{}) {
		return wormhole.Errorf(wormhole.KindMalformedInput, "validate params", "%w: contract address is required", wormhole.ErrMalformedInput)
	}
	if p.Receiver == (common.Address{}) {
		return wormhole.Errorf(wormhole.KindMalformedInput, "validate params", "%w: receiver is required", wormhole.ErrMalformedInput)
	}
	return nil
}

// WithdrawResult is the outcome of a successful run
type WithdrawResult struct {
	RunID        string
	Mode         Mode
	DeadAddress  common.Address
	BlockNumber  uint64
	BlockHash    common.Hash
	PublicValues hexutil.Bytes
	Decoded      *types.PublicValues
	Cycles       uint64
	SketchBytes  int
	Proof        *zkvm.ProofWithPublicValues
	VKey         *zkvm.VerifyingKey
	FixturePath  string
	Duration     time.Duration
}

// Options are the deployment-wide settings of the service
type Options struct {
	Version     types.ProtocolVersion
	Salt        wormhole.SaltPolicy
	BlockTag    sketch.BlockTag
	ProofSystem zkvm.ProofSystem
	SelfVerify  bool
	// FixturesDir receives <system>-fixture.json after proving; empty disables
	FixturesDir string
	// EngineName labels metrics (local | remote)
	EngineName string
}

// EventPublisher announces run lifecycle events
type EventPublisher interface {
	PublishProofEvent(event *clients.ProofEvent) error
}

// WithdrawProofService orchestrates one withdrawal proof: derive, sketch,
// execute or prove, verify, persist. It runs at most one proof at a time.
type WithdrawProofService struct {
	backend sketch.Backend
	engine  zkvm.Engine
	opts    Options
	program *guest.Program
	log     *logrus.Logger

	ledger repository.WithdrawProofTaskRepository
	events EventPublisher

	busy sync.Mutex
}

// NewWithdrawProofService creates the orchestrator
func NewWithdrawProofService(backend sketch.Backend, engine zkvm.Engine, opts Options, log *logrus.Logger) *WithdrawProofService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.ProofSystem == "" {
		opts.ProofSystem = zkvm.Groth16
	}
	if opts.BlockTag == "" {
		opts.BlockTag = sketch.TagLatest
	}
	if opts.EngineName == "" {
		opts.EngineName = "local"
	}
	return &WithdrawProofService{
		backend: backend,
		engine:  engine,
		opts:    opts,
		program: guest.New(opts.Version, opts.Salt),
		log:     log,
	}
}

// WithLedger records runs in the given repository
func (s *WithdrawProofService) WithLedger(ledger repository.WithdrawProofTaskRepository) *WithdrawProofService {
	s.ledger = ledger
	return s
}

// WithEvents publishes run events
func (s *WithdrawProofService) WithEvents(events EventPublisher) *WithdrawProofService {
	s.events = events
	return s
}

// Program returns the guest the service proves
func (s *WithdrawProofService) Program() *guest.Program {
	return s.program
}

// VerifyingKey asks the engine for the verifying key of the guest
func (s *WithdrawProofService) VerifyingKey(ctx context.Context) (*zkvm.VerifyingKey, error) {
	_, vk, err := s.engine.Setup(ctx, s.program)
	if err != nil {
		return nil, err
	}
	return vk, nil
}

// Run performs one withdrawal run. A concurrent call returns ErrProverBusy.
func (s *WithdrawProofService) Run(ctx context.Context, params *WithdrawParams, mode Mode) (*WithdrawResult, error) {
	if !s.busy.TryLock() {
		metrics.ProverBusyRejections.Inc()
		return nil, ErrProverBusy
	}
	defer s.busy.Unlock()

	metrics.ProofRunInProgress.Set(1)
	defer metrics.ProofRunInProgress.Set(0)

	start := time.Now()
	runID := uuid.New().String()
	logger := s.log.WithFields(logrus.Fields{
		"run_id":   runID,
		"mode":     string(mode),
		"protocol": s.opts.Version.String(),
		"contract": params.ContractAddress.Hex(),
		"receiver": params.Receiver.Hex(),
		"amount":   params.Amount,
	})

	system := params.System
	if system == "" {
		system = s.opts.ProofSystem
	}
	task := &models.WithdrawProofTask{
		ID:              runID,
		Status:          models.WithdrawProofTaskStatusPending,
		Mode:            string(mode),
		ProtocolVersion: s.opts.Version.String(),
		ContractAddress: params.ContractAddress.Hex(),
		Receiver:        params.Receiver.Hex(),
		Amount:          params.Amount,
	}
	if mode == ModeProve {
		task.ProofSystem = string(system)
	}

	result, err := s.run(ctx, logger, task, params, mode, system)
	if err != nil {
		kind := wormhole.KindOf(err)
		metrics.ProofRunsTotal.WithLabelValues(string(mode), "failed").Inc()
		metrics.ProofRunFailures.WithLabelValues(kind.String()).Inc()
		logger.WithError(err).WithField("error_kind", kind.String()).Error("Withdrawal run failed")

		s.recordFailure(ctx, logger, task, kind, err)
		return nil, err
	}

	result.RunID = runID
	result.Duration = time.Since(start)
	metrics.ProofRunsTotal.WithLabelValues(string(mode), "succeeded").Inc()
	logger.WithFields(logrus.Fields{
		"nullifier":  nullifierOf(result.Decoded),
		"cycles":     result.Cycles,
		"duration":   result.Duration.String(),
		"block_hash": result.BlockHash.Hex(),
	}).Info("Withdrawal run completed")

	s.recordSuccess(ctx, logger, task, result)
	return result, nil
}

func (s *WithdrawProofService) run(ctx context.Context, logger *logrus.Entry, task *models.WithdrawProofTask, params *WithdrawParams, mode Mode, system zkvm.ProofSystem) (*WithdrawResult, error) {
	if mode != ModeExecute && mode != ModeProve {
		return nil, wormhole.Errorf(wormhole.KindMalformedInput, "validate params", "%w: unknown mode %q", wormhole.ErrMalformedInput, mode)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// fail fast before any network cost
	deadAddr := wormhole.DeriveDeadAddress(params.Secret, params.Nonce, params.Amount, s.opts.Salt)
	deadHash := wormhole.DeadAddressHash(deadAddr)
	task.DeadAddressHash = deadHash.Hex()
	logger = logger.WithField("dead_address", deadAddr.Hex())
	logger.Info("Derived dead address")

	s.createTask(ctx, logger, task)

	inputs := &guest.Inputs{
		Secret:          params.Secret,
		Nonce:           params.Nonce,
		DeadAddress:     deadAddr,
		Amount:          params.Amount,
		Receiver:        params.Receiver,
		ContractAddress: params.ContractAddress,
		Data:            params.Data,
	}
	result := &WithdrawResult{Mode: mode, DeadAddress: deadAddr}

	if s.opts.Version == types.ProtocolV2Nullifier {
		if err := s.buildSketch(ctx, logger, inputs, result); err != nil {
			return nil, err
		}
		task.BlockNumber = result.BlockNumber
		task.BlockHash = result.BlockHash.Hex()
	}

	stdin, err := inputs.Stdin(s.opts.Version)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindMalformedInput, "assemble inputs", err)
	}

	switch mode {
	case ModeExecute:
		timer := time.Now()
		pv, report, err := s.engine.Execute(ctx, s.program, stdin)
		metrics.ProofDuration.WithLabelValues("execute", s.opts.EngineName).Observe(time.Since(timer).Seconds())
		if err != nil {
			return nil, err
		}
		result.PublicValues = pv
		if report != nil {
			result.Cycles = report.Cycles
			metrics.GuestCycles.Observe(float64(report.Cycles))
		}
	case ModeProve:
		if err := s.prove(ctx, logger, stdin, system, result); err != nil {
			return nil, err
		}
	}

	decoded, err := types.DecodePublicValues(s.opts.Version, result.PublicValues)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "decode public values", err)
	}
	result.Decoded = decoded
	return result, nil
}

// buildSketch captures balanceOf(dead) and getDeadHashAmount(H(dead)) at the
// configured block and fills the state dependent inputs
func (s *WithdrawProofService) buildSketch(ctx context.Context, logger *logrus.Entry, in *guest.Inputs, result *WithdrawResult) error {
	timer := time.Now()
	builder, err := sketch.NewBuilder(ctx, s.backend, s.opts.BlockTag)
	if err != nil {
		return err
	}

	balanceCall, err := guest.BalanceOfCall(in.ContractAddress, in.DeadAddress)
	if err != nil {
		return wormhole.NewError(wormhole.KindMalformedInput, "encode balanceOf", err)
	}
	claimedCall, err := guest.DeadHashAmountCall(in.ContractAddress, wormhole.DeadAddressHash(in.DeadAddress))
	if err != nil {
		return wormhole.NewError(wormhole.KindMalformedInput, "encode getDeadHashAmount", err)
	}

	balanceOut, err := builder.Execute(ctx, balanceCall)
	if err != nil {
		return err
	}
	claimedOut, err := builder.Execute(ctx, claimedCall)
	if err != nil {
		return err
	}
	sk, err := builder.Finalize(ctx)
	if err != nil {
		return err
	}
	encoded, err := sk.Encode()
	if err != nil {
		return wormhole.NewError(wormhole.KindMalformedInput, "encode sketch", err)
	}
	bundle, err := guest.EncodeBundle(&guest.Bundle{
		Contract:  in.ContractAddress,
		Target:    in.DeadAddress,
		MinAmount: in.Amount,
	})
	if err != nil {
		return wormhole.NewError(wormhole.KindMalformedInput, "encode bundle", err)
	}

	in.BlockHash = builder.BlockHash()
	in.Sketch = encoded
	in.Bundle = bundle

	result.BlockHash = builder.BlockHash()
	result.BlockNumber = builder.Header().Number.Uint64()
	result.SketchBytes = len(encoded)

	metrics.SketchBuildDuration.Observe(time.Since(timer).Seconds())
	metrics.SketchSizeBytes.Observe(float64(len(encoded)))

	fields := logrus.Fields{
		"block_number": result.BlockNumber,
		"block_hash":   result.BlockHash.Hex(),
		"sketch_bytes": len(encoded),
	}
	// informational only; the guest decides
	if balance, err := guest.DecodeUint256("balanceOf", balanceOut); err == nil {
		fields["balance"] = balance.Dec()
	}
	if claimed, err := guest.DecodeUint256("getDeadHashAmount", claimedOut); err == nil {
		fields["already_claimed"] = claimed.Dec()
	}
	logger.WithFields(fields).Info("State sketch built")
	return nil
}

func (s *WithdrawProofService) prove(ctx context.Context, logger *logrus.Entry, stdin *zkvm.Stdin, system zkvm.ProofSystem, result *WithdrawResult) error {
	pk, vk, err := s.engine.Setup(ctx, s.program)
	if err != nil {
		return err
	}

	timer := time.Now()
	proof, err := s.engine.Prove(ctx, pk, stdin, system)
	metrics.ProofDuration.WithLabelValues("prove", s.opts.EngineName).Observe(time.Since(timer).Seconds())
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"system":   string(system),
		"vkey":     vk.Bytes32(),
		"duration": time.Since(timer).String(),
	}).Info("Proof generated")

	if s.opts.SelfVerify {
		timer = time.Now()
		err := s.engine.Verify(ctx, proof, vk)
		metrics.ProofDuration.WithLabelValues("verify", s.opts.EngineName).Observe(time.Since(timer).Seconds())
		if err != nil {
			return wormhole.NewError(wormhole.KindExternalService, "self-verify", err)
		}
		logger.Info("Proof verified")
	}

	result.Proof = proof
	result.VKey = vk
	result.PublicValues = proof.PublicValues

	if s.opts.FixturesDir != "" {
		path, err := WriteFixture(s.opts.FixturesDir, proof, vk)
		if err != nil {
			return err
		}
		result.FixturePath = path
		logger.WithField("path", path).Info("Fixture written")
	}
	return nil
}

func nullifierOf(pv *types.PublicValues) string {
	if pv == nil {
		return ""
	}
	if pv.Version == types.ProtocolV1ProofHash {
		return pv.ProofHash.Hex()
	}
	return pv.Nullifier.Hex()
}

func (s *WithdrawProofService) createTask(ctx context.Context, logger *logrus.Entry, task *models.WithdrawProofTask) {
	if s.ledger != nil {
		if err := s.ledger.Create(ctx, task); err != nil {
			logger.WithError(err).Warn("Failed to record run")
		} else if err := s.ledger.MarkProcessing(ctx, task.ID); err != nil {
			logger.WithError(err).Warn("Failed to mark run processing")
		}
	}
	s.publish(logger, task, clients.ProofEventStarted, "", 0)
}

func (s *WithdrawProofService) recordSuccess(ctx context.Context, logger *logrus.Entry, task *models.WithdrawProofTask, result *WithdrawResult) {
	task.Status = models.WithdrawProofTaskStatusCompleted
	task.Nullifier = nullifierOf(result.Decoded)
	task.PublicValues = result.PublicValues.String()
	task.Cycles = result.Cycles
	task.SketchBytes = result.SketchBytes
	task.FixturePath = result.FixturePath
	if result.Proof != nil {
		task.Proof = result.Proof.Proof.String()
	}
	if result.VKey != nil {
		task.VKey = result.VKey.Bytes32()
	}
	if s.ledger != nil {
		if err := s.ledger.MarkCompleted(ctx, task); err != nil {
			logger.WithError(err).Warn("Failed to record completed run")
		}
	}
	s.publish(logger, task, clients.ProofEventCompleted, "", result.Cycles)
}

func (s *WithdrawProofService) recordFailure(ctx context.Context, logger *logrus.Entry, task *models.WithdrawProofTask, kind wormhole.ErrorKind, err error) {
	// runs rejected before the dead address was derived never reached the ledger
	if task.DeadAddressHash == "" {
		return
	}
	task.Status = models.WithdrawProofTaskStatusFailed
	task.ErrorKind = kind.String()
	task.LastError = err.Error()
	if s.ledger != nil {
		if lerr := s.ledger.MarkFailed(ctx, task.ID, task.ErrorKind, task.LastError); lerr != nil {
			logger.WithError(lerr).Warn("Failed to record failed run")
		}
	}
	s.publish(logger, task, clients.ProofEventFailed, kind.String(), 0)
}

func (s *WithdrawProofService) publish(logger *logrus.Entry, task *models.WithdrawProofTask, event, errorKind string, cycles uint64) {
	if s.events == nil {
		return
	}
	err := s.events.PublishProofEvent(&clients.ProofEvent{
		RunID:           task.ID,
		Event:           event,
		Mode:            task.Mode,
		ProtocolVersion: task.ProtocolVersion,
		ProofSystem:     task.ProofSystem,
		ContractAddress: task.ContractAddress,
		Receiver:        task.Receiver,
		Amount:          task.Amount,
		DeadAddressHash: task.DeadAddressHash,
		Nullifier:       task.Nullifier,
		BlockHash:       task.BlockHash,
		Cycles:          cycles,
		ErrorKind:       errorKind,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to publish proof event")
	}
}
