package zkvm

import (
	"errors"
	"fmt"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

var (
	// ErrAlreadyCommitted is returned when a guest commits public values twice
	ErrAlreadyCommitted = errors.New("public values already committed")
	// ErrNoCommit is returned when a guest finishes without committing
	ErrNoCommit = errors.New("guest finished without committing public values")
	// ErrCycleLimit is returned when a guest exceeds its cost budget
	ErrCycleLimit = errors.New("cycle limit exceeded")
)

// Guest is a deterministic program the engine executes and proves.
// Run reads its inputs from env and commits exactly one public output.
// Any returned error aborts the run without public output.
type Guest interface {
	ID() string
	Run(env *Env) error
}

// Env is the execution environment seen by a guest
type Env struct {
	reader    *Reader
	committed []byte
	done      bool
	cycles    uint64
	maxCycles uint64
}

// NewEnv wires a guest environment over stdin; maxCycles 0 means unlimited
func NewEnv(stdin *Stdin, maxCycles uint64) *Env {
	return &Env{reader: stdin.Reader(), maxCycles: maxCycles}
}

// Read decodes the next input item into v
func (e *Env) Read(v interface{}) error {
	e.cycles++
	return e.reader.Read(v)
}

// Commit publishes the public output. It may be called once.
func (e *Env) Commit(publicValues []byte) error {
	if e.done {
		return ErrAlreadyCommitted
	}
	e.committed = append([]byte{}, publicValues...)
	e.done = true
	return nil
}

// Charge adds n units to the cost meter
func (e *Env) Charge(n uint64) error {
	e.cycles += n
	if e.maxCycles > 0 && e.cycles > e.maxCycles {
		return wormhole.NewError(wormhole.KindExternalService, "charge",
			fmt.Errorf("%w: used %d of %d", ErrCycleLimit, e.cycles, e.maxCycles))
	}
	return nil
}

// Cycles returns the cost consumed so far
func (e *Env) Cycles() uint64 {
	return e.cycles
}

// PublicValues returns the committed output and whether a commit happened
func (e *Env) PublicValues() ([]byte, bool) {
	return e.committed, e.done
}

// RunGuest executes g over stdin and returns its committed public values
func RunGuest(g Guest, stdin *Stdin, maxCycles uint64) ([]byte, uint64, error) {
	env := NewEnv(stdin, maxCycles)
	if err := g.Run(env); err != nil {
		return nil, env.Cycles(), err
	}
	pv, ok := env.PublicValues()
	if !ok {
		return nil, env.Cycles(), ErrNoCommit
	}
	return pv, env.Cycles(), nil
}
