package models

import (
	"time"
)

// WithdrawProofTaskStatus lifecycle of a proof run
type WithdrawProofTaskStatus string

const (
	WithdrawProofTaskStatusPending    WithdrawProofTaskStatus = "pending"
	WithdrawProofTaskStatusProcessing WithdrawProofTaskStatus = "processing"
	WithdrawProofTaskStatusCompleted  WithdrawProofTaskStatus = "completed"
	WithdrawProofTaskStatusFailed     WithdrawProofTaskStatus = "failed"
)

// WithdrawProofTask is the ledger row of one withdrawal proof run.
// Secret and nonce are never stored.
type WithdrawProofTask struct {
	ID     string                  `json:"id" gorm:"primaryKey"` // UUID
	Status WithdrawProofTaskStatus `json:"status" gorm:"not null;default:pending;index"`
	Mode   string                  `json:"mode" gorm:"type:varchar(16);not null"` // execute | prove

	ProtocolVersion string `json:"protocol_version" gorm:"type:varchar(8);not null"`
	ProofSystem     string `json:"proof_system" gorm:"type:varchar(16)"`

	// Withdrawal parameters
	ContractAddress string `json:"contract_address" gorm:"type:varchar(42);not null;index"`
	Receiver        string `json:"receiver" gorm:"type:varchar(42);not null"`
	Amount          uint64 `json:"amount" gorm:"not null"`
	DeadAddressHash string `json:"dead_address_hash" gorm:"type:varchar(66);index"`

	// Pinned block
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash" gorm:"type:varchar(66)"`

	// Result
	Nullifier    string `json:"nullifier" gorm:"type:varchar(66);index"`
	VKey         string `json:"vkey" gorm:"type:varchar(66)"`
	PublicValues string `json:"public_values" gorm:"type:text"`
	Proof        string `json:"proof" gorm:"type:text"`
	FixturePath  string `json:"fixture_path" gorm:"type:text"`
	Cycles       uint64 `json:"cycles"`
	SketchBytes  int    `json:"sketch_bytes"`

	// Failure
	ErrorKind string `json:"error_kind" gorm:"type:varchar(32)"`
	LastError string `json:"last_error" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TableName table name
func (WithdrawProofTask) TableName() string {
	return "withdraw_proof_tasks"
}
