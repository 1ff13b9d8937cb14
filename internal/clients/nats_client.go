package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/metrics"
)

// Proof run lifecycle events
const (
	ProofEventStarted   = "started"
	ProofEventCompleted = "completed"
	ProofEventFailed    = "failed"
)

// ProofEvent is published for every withdrawal proof run. It never carries
// the secret or the nonce.
type ProofEvent struct {
	RunID           string    `json:"run_id"`
	Event           string    `json:"event"`
	Mode            string    `json:"mode"`
	ProtocolVersion string    `json:"protocol_version"`
	ProofSystem     string    `json:"proof_system,omitempty"`
	ContractAddress string    `json:"contract_address"`
	Receiver        string    `json:"receiver"`
	Amount          uint64    `json:"amount"`
	DeadAddressHash string    `json:"dead_address_hash,omitempty"`
	Nullifier       string    `json:"nullifier,omitempty"`
	BlockHash       string    `json:"block_hash,omitempty"`
	Cycles          uint64    `json:"cycles,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NATSClient publishes proof run events
type NATSClient struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	streamName    string
}

// NewNATSClient CreateNATS client
func NewNATSClient(cfg config.NATSConfig, streamName string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	if cfg.Timeout > 0 {
		connectTimeout = time.Duration(cfg.Timeout) * time.Second
	}
	reconnectWait := 5 * time.Second
	if cfg.ReconnectWait > 0 {
		reconnectWait = time.Duration(cfg.ReconnectWait) * time.Second
	}
	maxReconnects := -1
	if cfg.MaxReconnects != 0 {
		maxReconnects = cfg.MaxReconnects
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("zk-wormhole-host"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ [NATS] disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ [NATS] reconnected to %s", nc.ConnectedUrl())
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	prefix := strings.TrimSuffix(cfg.SubjectPrefix, ".")
	if prefix == "" {
		prefix = "zkwormhole.proofs"
	}
	client := &NATSClient{
		conn:          conn,
		subjectPrefix: prefix,
		streamName:    streamName,
	}

	if cfg.EnableJetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.js = js
		if err := client.ensureStream(); err != nil {
			conn.Close()
			return nil, err
		}
	}

	log.Printf("✅ [NATS] publisher ready: subjects=%s.*, jetstream=%v", prefix, cfg.EnableJetStream)
	return client, nil
}

// ensureStream creates the proof event stream if it does not exist
func (c *NATSClient) ensureStream() error {
	if _, err := c.js.StreamInfo(c.streamName); err == nil {
		return nil
	}
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      c.streamName,
		Subjects:  []string{c.subjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.streamName, err)
	}
	log.Printf("✅ [NATS] stream %s created", c.streamName)
	return nil
}

// Subject returns the subject an event is published on
func (c *NATSClient) Subject(event string) string {
	return ProofEventSubject(c.subjectPrefix, event)
}

// ProofEventSubject joins prefix and event name
func ProofEventSubject(prefix, event string) string {
	return strings.TrimSuffix(prefix, ".") + "." + event
}

// PublishProofEvent publishes one lifecycle event
func (c *NATSClient) PublishProofEvent(event *ProofEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal proof event: %w", err)
	}

	subject := c.Subject(event.Event)
	if c.js != nil {
		_, err = c.js.Publish(subject, data)
	} else {
		err = c.conn.Publish(subject, data)
	}
	if err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(event.Event, "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(event.Event, "success").Inc()
	return nil
}

// Close drains the connection
func (c *NATSClient) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
	metrics.NATSConnectionStatus.Set(0)
}
