package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one line of the append-only audit trail. Every pipeline
// run emits exactly one record, success or failure.
type AuditRecord struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Repository string    `json:"repository"`
	Tag        string    `json:"tag,omitempty"`

	Digest         string `json:"digest,omitempty"`
	SignerIdentity string `json:"signer_identity,omitempty"`
	Backfilled     bool   `json:"backfilled,omitempty"`

	// AllowUnsigned flags runs that proceeded without an attestation.
	// These records are the ones a later review has to look at.
	AllowUnsigned bool `json:"allow_unsigned,omitempty"`

	Outcome string `json:"outcome"` // "success" or "failure"
	Error   string `json:"error,omitempty"`
}

// newAuditRecord starts a record for one run.
func newAuditRecord(repository, tag string) *AuditRecord {
	return &AuditRecord{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Repository: repository,
		Tag:        tag,
	}
}

// AuditWriter appends records as JSON lines. Safe for concurrent use.
type AuditWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAuditWriter wraps an io.Writer as an audit sink.
func NewAuditWriter(w io.Writer) *AuditWriter {
	return &AuditWriter{w: w}
}

// Write appends one record.
func (a *AuditWriter) Write(record *AuditRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
