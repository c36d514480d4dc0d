package adminauth

import (
	"context"
	"encoding/json"
	"io"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Audit action taxonomy. Mutation handlers report these after the mutation
// has taken effect; the recorder never participates in the mutation itself.
const (
	AuditLoginSuccess    = "auth.login.success"
	AuditLoginFailure    = "auth.login.failure"
	AuditMFAChallenge    = "auth.mfa.challenge"
	AuditMFAEnrolled     = "auth.mfa.enrolled"
	AuditMFADisabled     = "auth.mfa.disabled"
	AuditBackupCodesUsed = "auth.mfa.backup_code_used"
	AuditBackupCodesNew  = "auth.mfa.backup_codes_regenerated"
	AuditTokenRefreshed  = "auth.token.refreshed"
	AuditPasswordChanged = "auth.password.changed"

	AuditUserDelete    = "users.delete"
	AuditUserSuspend   = "users.suspend"
	AuditPasswordReset = "users.password_reset"
	AuditShopSuspend   = "shops.suspend"
	AuditBulkDelete    = "bulk.delete"
	AuditApproval      = "vouchers.approve"
)

// RedactionMarker replaces every sensitive value before an entry leaves the
// recorder.
const RedactionMarker = "[REDACTED]"

// sensitiveFieldFragments flags a field for redaction when its lowercased
// name contains any of these.
var sensitiveFieldFragments = []string{
	"password",
	"hash",
	"token",
	"secret",
	"api_key",
	"apikey",
	"backup_code",
}

// AuditEvent is the structured record a mutation handler emits.
type AuditEvent struct {
	Actor      string            `json:"actor"`
	TenantID   string            `json:"tenant_id,omitempty"`
	Action     string            `json:"action"`
	Resource   string            `json:"resource"`
	ResourceID string            `json:"resource_id,omitempty"`
	Before     map[string]any    `json:"before,omitempty"`
	After      map[string]any    `json:"after,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// ResourceCount is how many resources one operation touched; drives the
	// bulk-delete heuristic.
	ResourceCount int `json:"resource_count,omitempty"`
	// Amount is the monetary value for approval actions.
	Amount float64 `json:"amount,omitempty"`
	// TargetSuperAdmin marks operations aimed at a super-admin account.
	TargetSuperAdmin bool `json:"target_super_admin,omitempty"`
}

// AuditEntry is the persisted form: the event plus identity, timestamp, and
// the computed suspicion flag.
type AuditEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Suspicious bool      `json:"suspicious"`
	AuditEvent
}

// AuditSink receives entries from the dispatcher goroutine. Implementations
// must tolerate being called concurrently with Recorder.Close.
type AuditSink interface {
	Emit(ctx context.Context, entry AuditEntry)
}

// NoOpSink discards everything.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEntry) {}

// ChannelSink buffers entries for test consumption.
type ChannelSink struct {
	entries chan AuditEntry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan AuditEntry, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, entry AuditEntry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan AuditEntry {
	return s.entries
}

// JSONWriterSink writes one JSON line per entry.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry AuditEntry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// AuditRecorder turns events into redacted, flagged entries and hands them to
// the async dispatcher. Recording is advisory: it never blocks, fails, or
// rolls back the mutation it describes.
type AuditRecorder struct {
	cfg        AuditConfig
	dispatcher *auditDispatcher
	metrics    *Metrics

	entropyMu sync.Mutex
	entropy   *mathrand.Rand
}

// NewAuditRecorder builds a recorder over sink. A nil recorder and a
// disabled config are both safe to record into.
func NewAuditRecorder(cfg AuditConfig, sink AuditSink, metrics *Metrics) *AuditRecorder {
	if !cfg.Enabled {
		return nil
	}
	r := &AuditRecorder{
		cfg:     cfg,
		metrics: metrics,
		entropy: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	r.dispatcher = newAuditDispatcher(cfg, sink, metrics)
	return r
}

// Record redacts, flags, stamps, and dispatches the event.
func (r *AuditRecorder) Record(ctx context.Context, event AuditEvent) {
	if r == nil || r.dispatcher == nil {
		return
	}

	entry := AuditEntry{
		ID:         r.newEntryID(),
		Timestamp:  time.Now().UTC(),
		Suspicious: r.suspicious(event),
		AuditEvent: event,
	}
	entry.Before = redactFields(event.Before)
	entry.After = redactFields(event.After)
	entry.Metadata = redactMetadata(event.Metadata)

	r.metrics.auditEvent()
	r.dispatcher.Emit(ctx, entry)
}

// Dropped returns how many entries were shed because the buffer was full.
func (r *AuditRecorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dispatcher.Dropped()
}

// Close drains the dispatcher. Entries already accepted are flushed.
func (r *AuditRecorder) Close() {
	if r == nil {
		return
	}
	r.dispatcher.Close()
}

func (r *AuditRecorder) newEntryID() string {
	r.entropyMu.Lock()
	defer r.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
}

// suspicious applies the advisory heuristics. These flag entries for review;
// they never block anything.
func (r *AuditRecorder) suspicious(event AuditEvent) bool {
	if isDeleteAction(event.Action) && r.cfg.BulkDeleteThreshold > 0 &&
		event.ResourceCount > r.cfg.BulkDeleteThreshold {
		return true
	}
	if isApprovalAction(event.Action) && r.cfg.HighValueThreshold > 0 &&
		event.Amount > r.cfg.HighValueThreshold {
		return true
	}
	if event.Action == AuditPasswordReset && event.TargetSuperAdmin {
		return true
	}
	if isSuspensionAction(event.Action) {
		return true
	}
	return false
}

func isDeleteAction(action string) bool {
	return action == AuditBulkDelete || strings.HasSuffix(action, ".delete")
}

func isApprovalAction(action string) bool {
	return strings.HasSuffix(action, ".approve") || strings.HasSuffix(action, ".approve_high_value")
}

func isSuspensionAction(action string) bool {
	return strings.HasSuffix(action, ".suspend")
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range sensitiveFieldFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// redactFields copies fields, replacing sensitive values with the marker.
// Nested maps are walked; the originals are never mutated.
func redactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		if isSensitiveField(name) {
			out[name] = RedactionMarker
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			out[name] = redactFields(nested)
			continue
		}
		out[name] = value
	}
	return out
}

func redactMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for name, value := range metadata {
		if isSensitiveField(name) {
			out[name] = RedactionMarker
			continue
		}
		out[name] = value
	}
	return out
}
