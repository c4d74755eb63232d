package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Veysel440/go-etracker/internal/core"
)

const DefaultExceptionDurationDays = 365

var tracer = otel.Tracer("github.com/Veysel440/go-etracker/internal/service")

type EngineConfig struct {
	// DefaultExceptionDays is added to now when an exception has no expiration.
	// Values below 1 fall back to DefaultExceptionDurationDays.
	DefaultExceptionDays int
	Now                  func() time.Time
}

// UpdatePayload carries the optional fields of an item update. Nil pointers
// and empty strings mean "not supplied".
type UpdatePayload struct {
	Enforced           *bool             `json:"enforced,omitempty"`
	EnforcedKey        *string           `json:"enforcedKey,omitempty"`
	ExceptionActive    *bool             `json:"exceptionActive,omitempty"`
	ExceptionReason    string            `json:"exceptionReason,omitempty"`
	ExceptionMetadata  map[string]string `json:"exceptionMetadata,omitempty"`
	ExceptionExpiresAt string            `json:"exceptionExpiresAt,omitempty"`
}

type UpdateResult struct {
	Previous core.EnforcementEntry `json:"previous"`
	Current  core.EnforcementEntry `json:"current"`
	Changed  bool                  `json:"changed"`
}

// Engine applies the exception lifecycle rules to enforcement entries.
type Engine struct {
	inv     InventoryRepo
	audit   AuditRepo
	cfg     EngineConfig
	logger  *slog.Logger
	metrics *Metrics
}

func NewEngine(inv InventoryRepo, audit AuditRepo, cfg EngineConfig, logger *slog.Logger, m *Metrics) *Engine {
	if cfg.DefaultExceptionDays < 1 {
		cfg.DefaultExceptionDays = DefaultExceptionDurationDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{inv: inv, audit: audit, cfg: cfg, logger: logger, metrics: m}
}

// UpdateItem resolves the next state of documentID's group/itemKey entry from
// in and the stored state, writes it, and records the transition. When nothing
// changes, no write or audit happens and Current equals Previous.
//
// If the audit append fails after a successful write, the result is returned
// together with an error wrapping ErrAudit; the write is kept.
func (e *Engine) UpdateItem(ctx context.Context, documentID, group, itemKey string, in UpdatePayload, actor core.Actor) (UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.UpdateItem")
	defer span.End()
	span.SetAttributes(
		attribute.String("etracker.document_id", documentID),
		attribute.String("etracker.group", group),
		attribute.String("etracker.item_key", itemKey),
	)

	res, err := e.updateItem(ctx, strings.TrimSpace(documentID), strings.TrimSpace(group), strings.TrimSpace(itemKey), in, actor)
	switch {
	case err != nil && !errors.Is(err, ErrAudit):
		e.metrics.incUpdate(OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res.Changed:
		e.metrics.incUpdate(OutcomeUpdated)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	default:
		e.metrics.incUpdate(OutcomeNoop)
	}
	span.SetAttributes(attribute.Bool("etracker.changed", res.Changed))
	return res, err
}

func (e *Engine) updateItem(ctx context.Context, documentID, group, itemKey string, in UpdatePayload, actor core.Actor) (UpdateResult, error) {
	if err := validateTarget(documentID, group, itemKey); err != nil {
		return UpdateResult{}, err
	}
	if actor.ID == 0 && strings.TrimSpace(actor.Name) == "" {
		return UpdateResult{}, validationf("actor is required")
	}

	doc, err := e.inv.FindByID(ctx, documentID)
	if err != nil {
		return UpdateResult{}, err
	}
	prev := doc.Entry(group, itemKey)

	next, reason, err := e.resolve(prev, in, actor)
	if err != nil {
		return UpdateResult{}, err
	}

	noop := UpdateResult{Previous: prev, Current: prev}
	if !entryChanged(prev, next) {
		e.logger.Info("item_update_noop", "document", documentID, "group", group, "item", itemKey)
		return noop, nil
	}

	patch := core.NewEntryPatch(group, itemKey).
		SetEnforced(*next.Enforced).
		SetEnforcedKey(next.EnforcedKey).
		SetException(next.Exception)
	modified, err := e.inv.UpdateEntry(ctx, documentID, patch)
	if err != nil {
		return UpdateResult{}, err
	}
	if !modified {
		e.logger.Info("item_update_noop", "document", documentID, "group", group, "item", itemKey)
		return noop, nil
	}

	current := patch.Apply(prev)
	reread, err := e.inv.FindByID(ctx, documentID)
	switch {
	case err == nil:
		current = reread.Entry(group, itemKey)
	case errors.Is(err, ErrNotFound):
		// removed between write and reread; report what was written
	default:
		return UpdateResult{}, err
	}

	res := UpdateResult{Previous: prev, Current: current, Changed: true}
	e.logger.Info("item_updated",
		"document", documentID, "group", group, "item", itemKey,
		"exception_active", current.HasActiveException(), "actor_id", actor.ID)

	rec := core.AuditRecord{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		ItemType:      group,
		ItemKey:       itemKey,
		PreviousState: prev,
		NewState:      current,
		Reason:        reason,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		CreatedAt:     e.cfg.Now().UTC(),
	}
	if err := e.audit.Append(ctx, rec); err != nil {
		e.logger.Error("audit_append_failed", "document", documentID, "group", group, "item", itemKey, "err", err)
		return res, fmt.Errorf("%w: %w", ErrAudit, err)
	}
	return res, nil
}

// resolve computes the next entry state and the effective reason.
func (e *Engine) resolve(prev core.EnforcementEntry, in UpdatePayload, actor core.Actor) (core.EnforcementEntry, string, error) {
	var prevEx core.Exception
	if prev.Exception != nil {
		prevEx = *prev.Exception
	}

	reason := sanitizeTextarea(in.ExceptionReason)
	if reason == "" {
		reason = prevEx.Reason
	}

	active := prevEx.Active
	if in.ExceptionActive != nil {
		active = *in.ExceptionActive
	}

	candidate := prev.EnforcedKey
	if in.EnforcedKey != nil {
		candidate = in.EnforcedKey
	}

	enforced := true
	if prev.Enforced != nil {
		enforced = *prev.Enforced
	}
	if in.Enforced != nil {
		enforced = *in.Enforced
	}
	if active {
		enforced = false
	}

	next := prev
	next.Enforced = core.BoolPtr(enforced)
	next.EnforcedKey = normalizeEnforcedKey(candidate, active)
	next.Exception = nil

	if !active {
		return next, reason, nil
	}
	if reason == "" {
		return core.EnforcementEntry{}, "", validationf("exception reason is required")
	}

	now := core.FormatTimestamp(e.cfg.Now())
	ex := core.Exception{
		Active:    true,
		Reason:    reason,
		Approver:  &core.Approver{ID: actor.ID, Name: sanitizeText(actor.Name)},
		CreatedAt: prevEx.CreatedAt,
		UpdatedAt: now,
		ExpiresAt: e.resolveExpiration(in.ExceptionExpiresAt, prevEx),
		Metadata:  sanitizeMetadata(in.ExceptionMetadata),
	}
	if ex.CreatedAt == "" {
		ex.CreatedAt = now
	}
	next.Exception = &ex
	return next, reason, nil
}

func (e *Engine) resolveExpiration(requested string, prev core.Exception) string {
	if v, ok := core.ParseExpiration(sanitizeText(requested)); ok {
		return v
	}
	if prev.ExpiresAt != "" {
		return prev.ExpiresAt
	}
	return core.FormatTimestamp(e.cfg.Now().Add(time.Duration(e.cfg.DefaultExceptionDays) * core.Day))
}

// normalizeEnforcedKey forces the manual sentinel while an exception is active
// and discards reserved or blank keys otherwise.
func normalizeEnforcedKey(v *string, exceptionActive bool) *string {
	if exceptionActive {
		return core.StringPtr(core.ManualExceptionKey)
	}
	if v == nil {
		return nil
	}
	k := sanitizeText(*v)
	if k == "" || strings.HasPrefix(k, core.ExceptionKeyPrefix) {
		return nil
	}
	return &k
}

func sanitizeMetadata(in map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range in {
		k, v = sanitizeText(k), sanitizeText(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// entryChanged compares the three engine-owned fields as stored. A refreshed
// updatedAt or a different approver alone is not a change.
func entryChanged(prev, next core.EnforcementEntry) bool {
	if prev.Enforced == nil || *prev.Enforced != *next.Enforced {
		return true
	}
	if (prev.EnforcedKey == nil) != (next.EnforcedKey == nil) {
		return true
	}
	if prev.EnforcedKey != nil && *prev.EnforcedKey != *next.EnforcedKey {
		return true
	}
	if (prev.Exception == nil) != (next.Exception == nil) {
		return true
	}
	if prev.Exception == nil {
		return false
	}
	a, b := *prev.Exception, *next.Exception
	return a.Active != b.Active ||
		a.Reason != b.Reason ||
		a.CreatedAt != b.CreatedAt ||
		a.ExpiresAt != b.ExpiresAt ||
		!maps.Equal(a.Metadata, b.Metadata)
}

func validateTarget(documentID, group, itemKey string) error {
	if documentID == "" {
		return validationf("document id is required")
	}
	if err := validatePathSegment("group", group); err != nil {
		return err
	}
	return validatePathSegment("item key", itemKey)
}

// validatePathSegment rejects names that cannot be used inside a dotted storage path.
func validatePathSegment(what, s string) error {
	switch {
	case s == "":
		return validationf(what + " is required")
	case strings.Contains(s, "."), strings.HasPrefix(s, "$"):
		return validationf(what + " contains reserved characters")
	}
	return nil
}
