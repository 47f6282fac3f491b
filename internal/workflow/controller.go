// Package workflow orchestrates user-triggered transitions over the
// artifact store: batch generation, targeted regeneration, and
// edit-with-optimization. A single session slot gates all mutations,
// so no two mutations can ever race on the store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/liuwen/promptreel/internal/gateway"
	"github.com/liuwen/promptreel/internal/model"
	"github.com/liuwen/promptreel/internal/store"
)

// Session kinds
const (
	KindRegenerate = "regenerate"
	KindEdit       = "edit"
)

// ErrInactiveSession is returned when a confirm or cancel references a
// session that is no longer the active one.
var ErrInactiveSession = errors.New("session is not active")

// Session is a transient, exclusive workflow context for mutating
// exactly one artifact. It holds only the artifact's id and the prompt
// captured at open time, never the artifact itself.
type Session struct {
	Kind           string
	ArtifactID     string
	OriginalPrompt string
}

// Controller wires the gateway, the store, and the single session slot.
type Controller struct {
	gw    gateway.Client
	store *store.Store

	mu     sync.Mutex
	active *Session
}

// New creates a Controller.
func New(gw gateway.Client, s *store.Store) *Controller {
	return &Controller{gw: gw, store: s}
}

// GenerateBatch submits the product form to the backend and commits the
// results. On gateway failure it commits deterministic stub artifacts
// instead and reports degraded=true; it never returns an empty batch.
func (c *Controller) GenerateBatch(ctx context.Context, req gateway.GenerateRequest) ([]*model.Artifact, bool) {
	if req.OutputCount < 1 {
		req.OutputCount = 1
	}
	if req.OutputCount > 5 {
		req.OutputCount = 5
	}

	raws, err := c.gw.Generate(ctx, req)
	if err != nil {
		slog.Warn("generate failed, committing stub artifacts",
			"product", req.ProductName, "count", req.OutputCount, "error", err)
		return c.store.CreateStub(req.ProductName, req.OutputCount), true
	}
	return c.store.Create(raws), false
}

// BeginRegeneration opens the regeneration session for the artifact.
// It fails with ConflictError while any session is active and with
// NotFoundError for an unknown id.
func (c *Controller) BeginRegeneration(id string) (*Session, error) {
	return c.begin(KindRegenerate, id)
}

// BeginEdit opens the edit session for the artifact.
func (c *Controller) BeginEdit(id string) (*Session, error) {
	return c.begin(KindEdit, id)
}

func (c *Controller) begin(kind, id string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, &model.ConflictError{Op: "begin " + kind}
	}
	art, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	s := &Session{Kind: kind, ArtifactID: id, OriginalPrompt: art.CurrentPrompt}
	c.active = s
	return s, nil
}

// ConfirmRegeneration asks the backend for a preset-guided variant and
// commits the result. On gateway failure a deterministic fallback
// variant is committed instead, so the store is mutated exactly once
// either way. The session closes in both outcomes. degraded reports
// whether the fallback path ran.
func (c *Controller) ConfirmRegeneration(ctx context.Context, s *Session, preset, note string) (art *model.Artifact, degraded bool, err error) {
	if !c.isActive(s) || s.Kind != KindRegenerate {
		return nil, false, ErrInactiveSession
	}
	if !model.ValidPreset(preset) {
		// Session stays open: the caller can retry with a valid preset
		// or cancel.
		return nil, false, fmt.Errorf("unknown preset %q", preset)
	}
	defer c.release(s)

	newPrompt := ""
	res, gwErr := c.gw.Regenerate(ctx, gateway.RegenerateRequest{
		ResultID:       s.ArtifactID,
		OriginalPrompt: s.OriginalPrompt,
		AdjustmentType: preset,
		Note:           note,
	})
	if gwErr != nil {
		slog.Warn("regenerate failed, applying fallback variant",
			"artifact_id", s.ArtifactID, "preset", preset, "error", gwErr)
		newPrompt = fallbackVariant(s.OriginalPrompt, preset)
		degraded = true
	} else {
		newPrompt = res.FinalPrompt
	}

	art, err = c.store.ApplyMutation(s.ArtifactID, newPrompt)
	return art, degraded, err
}

// CancelRegeneration closes the session without mutating the store.
func (c *Controller) CancelRegeneration(s *Session) {
	c.release(s)
}

// ConfirmEdit sends the draft through backend optimization and commits
// the optimized text; when optimization fails the raw draft is
// committed unchanged and degraded=true. The session closes either way.
func (c *Controller) ConfirmEdit(ctx context.Context, s *Session, draft string) (art *model.Artifact, degraded bool, err error) {
	if !c.isActive(s) || s.Kind != KindEdit {
		return nil, false, ErrInactiveSession
	}
	defer c.release(s)

	newPrompt, gwErr := c.gw.Optimize(ctx, draft)
	if gwErr != nil {
		slog.Warn("optimize failed, committing raw draft",
			"artifact_id", s.ArtifactID, "error", gwErr)
		newPrompt = draft
		degraded = true
	}

	art, err = c.store.ApplyMutation(s.ArtifactID, newPrompt)
	return art, degraded, err
}

// CancelEdit discards the draft without mutating the store.
func (c *Controller) CancelEdit(s *Session) {
	c.release(s)
}

func (c *Controller) isActive(s *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s != nil && c.active == s
}

func (c *Controller) release(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == s {
		c.active = nil
	}
}

// fallbackVariant marks the original prompt as a locally produced
// variant when the backend cannot serve the regeneration.
func fallbackVariant(original, preset string) string {
	return original + "\n\n# Regenerated (variant: " + preset + ")"
}
