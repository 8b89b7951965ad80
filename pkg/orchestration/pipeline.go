// Package orchestration implements the 8-stage write pipeline of
// spec.md §4.13: authenticate, validate, evaluate compliance, call an
// external primitive, issue a credential, append a receipt, dispatch
// policies, and persist an attestation. It is the one place in the
// corridor substrate that composes every other component (C4-C12) into
// a single request/response contract.
package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/corridorledger/substrate/pkg/canonicalize"
	"github.com/corridorledger/substrate/pkg/compliance"
	"github.com/corridorledger/substrate/pkg/credentials"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/interfaces"
	"github.com/corridorledger/substrate/pkg/observability"
	"github.com/corridorledger/substrate/pkg/policy"
	"github.com/corridorledger/substrate/pkg/receipts"
	"github.com/corridorledger/substrate/pkg/schema"
	"github.com/corridorledger/substrate/pkg/store"
)

// WriteRequest is the caller-supplied input to HandleWrite.
type WriteRequest struct {
	BearerToken string

	CorridorID   string
	EntityID     string
	Jurisdiction string
	Applicable   map[compliance.Domain]bool
	// PolicyArtifacts backs any domain left inapplicable with a signed
	// NotApplicable artifact (spec.md §4.9).
	PolicyArtifacts map[compliance.Domain]*interfaces.ArtifactRef

	SchemaID string
	Payload  json.RawMessage

	Primitive string
	Operation string

	// Sequence/PrevRoot must match the corridor chain's observed head
	// exactly; they are never inferred server-side (spec.md §4.7).
	Sequence uint64
	PrevRoot string
	Proposer string

	CredentialSubject string
	CredentialType    []string
	CredentialClaims  map[string]interface{}
}

// Envelope is the pipeline's output, per spec.md §4.13:
// (primitive_response, compliance_slice, credential, attestation_id, receipt_head).
type Envelope struct {
	PrimitiveResponse *PrimitiveResponse      `json:"primitive_response"`
	ComplianceSlice   compliance.Slice        `json:"compliance_slice"`
	Credential        *credentials.Credential `json:"credential"`
	AttestationID     string                  `json:"attestation_id"`
	ReceiptHead       string                  `json:"receipt_head"`
}

// Pipeline wires C4 (crypto), C5 (credentials), C7 (receipts), C9
// (compliance), C12 (policy), and C14 (schema) into spec.md §4.13's
// write path. Every field is a dependency injected at construction time,
// per spec.md §9's "owned by an application value created at startup;
// no ambient access."
type Pipeline struct {
	Auth       *BearerAuthenticator
	Schemas    *schema.Registry
	Tensor     *compliance.Tensor
	Chains     *ChainStore
	Primitives PrimitiveRegistry
	Signer     crypto.Signer
	Policies   *policy.Registry
	Store      interfaces.ArtifactStore

	// Receipts durably mirrors every appended receipt, so a restarted
	// dispatcher can reconstruct a corridor's receipt history without
	// replaying proposals. Nil skips the durable mirror (in-memory
	// Chains remains the source of truth either way).
	Receipts store.ReceiptStore
	// Outbox persists every ScheduledAction Dispatch emits, so a
	// dispatcher process can resume pending policy actions after a
	// restart. Nil means dispatched actions are fire-and-forget.
	Outbox store.ScheduledActionStore

	Clock func() time.Time

	// Limiter bounds the rate of external primitive calls, per spec.md
	// §5's note that external calls are the pipeline's only suspension
	// points and therefore the only place a timeout/backoff budget is
	// needed.
	Limiter *rate.Limiter
	// CallTimeout bounds a single external primitive call.
	CallTimeout time.Duration

	Logger *slog.Logger

	// Telemetry wraps HandleWrite in a span and RED metrics when set; nil
	// is a valid zero value (no tracing/metrics overhead).
	Telemetry *observability.Provider

	// SLOs records each HandleWrite call's latency/success against the
	// operation's SLO target, if one is registered. Nil disables
	// recording.
	SLOs *observability.SLOTracker
	// Audit appends a queryable timeline entry for every receipt this
	// pipeline writes. Nil disables the timeline.
	Audit *observability.AuditTimeline
}

func (p *Pipeline) clock() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// HandleWrite runs all 8 stages in order, failing fast on the first
// stage error. Failures of stages 1-4 and 6 are the *Error types in
// failure.go, which StatusFor maps to spec.md §6's status-code taxonomy;
// credential signing (stage 5) and attestation persistence (stage 8)
// failures are returned as wrapped plain errors, which StatusFor maps to
// StatusUnprocessable.
func (p *Pipeline) HandleWrite(ctx context.Context, req WriteRequest) (env *Envelope, err error) {
	log := p.logger().With("corridor_id", req.CorridorID, "primitive", req.Primitive)

	if p.Telemetry != nil {
		var finish func(error)
		ctx, finish = p.Telemetry.TrackOperation(ctx, "corridor.handle_write",
			observability.CorridorOperation(req.CorridorID, req.EntityID, "")...)
		defer func() { finish(err) }()
	}

	if p.SLOs != nil {
		start := p.clock()
		defer func() {
			p.SLOs.Record(observability.SLOObservation{
				Operation: "handle_write",
				Latency:   p.clock().Sub(start),
				Success:   err == nil,
			})
		}()
	}

	// Stage 1: Authenticate.
	if err := p.Auth.Authenticate(req.BearerToken); err != nil {
		log.Warn("authentication failed")
		return nil, err
	}

	// Stage 2: Validate.
	if req.SchemaID != "" {
		var decoded interface{}
		if err := json.Unmarshal(req.Payload, &decoded); err != nil {
			return nil, &InvalidError{Pointer: "", Message: err.Error()}
		}
		if err := p.Schemas.Validate(decoded, req.SchemaID); err != nil {
			if verrs, ok := err.(schema.ValidationErrors); ok && len(verrs) > 0 {
				return nil, &InvalidError{Pointer: verrs[0].Pointer, Message: verrs[0].Message}
			}
			return nil, &InvalidError{Pointer: "", Message: err.Error()}
		}
	}

	// Stage 3: Evaluate compliance tensor.
	slice, err := p.Tensor.Evaluate(req.EntityID, req.Jurisdiction, req.Applicable, req.PolicyArtifacts)
	if err != nil {
		return nil, &InvalidError{Pointer: "/jurisdiction", Message: err.Error()}
	}
	if blocked, reason := slice.HardBlocked(); blocked {
		log.Warn("hard blocked by sanctions cell", "reason", reason)
		return nil, &HardBlockedError{Reason: reason}
	}

	// Stage 4: Call external primitive.
	primResp, err := p.callPrimitive(ctx, req)
	if err != nil {
		return nil, err
	}

	// Stage 5: Issue credential, signed by the zone key.
	cred := credentials.NewCredential(p.Signer.PublicKey(), req.CredentialSubject, req.CredentialType, req.CredentialClaims, p.clock())
	if err := credentials.Sign(cred, p.Signer, credentials.ProofTypeEd25519, "assertionMethod", p.clock()); err != nil {
		return nil, fmt.Errorf("orchestration: sign credential: %w", err)
	}

	// Stage 6: Append receipt. prev_root must equal the chain's current
	// mmr_root, per spec.md §4.7 — callers cannot skip ahead.
	chain := p.Chains.Get(req.CorridorID)
	if req.Sequence != chain.Length() || req.PrevRoot != chain.MMRRoot() {
		return nil, &ConflictError{Detail: "sequence or prev_root does not match corridor head"}
	}
	receipt, err := chain.Append(receipts.ReceiptProposal{
		Sequence: req.Sequence,
		PrevRoot: req.PrevRoot,
		Payload:  req.Payload,
		IssuedAt: p.clock(),
		Proposer: req.Proposer,
	})
	if err != nil {
		return nil, &ConflictError{Detail: err.Error()}
	}
	if p.Receipts != nil {
		if err := p.Receipts.Store(ctx, req.CorridorID, receipt); err != nil {
			log.Error("durable receipt mirror failed", "error", err)
		}
	}
	if p.Audit != nil {
		if err := p.Audit.Record(observability.TimelineEntry{
			EntryType: observability.EntryTypeAction,
			RunID:     req.CorridorID,
			TenantID:  req.Jurisdiction,
			Actor:     req.Proposer,
			Summary:   fmt.Sprintf("%s/%s appended receipt #%d", req.Primitive, req.Operation, receipt.Sequence),
			Details:   map[string]interface{}{"receipt_digest": receipt.Digest, "sequence": receipt.Sequence},
		}); err != nil {
			log.Error("audit timeline record failed", "error", err)
		}
	}

	// Stage 7: Dispatch policies over the post-action trigger.
	state := map[string]interface{}{
		"corridor_id":  req.CorridorID,
		"entity_id":    req.EntityID,
		"jurisdiction": req.Jurisdiction,
		"sequence":     receipt.Sequence,
	}
	if p.Policies != nil {
		actions, _, err := p.Policies.Dispatch(policy.TriggerReceiptAppended, state)
		if err != nil {
			log.Error("policy dispatch failed", "error", err)
		}
		if p.Outbox != nil {
			for _, action := range actions {
				if _, err := p.Outbox.Schedule(ctx, action); err != nil {
					log.Error("failed to persist scheduled action to outbox", "error", err, "policy_id", action.PolicyID)
				}
			}
		}
	}

	// Stage 8: Persist attestation.
	attestationID, err := p.persistAttestation(req, slice, cred, receipt)
	if err != nil {
		return nil, fmt.Errorf("orchestration: persist attestation: %w", err)
	}

	return &Envelope{
		PrimitiveResponse: primResp,
		ComplianceSlice:   slice,
		Credential:        cred,
		AttestationID:     attestationID,
		ReceiptHead:       receipt.NextRoot,
	}, nil
}

func (p *Pipeline) callPrimitive(ctx context.Context, req WriteRequest) (*PrimitiveResponse, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, &PrimitiveTransientError{Retryable: true, Cause: err}
		}
	}

	callCtx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	resp, err := p.Primitives.call(callCtx, PrimitiveRequest{
		Primitive: req.Primitive,
		Operation: req.Operation,
		Payload:   req.Payload,
	})
	if err != nil {
		switch err.(type) {
		case *PrimitiveUnavailableError, *PrimitiveRejectedError, *PrimitiveTransientError:
			return nil, err
		default:
			if callCtx.Err() != nil {
				return nil, &PrimitiveTransientError{Retryable: true, Cause: callCtx.Err()}
			}
			return nil, &PrimitiveTransientError{Retryable: true, Cause: err}
		}
	}
	return resp, nil
}

func (p *Pipeline) persistAttestation(req WriteRequest, slice compliance.Slice, cred *credentials.Credential, receipt *receipts.ReceiptWithRoots) (string, error) {
	attestation := map[string]interface{}{
		"corridor_id":      req.CorridorID,
		"receipt_sequence": receipt.Sequence,
		"receipt_digest":   receipt.Digest,
		"compliance_slice": slice,
		"credential_id":    cred.ID,
	}
	cb, err := canonicalize.Canonicalize(attestation)
	if err != nil {
		return "", err
	}
	digest := canonicalize.Digest(cb)
	length := int64(len(cb))

	ref, err := p.Store.Store(&interfaces.Artifact{
		Ref: interfaces.ArtifactRef{
			ArtifactType: interfaces.ArtifactBlob,
			Digest:       digest.String(),
			MediaType:    "application/json",
			ByteLength:   &length,
		},
		ContentType:    "application/json",
		CanonicalBytes: []byte(cb),
	})
	if err != nil {
		return "", err
	}
	return ref.Digest, nil
}

// HandleRead runs a read-only request through validation only; stages
// 3, 5, 6, 7, 8 are skipped entirely per spec.md §4.13 ("read paths
// bypass ... they are pass-through and do not mutate the chain").
func (p *Pipeline) HandleRead(ctx context.Context, bearerToken, schemaID string, payload json.RawMessage) error {
	if err := p.Auth.Authenticate(bearerToken); err != nil {
		return err
	}
	if schemaID == "" {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &InvalidError{Pointer: "", Message: err.Error()}
	}
	if err := p.Schemas.Validate(decoded, schemaID); err != nil {
		if verrs, ok := err.(schema.ValidationErrors); ok && len(verrs) > 0 {
			return &InvalidError{Pointer: verrs[0].Pointer, Message: verrs[0].Message}
		}
		return &InvalidError{Pointer: "", Message: err.Error()}
	}
	return nil
}
