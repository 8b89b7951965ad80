package orchestration

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/corridorledger/substrate/pkg/compliance"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/interfaces"
	"github.com/corridorledger/substrate/pkg/policy"
	"github.com/corridorledger/substrate/pkg/schema"
)

type memStore struct {
	byDigest map[string]*interfaces.Artifact
}

func newMemStore() *memStore { return &memStore{byDigest: map[string]*interfaces.Artifact{}} }

func (m *memStore) Store(a *interfaces.Artifact) (interfaces.ArtifactRef, error) {
	m.byDigest[a.Ref.Digest] = a
	return a.Ref, nil
}
func (m *memStore) Resolve(ref interfaces.ArtifactRef) (*interfaces.Artifact, error) {
	a, ok := m.byDigest[ref.Digest]
	if !ok {
		return nil, errNotFound
	}
	return a, nil
}
func (m *memStore) Exists(ref interfaces.ArtifactRef) (bool, error) {
	_, ok := m.byDigest[ref.Digest]
	return ok, nil
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "not found" }

const fixedSchemaID = "transfer-request"

// zeroMMRRoot is the hex-encoded zero digest a fresh, empty receipts.Chain
// reports as its MMRRoot().
var zeroMMRRoot = strings.Repeat("0", 64)


const transferSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "amount": {"type": "integer"}
  },
  "required": ["amount"]
}`

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()

	signer, err := crypto.NewEd25519Signer("zone-key")
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	schemas := schema.NewRegistry()
	if err := schemas.Register(fixedSchemaID, []byte(transferSchema)); err != nil {
		t.Fatalf("Register schema: %v", err)
	}

	tensor := compliance.NewTensor(func() time.Time { return time.Unix(0, 0).UTC() })
	if err := tensor.RegisterEvaluator(compliance.DomainSanctions, func(entityID, jurisdiction string) (compliance.Cell, error) {
		return compliance.Cell{State: compliance.StateCompliant}, nil
	}); err != nil {
		t.Fatalf("RegisterEvaluator: %v", err)
	}

	policies := policy.NewRegistry()

	return &Pipeline{
		Auth:    NewBearerAuthenticator("secret-token"),
		Schemas: schemas,
		Tensor:  tensor,
		Chains:  NewChainStore(nil, ""),
		Primitives: PrimitiveRegistry{
			"transfer": &fakePrimitiveClient{resp: &PrimitiveResponse{Payload: json.RawMessage(`{"accepted":true}`)}},
		},
		Signer:   signer,
		Policies: policies,
		Store:    newMemStore(),
		Clock:    func() time.Time { return time.Unix(0, 0).UTC() },
	}
}

func baseRequest() WriteRequest {
	return WriteRequest{
		BearerToken:       "secret-token",
		CorridorID:        "corridor-A",
		EntityID:          "entity-1",
		Jurisdiction:      "US",
		Applicable:        map[compliance.Domain]bool{compliance.DomainSanctions: true},
		SchemaID:          fixedSchemaID,
		Payload:           json.RawMessage(`{"amount": 100}`),
		Primitive:         "transfer",
		Sequence:          0,
		PrevRoot:          zeroMMRRoot,
		Proposer:          "operator-1",
		CredentialSubject: "entity-1",
		CredentialType:    []string{"TransferAuthorization"},
		CredentialClaims:  map[string]interface{}{"amount": 100},
	}
}

func TestHandleWrite_HappyPath(t *testing.T) {
	p := testPipeline(t)
	req := baseRequest()

	env, err := p.HandleWrite(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleWrite failed: %v", err)
	}
	if env.Credential == nil || len(env.Credential.Proofs) != 1 {
		t.Fatalf("expected a signed credential with one proof, got %+v", env.Credential)
	}
	if env.ReceiptHead == "" {
		t.Fatal("expected a non-empty receipt head")
	}
	if env.AttestationID == "" {
		t.Fatal("expected a non-empty attestation id")
	}
	if env.ComplianceSlice.Cells[compliance.DomainSanctions].State != compliance.StateCompliant {
		t.Fatalf("expected sanctions cell to be compliant, got %+v", env.ComplianceSlice.Cells)
	}
}

func TestHandleWrite_WrongBearerTokenIsUnauthorized(t *testing.T) {
	p := testPipeline(t)
	req := baseRequest()
	req.BearerToken = "wrong"

	_, err := p.HandleWrite(context.Background(), req)
	if _, ok := err.(*UnauthorizedError); !ok {
		t.Fatalf("expected *UnauthorizedError, got %T: %v", err, err)
	}
	if StatusFor(err) != StatusUnauthorized {
		t.Fatalf("expected StatusUnauthorized, got %s", StatusFor(err))
	}
}

func TestHandleWrite_SchemaViolationIsInvalid(t *testing.T) {
	p := testPipeline(t)
	req := baseRequest()
	req.Payload = json.RawMessage(`{"amount": "not-a-number"}`)

	_, err := p.HandleWrite(context.Background(), req)
	ierr, ok := err.(*InvalidError)
	if !ok {
		t.Fatalf("expected *InvalidError, got %T: %v", err, err)
	}
	if StatusFor(ierr) != StatusUnprocessable {
		t.Fatalf("expected StatusUnprocessable, got %s", StatusFor(ierr))
	}
}

func TestHandleWrite_SanctionsHardBlock(t *testing.T) {
	p := testPipeline(t)
	if err := p.Tensor.RegisterEvaluator(compliance.DomainSanctions, func(entityID, jurisdiction string) (compliance.Cell, error) {
		return compliance.Cell{State: compliance.StateNonCompliant, Reason: "matched OFAC list"}, nil
	}); err != nil {
		t.Fatalf("RegisterEvaluator: %v", err)
	}

	_, err := p.HandleWrite(context.Background(), baseRequest())
	berr, ok := err.(*HardBlockedError)
	if !ok {
		t.Fatalf("expected *HardBlockedError, got %T: %v", err, err)
	}
	if berr.Reason != "matched OFAC list" {
		t.Fatalf("expected reason to propagate, got %q", berr.Reason)
	}
	if StatusFor(err) != StatusForbidden {
		t.Fatalf("expected StatusForbidden, got %s", StatusFor(err))
	}
}

func TestHandleWrite_PrimitiveUnavailable(t *testing.T) {
	p := testPipeline(t)
	req := baseRequest()
	req.Primitive = "entities"

	_, err := p.HandleWrite(context.Background(), req)
	if _, ok := err.(*PrimitiveUnavailableError); !ok {
		t.Fatalf("expected *PrimitiveUnavailableError, got %T: %v", err, err)
	}
	if StatusFor(err) != StatusNotImplemented {
		t.Fatalf("expected StatusNotImplemented, got %s", StatusFor(err))
	}
}

func TestHandleWrite_SequenceConflictIsDetected(t *testing.T) {
	p := testPipeline(t)
	req := baseRequest()
	if _, err := p.HandleWrite(context.Background(), req); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// Replaying the same sequence/prev_root against an already-advanced
	// chain must fail as a conflict, not silently double-append.
	_, err := p.HandleWrite(context.Background(), req)
	if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("expected *ConflictError on replay, got %T: %v", err, err)
	}
	if StatusFor(err) != StatusConflict {
		t.Fatalf("expected StatusConflict, got %s", StatusFor(err))
	}
}

func TestHandleRead_BypassesComplianceAndChain(t *testing.T) {
	p := testPipeline(t)
	// Register no sanctions evaluator failure path; reads never touch it.
	if err := p.HandleRead(context.Background(), "secret-token", "", nil); err != nil {
		t.Fatalf("HandleRead failed: %v", err)
	}
	if p.Chains.Get("corridor-A").Length() != 0 {
		t.Fatal("expected a read to leave the chain untouched")
	}
}
