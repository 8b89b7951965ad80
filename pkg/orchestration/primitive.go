package orchestration

import (
	"context"
	"encoding/json"
)

// PrimitiveRequest is the typed call made to an external primitive
// service (entities, ownership, fiscal, identity, consent — spec.md §1
// calls these the "Mass" primitive services). The core is a client of
// these; it never hosts them.
type PrimitiveRequest struct {
	Primitive string          `json:"primitive"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// PrimitiveResponse is the typed result of a successful primitive call.
type PrimitiveResponse struct {
	Payload json.RawMessage `json:"payload"`
}

// PrimitiveClient is the typed external client spec.md §6 requires:
// "request/response shapes match the external services' OpenAPI
// documents." This package only depends on the call contract; the wire
// codec living behind it is out of scope (§1 Non-goals).
type PrimitiveClient interface {
	Call(ctx context.Context, req PrimitiveRequest) (*PrimitiveResponse, error)
}

// PrimitiveRegistry resolves a primitive name to the client that serves
// it. A primitive absent from the registry yields PrimitiveUnavailableError,
// mapped to 501 Not Implemented per spec.md §6.
type PrimitiveRegistry map[string]PrimitiveClient

func (r PrimitiveRegistry) call(ctx context.Context, req PrimitiveRequest) (*PrimitiveResponse, error) {
	client, ok := r[req.Primitive]
	if !ok {
		return nil, &PrimitiveUnavailableError{Primitive: req.Primitive}
	}
	return client.Call(ctx, req)
}
