package orchestration

import (
	"context"
	"testing"
)

type fakePrimitiveClient struct {
	resp *PrimitiveResponse
	err  error
}

func (f *fakePrimitiveClient) Call(ctx context.Context, req PrimitiveRequest) (*PrimitiveResponse, error) {
	return f.resp, f.err
}

func TestPrimitiveRegistry_CallUnknownPrimitiveIsUnavailable(t *testing.T) {
	r := PrimitiveRegistry{}
	_, err := r.call(context.Background(), PrimitiveRequest{Primitive: "entities"})
	if _, ok := err.(*PrimitiveUnavailableError); !ok {
		t.Fatalf("expected *PrimitiveUnavailableError, got %T: %v", err, err)
	}
}

func TestPrimitiveRegistry_CallDelegatesToRegisteredClient(t *testing.T) {
	want := &PrimitiveResponse{Payload: []byte(`{"ok":true}`)}
	r := PrimitiveRegistry{"entities": &fakePrimitiveClient{resp: want}}

	got, err := r.call(context.Background(), PrimitiveRequest{Primitive: "entities"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if string(got.Payload) != string(want.Payload) {
		t.Fatalf("expected payload to pass through, got %s", got.Payload)
	}
}

func TestPrimitiveRegistry_PropagatesRejection(t *testing.T) {
	r := PrimitiveRegistry{"entities": &fakePrimitiveClient{err: &PrimitiveRejectedError{Code: "duplicate"}}}

	_, err := r.call(context.Background(), PrimitiveRequest{Primitive: "entities"})
	rerr, ok := err.(*PrimitiveRejectedError)
	if !ok {
		t.Fatalf("expected *PrimitiveRejectedError, got %T: %v", err, err)
	}
	if rerr.Code != "duplicate" {
		t.Fatalf("expected code to propagate, got %q", rerr.Code)
	}
}
