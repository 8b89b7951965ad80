// Package observability provides corridor-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Corridor semantic convention attributes.
var (
	AttrCorridorID    = attribute.Key("corridor.id")
	AttrEntityID      = attribute.Key("corridor.entity.id")
	AttrCorridorState = attribute.Key("corridor.lifecycle.state")

	// Tensor / compliance attributes
	AttrJurisdiction = attribute.Key("corridor.compliance.jurisdiction")
	AttrDomain       = attribute.Key("corridor.compliance.domain")
	AttrObligationID = attribute.Key("corridor.compliance.obligation_id")
	AttrComplianceOK = attribute.Key("corridor.compliance.compliant")

	// Policy / dispatch attributes
	AttrPolicyID     = attribute.Key("corridor.policy.id")
	AttrPolicyAction = attribute.Key("corridor.policy.action")
	AttrTrigger      = attribute.Key("corridor.policy.trigger")

	// Watcher / arbitration attributes
	AttrWatcherID = attribute.Key("corridor.watcher.id")
	AttrDisputeID = attribute.Key("corridor.watcher.dispute_id")

	// Crypto attributes
	AttrCryptoAlgorithm = attribute.Key("corridor.crypto.algorithm")
	AttrCryptoOperation = attribute.Key("corridor.crypto.operation")
	AttrCryptoKeyID     = attribute.Key("corridor.crypto.key_id")
)

// CorridorOperation creates attributes for a corridor lifecycle transition.
func CorridorOperation(corridorID, entityID, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCorridorID.String(corridorID),
		AttrEntityID.String(entityID),
		AttrCorridorState.String(state),
	}
}

// ComplianceOperation creates attributes for a tensor evaluation.
func ComplianceOperation(jurisdiction, domain, obligationID string, compliant bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrJurisdiction.String(jurisdiction),
		AttrDomain.String(domain),
		AttrObligationID.String(obligationID),
		AttrComplianceOK.Bool(compliant),
	}
}

// PolicyOperation creates attributes for a policy dispatch.
func PolicyOperation(policyID, action, trigger string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyID.String(policyID),
		AttrPolicyAction.String(action),
		AttrTrigger.String(trigger),
	}
}

// WatcherOperation creates attributes for a watcher/arbitration event.
func WatcherOperation(watcherID, disputeID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrWatcherID.String(watcherID),
		AttrDisputeID.String(disputeID),
	}
}

// CryptoOperation creates attributes for cryptographic operations.
func CryptoOperation(algorithm, operation, keyID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCryptoAlgorithm.String(algorithm),
		AttrCryptoOperation.String(operation),
		AttrCryptoKeyID.String(keyID),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records err on the current span, if any.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
