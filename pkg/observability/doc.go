// Package observability provides OpenTelemetry tracing and metrics for the
// corridor substrate, plus a queryable audit timeline and SLI/SLO tracking
// over corridor operations.
//
// # Tracing and metrics
//
// Initialize a provider at process startup:
//
//	p, err := observability.New(ctx, observability.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// Track an operation end to end:
//
//	ctx, finish := p.TrackOperation(ctx, "corridor.append",
//		observability.CorridorOperation(corridorID, entityID, "ACTIVE")...)
//	defer finish(err)
//
// # Audit timeline
//
// Record and query structured events:
//
//	timeline := observability.NewAuditTimeline()
//	timeline.Record(observability.TimelineEntry{EntryType: observability.EntryTypeDecision, RunID: corridorID})
//	timeline.Query(observability.TimelineQuery{RunID: corridorID})
package observability
