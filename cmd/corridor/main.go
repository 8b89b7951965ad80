// Command corridor bootstraps a single-process corridor substrate: it
// wires the artifact store, signer, schema registry, compliance tensor,
// receipt chains, policy registry, watcher pool and orchestration
// pipeline together the way a long-lived operator process would, then
// seeds the pack registry from a directory of manifests and opens the
// corridor's lifecycle machine. It is a composition-root example, not an
// HTTP service (per Non-goals, no router is included).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/corridorledger/substrate/pkg/artifacts"
	"github.com/corridorledger/substrate/pkg/compliance"
	"github.com/corridorledger/substrate/pkg/config"
	"github.com/corridorledger/substrate/pkg/crypto"
	"github.com/corridorledger/substrate/pkg/evidence"
	"github.com/corridorledger/substrate/pkg/lifecycle"
	"github.com/corridorledger/substrate/pkg/observability"
	"github.com/corridorledger/substrate/pkg/orchestration"
	"github.com/corridorledger/substrate/pkg/pack"
	"github.com/corridorledger/substrate/pkg/policy"
	"github.com/corridorledger/substrate/pkg/schema"
	"github.com/corridorledger/substrate/pkg/store"
	"github.com/corridorledger/substrate/pkg/watcher"
)

func main() {
	cfg := config.Load()
	if cfg.BootKey == "" {
		log.Fatal("SYSTEM_BOOT_KEY environment variable is required for the corridor system signer")
	}
	packsDir := filepath.Join(cfg.DataDir, "packs")
	artifactsDir := filepath.Join(cfg.DataDir, "artifacts")

	if profiles, err := config.LoadAllProfiles(cfg.ProfilesDir); err != nil {
		log.Printf("[bootstrap] no regional profiles loaded from %s: %v\n", cfg.ProfilesDir, err)
	} else {
		log.Printf("[bootstrap] loaded %d regional profile(s) from %s\n", len(profiles), cfg.ProfilesDir)
	}

	signer, err := crypto.NewEd25519Signer(cfg.BootKey)
	if err != nil {
		log.Fatalf("failed to create system signer: %v", err)
	}
	log.Printf("[bootstrap] system signer ready, key_id=%s public_key=%s\n", signer.KeyID, signer.PublicKey())

	backend, err := artifacts.NewFileStore(artifactsDir)
	if err != nil {
		log.Fatalf("failed to open artifact store: %v", err)
	}
	artifactStore := artifacts.NewArtifactStore(backend)

	schemas := schema.NewRegistry()
	tensor := compliance.NewTensor(time.Now)
	chains := orchestration.NewChainStore(schemas, "")
	policies := policy.NewRegistry()

	var receiptStore store.ReceiptStore
	var outboxStore store.ScheduledActionStore
	if db, err := sql.Open("postgres", cfg.DatabaseURL); err != nil {
		log.Printf("[bootstrap] durable receipt/outbox stores disabled: %v\n", err)
	} else {
		pgReceipts := store.NewPostgresReceiptStore(db)
		pgOutbox := store.NewPostgresScheduledActionStore(db)
		if err := pgReceipts.Init(context.Background()); err != nil {
			log.Printf("[bootstrap] durable receipt/outbox stores disabled, database unreachable at %s: %v\n", cfg.DatabaseURL, err)
			_ = db.Close()
		} else if err := pgOutbox.Init(context.Background()); err != nil {
			log.Printf("[bootstrap] durable outbox store disabled: %v\n", err)
			receiptStore = pgReceipts
		} else {
			receiptStore = pgReceipts
			outboxStore = pgOutbox
			log.Println("[bootstrap] durable receipt and policy-outbox stores connected")
		}
	}

	otelConfig := observability.DefaultConfig()
	otelConfig.ServiceName = "corridor-substrate"
	otelConfig.Enabled = false // enable once an OTLP collector endpoint is configured
	telemetry, err := observability.New(context.Background(), otelConfig)
	if err != nil {
		log.Fatalf("failed to init observability provider: %v", err)
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()

	slis := observability.NewSLIRegistry()
	slos := observability.NewSLOTracker()
	slos.SetTarget(&observability.SLOTarget{
		SLOID:       "slo-handle-write",
		Name:        "corridor write latency and success rate",
		Operation:   "handle_write",
		LatencyP99:  2 * time.Second,
		SuccessRate: 0.995,
		WindowHours: 24,
	})
	if err := slis.Register(&observability.SLI{
		SLIID:             "sli-handle-write-latency",
		Name:              "corridor write latency",
		Operation:         "handle_write",
		EssentialVariable: "corridor.write.latency_ms",
		Source:            observability.SLISourceMetric,
		Unit:              "ms",
		GoodEventQuery:    "latency_ms <= 2000",
		TotalEventQuery:   "*",
		LinkedSLOID:       "slo-handle-write",
	}); err != nil {
		log.Printf("[bootstrap] failed to register handle_write SLI: %v\n", err)
	}
	auditTimeline := observability.NewAuditTimeline()

	pipeline := &orchestration.Pipeline{
		Auth:        orchestration.NewBearerAuthenticator(cfg.BootKey),
		Schemas:     schemas,
		Tensor:      tensor,
		Chains:      chains,
		Primitives:  orchestration.PrimitiveRegistry{},
		Signer:      signer,
		Policies:    policies,
		Store:       artifactStore,
		Receipts:    receiptStore,
		Outbox:      outboxStore,
		Clock:       time.Now,
		Limiter:     rate.NewLimiter(rate.Limit(50), 10),
		CallTimeout: 5 * time.Second,
		Logger:      slog.Default(),
		Telemetry:   telemetry,
		SLOs:        slos,
		Audit:       auditTimeline,
	}

	packRegistry := pack.NewFSRegistry(packsDir)
	resolver := pack.NewResolver(packRegistry)
	verifier := pack.NewVerifier(packRegistry)
	verifier.SetProvenancePolicy(pack.DefaultProvenancePolicy())

	bonds := watcher.NewRegistry(signer, artifactStore, time.Now)
	genesisWatcher := lifecycle.NewWatcherID()
	if _, err := bonds.Bond(genesisWatcher, 1000); err != nil {
		log.Fatalf("failed to bond genesis watcher: %v", err)
	}

	watcherPool, err := watcher.NewPool([]lifecycle.WatcherID{genesisWatcher}, 1, 5*time.Minute, nil, time.Now)
	if err != nil {
		log.Fatalf("failed to construct watcher pool: %v", err)
	}
	disputes := watcher.NewDisputeRegistry(time.Now)

	evidenceRegistry := evidence.NewRegistry()
	evidenceExporter := evidence.NewExporter(signer, signer.KeyID)

	log.Println("[bootstrap] Seeding ops packs...")
	if err := seedPacks(packsDir, signer); err != nil {
		log.Printf(">> Warning: failed to seed packs: %v\n", err)
	} else {
		log.Println("[bootstrap] Ops packs seeded.")
	}

	corridor := lifecycle.NewCorridorMachine(time.Now)
	if _, err := corridor.Fire("submit", lifecycle.CorridorPending, "", "bootstrap"); err != nil {
		log.Fatalf("failed to submit corridor: %v", err)
	}
	if _, err := corridor.Fire("activate", lifecycle.CorridorActive, "", "bootstrap"); err != nil {
		log.Fatalf("failed to activate corridor: %v", err)
	}

	log.Printf("[bootstrap] corridor state=%s, pack registry=%s, watcher pool authorized genesis watcher %s\n",
		corridor.State(), packsDir, genesisWatcher)

	// pipeline, resolver, verifier, watcherPool, disputes, evidenceRegistry,
	// evidenceExporter, slis and auditTimeline are now wired for an
	// application's request path (HandleWrite/HandleRead per inbound
	// corridor operation, Resolve/Verify per pack install, Evaluate per
	// watcher quorum check, File per arbitration event, CheckBefore/
	// CheckAfter per proof-carrying action, ExportSOC2 per audit request,
	// Query per read-side timeline request); this binary only performs
	// the one-time bootstrap sequence above. slos and the pipeline's
	// Audit field are already exercised by HandleWrite itself.
	_ = pipeline
	_ = resolver
	_ = watcherPool
	_ = disputes
	_ = evidenceRegistry
	_ = evidenceExporter
	_ = slis

	log.Println("[bootstrap] Corridor substrate ready.")
}

// seedPacks scans root/ops/<pack>/manifest.json and writes each as a
// versioned pack directory under root, so pack.NewFSRegistry can serve
// it immediately. Packs that fail to parse are skipped with a warning
// rather than aborting the whole seed pass.
func seedPacks(root string, signer crypto.Signer) error {
	entries, err := os.ReadDir(filepath.Join(root, "ops"))
	if err != nil {
		return err // directory absent is not fatal; caller logs a warning
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifestPath := filepath.Join(root, "ops", e.Name(), "manifest.json")
		//nolint:gosec // G304: local manifest read under an operator-controlled data dir
		content, err := os.ReadFile(manifestPath)
		if err != nil {
			log.Printf("   skipping %s: no manifest.json\n", e.Name())
			continue
		}

		var manifest pack.PackManifest
		if err := json.Unmarshal(content, &manifest); err != nil {
			log.Printf("   skipping %s: invalid manifest: %v\n", e.Name(), err)
			continue
		}

		hash := pack.ComputePackHash(&pack.Pack{Manifest: manifest})
		sig, err := signer.Sign([]byte(hash))
		if err != nil {
			log.Printf("   failed to sign %s: %v\n", manifest.Name, err)
			continue
		}
		manifest.Signatures = append(manifest.Signatures, pack.Signature{
			SignerID:  signer.PublicKey(),
			Signature: sig,
			SignedAt:  time.Now().UTC(),
		})

		destDir := filepath.Join(root, manifest.PackID, manifest.Version)
		//nolint:gosec // G301: shared pack directory, operator-owned
		if err := os.MkdirAll(destDir, 0755); err != nil {
			log.Printf("   failed to create pack dir for %s: %v\n", manifest.Name, err)
			continue
		}
		out, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			log.Printf("   failed to marshal %s: %v\n", manifest.Name, err)
			continue
		}
		if err := os.WriteFile(filepath.Join(destDir, "manifest.json"), out, 0644); err != nil { //nolint:gosec // G306: pack manifest is not secret material
			log.Printf("   failed to write %s: %v\n", manifest.Name, err)
			continue
		}
		log.Printf("   registered and signed %s@%s\n", manifest.Name, manifest.Version)
	}
	return nil
}
