package orchestration

import (
	"encoding/json"
	"sync"

	"github.com/corridorledger/substrate/pkg/receipts"
	"github.com/corridorledger/substrate/pkg/schema"
)

// ChainStore holds one receipt chain per corridor, each guarded
// independently so that concurrent writes to different corridors never
// contend, per spec.md §5's "single-writer per corridor" rule.
type ChainStore struct {
	mu     sync.Mutex
	chains map[string]*receipts.Chain

	// receiptSchemaID, if non-empty, is passed to schema.Registry to
	// validate every receipt payload before it's admitted.
	receiptSchemaID string
	schemas         *schema.Registry
}

// NewChainStore returns an empty store. schemas/receiptSchemaID may be
// left zero to skip receipt payload schema enforcement.
func NewChainStore(schemas *schema.Registry, receiptSchemaID string) *ChainStore {
	return &ChainStore{
		chains:          make(map[string]*receipts.Chain),
		schemas:         schemas,
		receiptSchemaID: receiptSchemaID,
	}
}

// Get returns the chain for corridorID, creating a fresh Active chain on
// first use.
func (s *ChainStore) Get(corridorID string) *receipts.Chain {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.chains[corridorID]; ok {
		return c
	}

	var validator receipts.PayloadValidator
	if s.schemas != nil && s.receiptSchemaID != "" {
		validator = func(payload json.RawMessage) error {
			var v interface{}
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			return s.schemas.Validate(v, s.receiptSchemaID)
		}
	}

	c := receipts.NewChain(validator)
	s.chains[corridorID] = c
	return c
}
