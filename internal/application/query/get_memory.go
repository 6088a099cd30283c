package query

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// GetMemoryHandler returns a memory with its candle count, which is read
// from the ledger rather than stored on the memory.
type GetMemoryHandler struct {
	memories community.Repository
	ledger   reward.TransactionReader
}

// NewGetMemoryHandler creates a new handler.
func NewGetMemoryHandler(memories community.Repository, ledger reward.TransactionReader) *GetMemoryHandler {
	return &GetMemoryHandler{memories: memories, ledger: ledger}
}

// Handle executes the query.
func (h *GetMemoryHandler) Handle(ctx context.Context, memoryID string) (*community.Memory, error) {
	if err := shared.RequireID("community", "GetMemory", "memory_id", memoryID); err != nil {
		return nil, err
	}
	m, err := h.memories.GetMemory(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	n, err := h.ledger.CountBySource(ctx, reward.ActionLightCandle, reward.Ref(reward.SourceMemory, m.ID))
	if err != nil {
		return nil, shared.WrapError("query", "GetMemory", shared.ErrPersistence, "failed to count candles", err)
	}
	m.Candles = n
	return m, nil
}
