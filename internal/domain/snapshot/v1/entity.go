package snapshotv1

import (
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

// Snapshot represents the resting state of every asset's book at a
// specific point in time, plus the counters needed to resume matching
// with consistent sequences.
type Snapshot struct {
	ArrivalSequence   uint64         `json:"arrivalSequence"`
	ExecutionSequence uint64         `json:"executionSequence"`
	OrderOffset       int64          `json:"orderOffset"`
	Books             []BookSnapshot `json:"books"`
}

// BookSnapshot is one asset's resting orders and notification version.
type BookSnapshot struct {
	Asset   orderv1.AssetType `json:"asset"`
	Version uint64            `json:"version"`
	Orders  []*orderv1.Order  `json:"orders"`
}
