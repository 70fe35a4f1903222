package xchg

import (
	"fmt"
)

// BookSnapshot contains the full state of a single instance.
// Totals are not stored; they are recomputed on restore.
type BookSnapshot struct {
	SchemaVersion int     `json:"schema_version"`
	EngineVersion string  `json:"engine_version"`
	Address       Address `json:"address"`
	LastCmdSeqID  uint64  `json:"last_cmd_seq_id"` // Last processed command sequence ID
	SellSeq       uint64  `json:"sell_seq"`        // Next sequence number of the sell queue
	BuySeq        uint64  `json:"buy_seq"`
	Sells         []Order `json:"sells"` // Oldest first
	Buys          []Order `json:"buys"`
	Destroyed     bool    `json:"destroyed"`
}

// TakeSnapshot captures the state of the instance.
func (x *PriceXchg) TakeSnapshot() *BookSnapshot {
	return &BookSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		EngineVersion: EngineVersion,
		Address:       x.addr,
		SellSeq:       x.sells.NextSeq(),
		BuySeq:        x.buys.NextSeq(),
		Sells:         x.sells.Orders(),
		Buys:          x.buys.Orders(),
		Destroyed:     x.destroyed,
	}
}

// RestorePriceXchg rebuilds an instance from a snapshot.
func RestorePriceXchg(cfg Config, snap *BookSnapshot, publisher Publisher, opts ...InstanceOption) (*PriceXchg, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", ErrInvalidParam)
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: snapshot schema version %d, want %d", ErrInvalidParam, snap.SchemaVersion, SnapshotSchemaVersion)
	}
	x, err := NewPriceXchg(snap.Address, cfg, publisher, opts...)
	if err != nil {
		return nil, err
	}
	x.sells.restore(snap.Sells, snap.SellSeq)
	x.buys.restore(snap.Buys, snap.BuySeq)
	x.destroyed = snap.Destroyed
	return x, nil
}
