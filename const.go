package xchg

const (
	// EngineVersion is the current version of the price exchange engine
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the book snapshot schema
	// Increment this when the snapshot format changes in a backward-incompatible way
	SnapshotSchemaVersion = 1
)

// Static outbound message costs used by the per-call budget.
const (
	msgsPerDeal     = 3 // major transfer, minor transfer, reserve transfer
	msgsPerFinished = 2 // custody return + order answer
	msgsPerExpired  = 1 // order answer only, the lend lapses on its own

	// deal notice, sell/buy cancel notices, order added notice,
	// continuation, caller reply and self-destruct.
	msgsTailReserve = 7

	// MinMsgsLimit is the smallest msgs limit that still lets a call finish one deal.
	MinMsgsLimit = msgsPerDeal + 2*msgsPerFinished + msgsTailReserve
)
