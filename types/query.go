package types

import "context"

// Position records, per topic and partition, the offsets a store has applied.
type Position map[string]map[int32]int64

// Merge folds other into p keeping the higher offset per partition.
func (p Position) Merge(other Position) {
	for topic, partitions := range other {
		dst, ok := p[topic]
		if !ok {
			dst = make(map[int32]int64, len(partitions))
			p[topic] = dst
		}
		for partition, offset := range partitions {
			if cur, ok := dst[partition]; !ok || offset > cur {
				dst[partition] = offset
			}
		}
	}
}

// PositionBound constrains how fresh a store must be to serve a query.
type PositionBound struct {
	position  Position
	unbounded bool
}

// Unbounded returns a bound that accepts any store position.
func Unbounded() PositionBound {
	return PositionBound{unbounded: true}
}

// AtLeast returns a bound requiring the store to have applied at least position.
func AtLeast(position Position) PositionBound {
	return PositionBound{position: position}
}

// IsUnbounded reports whether the bound accepts any position.
func (b PositionBound) IsUnbounded() bool {
	return b.unbounded
}

// Position returns the required position of a bounded query.
func (b PositionBound) Position() Position {
	return b.position
}

// QueryConfig carries per-query execution options.
type QueryConfig struct {
	CollectExecutionInfo bool
}

// FailureReason classifies a partition-level query failure.
type FailureReason int

const (
	// FailureNone means the query succeeded.
	FailureNone FailureReason = iota

	// FailureNotActive means the partition is hosted here but not by an active, running task.
	FailureNotActive

	// FailureNotPresent means the partition is not hosted on this client.
	FailureNotPresent

	// FailureUnknownQueryType means the store cannot execute this kind of query.
	FailureUnknownQueryType

	// FailureNotUpToBound means the store has not caught up with the requested bound.
	FailureNotUpToBound

	// FailureStoreException means the store failed while executing the query.
	FailureStoreException
)

// String returns the string representation of the failure reason.
func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "None"
	case FailureNotActive:
		return "NotActive"
	case FailureNotPresent:
		return "NotPresent"
	case FailureUnknownQueryType:
		return "UnknownQueryType"
	case FailureNotUpToBound:
		return "NotUpToBound"
	case FailureStoreException:
		return "StoreException"
	default:
		return "Unknown"
	}
}

// QueryResult is the outcome of a query against one store partition.
type QueryResult struct {
	Value         any
	Failure       FailureReason
	FailureMsg    string
	Position      Position
	ExecutionInfo []string
}

// IsSuccess reports whether the partition answered the query.
func (r QueryResult) IsSuccess() bool {
	return r.Failure == FailureNone
}

// Success builds a successful result.
func Success(value any, position Position) QueryResult {
	return QueryResult{Value: value, Position: position}
}

// Failure builds a failed result.
func Failure(reason FailureReason, msg string) QueryResult {
	return QueryResult{Failure: reason, FailureMsg: msg}
}

// StateStore is a local state store that can serve interactive queries.
type StateStore interface {
	Name() string

	// Query executes query bounded by bound. Failures are reported in the result.
	Query(ctx context.Context, query any, bound PositionBound, cfg QueryConfig) QueryResult
}

// StateQueryRequest asks every local task holding a store to answer query.
type StateQueryRequest struct {
	StoreName string

	// Partitions restricts the request; nil means all local partitions.
	Partitions []int32

	// RequireActive restricts answers to active, running tasks.
	RequireActive bool

	Bound                PositionBound
	Query                any
	CollectExecutionInfo bool
}

// InStore starts a request against every partition of a store with an unbounded position.
func InStore(name string, query any) StateQueryRequest {
	return StateQueryRequest{StoreName: name, Query: query, Bound: Unbounded()}
}

// WithPartitions restricts the request to the given partitions.
//
// An empty list is kept as an explicit empty set and matches no partition.
func (r StateQueryRequest) WithPartitions(partitions ...int32) StateQueryRequest {
	r.Partitions = make([]int32, 0, len(partitions))
	r.Partitions = append(r.Partitions, partitions...)
	return r
}

// RequireActiveOnly restricts the request to active, running tasks.
func (r StateQueryRequest) RequireActiveOnly() StateQueryRequest {
	r.RequireActive = true
	return r
}

// WithPositionBound sets the freshness bound.
func (r StateQueryRequest) WithPositionBound(bound PositionBound) StateQueryRequest {
	r.Bound = bound
	return r
}

// IsAllPartitions reports whether the request targets every local partition.
func (r StateQueryRequest) IsAllPartitions() bool {
	return r.Partitions == nil
}

// StateQueryResult collects per-partition outcomes of a StateQueryRequest.
type StateQueryResult struct {
	Partitions map[int32]QueryResult

	// Global is set when the request targeted a global store.
	Global *QueryResult
}

// NewStateQueryResult returns an empty result.
func NewStateQueryResult() *StateQueryResult {
	return &StateQueryResult{Partitions: make(map[int32]QueryResult)}
}

// Position merges the positions of every successful partition result.
func (r *StateQueryResult) Position() Position {
	merged := Position{}
	for _, res := range r.Partitions {
		if res.IsSuccess() {
			merged.Merge(res.Position)
		}
	}

	return merged
}

// StoreQueryParameters selects local store handles.
type StoreQueryParameters struct {
	StoreName string

	// Partition restricts the lookup to one partition when non-nil.
	Partition *int32

	// IncludeStale also returns stores of standby and restoring tasks.
	IncludeStale bool
}

// LagInfo is the changelog lag of one local store partition.
type LagInfo struct {
	CurrentOffset int64
	EndOffset     int64
}

// Lag returns the number of changelog records not yet applied locally.
func (l LagInfo) Lag() int64 {
	if l.EndOffset <= l.CurrentOffset {
		return 0
	}

	return l.EndOffset - l.CurrentOffset
}
