package models

// OpType is the kind of buffered mutation.
type OpType string

const (
	OpAdd    OpType = "add"
	OpRemove OpType = "remove"
	OpUpdate OpType = "update"
)

// OpStatus is the lifecycle state of a queued operation.
//
// Transitions: pending → in-flight → applied | failed. A failed operation
// stays failed until the caller decides to re-enqueue or abandon it.
type OpStatus string

const (
	StatusPending  OpStatus = "pending"
	StatusInFlight OpStatus = "in-flight"
	StatusApplied  OpStatus = "applied"
	StatusFailed   OpStatus = "failed"

	// StatusCancelled is only ever observed in change notifications: an
	// operation coalesced away before flushing is deleted, not stored.
	StatusCancelled OpStatus = "cancelled"
)

// Operation is one buffered mutation against a single target entity.
// Payload is operation-specific: for playlist add/remove it is the track
// URI, for updates a JSON document of changed attributes.
type Operation struct {
	Sequence   int64
	TargetType EntityType
	TargetID   string
	Type       OpType
	Payload    string
	Status     OpStatus
}

// Opposes reports whether o and other cancel each other out when queued
// against the same target: an unflushed add followed by a remove of the
// same payload (or vice versa) nets to nothing.
func (o Operation) Opposes(other Operation) bool {
	if o.TargetType != other.TargetType || o.TargetID != other.TargetID || o.Payload != other.Payload {
		return false
	}
	return (o.Type == OpAdd && other.Type == OpRemove) || (o.Type == OpRemove && other.Type == OpAdd)
}

// ItemQueue holds the ordered pending operations for one target entity.
type ItemQueue struct {
	TargetType EntityType
	TargetID   string
	Operations []Operation
}

// Key identifies the queue's target.
func (q *ItemQueue) Key() string {
	return string(q.TargetType) + ":" + q.TargetID
}

// FirstSequence returns the sequence number of the earliest operation, or
// zero for an empty queue. Queues flush in FirstSequence order.
func (q *ItemQueue) FirstSequence() int64 {
	if len(q.Operations) == 0 {
		return 0
	}
	return q.Operations[0].Sequence
}

// Coalesce appends op after re-deriving the net effect:
//
//   - op opposing an unflushed pending operation removes that operation
//     and drops op (net zero)
//   - a second update for the same target replaces the pending update
//     (last write wins by sequence number)
//
// Operations already in-flight, applied or failed are never coalesced away.
func (q *ItemQueue) Coalesce(op Operation) {
	for i, existing := range q.Operations {
		if existing.Status != StatusPending {
			continue
		}
		if existing.Opposes(op) {
			q.Operations = append(q.Operations[:i], q.Operations[i+1:]...)
			return
		}
		if op.Type == OpUpdate && existing.Type == OpUpdate && existing.TargetID == op.TargetID {
			q.Operations[i] = op
			return
		}
	}
	q.Operations = append(q.Operations, op)
}

// Pending returns the operations still awaiting flush, in sequence order.
func (q *ItemQueue) Pending() []Operation {
	var ops []Operation
	for _, op := range q.Operations {
		if op.Status == StatusPending {
			ops = append(ops, op)
		}
	}
	return ops
}
