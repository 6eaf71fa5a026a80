package repositories

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// QueueRepository persists buffered mutations so pending edits survive a
// restart. Sequence numbers come from the rowid and establish global order.
type QueueRepository struct {
	store *Store
}

// NewQueueRepository creates a QueueRepository over the given store.
func NewQueueRepository(store *Store) *QueueRepository {
	return &QueueRepository{store: store}
}

// Append persists a new pending operation and returns its sequence number.
func (r *QueueRepository) Append(op models.Operation) (int64, error) {
	if !op.TargetType.Valid() {
		return 0, &shared.InputError{Field: "target_type", Value: string(op.TargetType), Want: "a known entity type"}
	}

	result, err := r.store.DB().Exec(
		"INSERT INTO queue (target_type, target_id, op_type, payload, status) VALUES (?, ?, ?, ?, ?)",
		string(op.TargetType), op.TargetID, string(op.Type), op.Payload, string(models.StatusPending),
	)
	if err != nil {
		return 0, &shared.StorageError{Statement: -1, Query: "insert queue row", Err: err}
	}

	sequence, err := result.LastInsertId()
	if err != nil {
		return 0, &shared.StorageError{Statement: -1, Query: "insert queue row", Err: err}
	}
	return sequence, nil
}

// Delete removes an operation, typically after coalescing cancelled it out.
func (r *QueueRepository) Delete(sequence int64) error {
	return r.store.RemoveSpecificItem("queue", "sequence", sequence)
}

// SetStatus transitions a single operation.
func (r *QueueRepository) SetStatus(sequence int64, status models.OpStatus) error {
	affected, err := r.store.ExecQuery(
		"UPDATE queue SET status = ? WHERE sequence = ?",
		string(status), sequence,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: queue operation %d", shared.ErrNotFound, sequence)
	}
	return nil
}

// SetStatuses transitions a set of operations in one transaction.
func (r *QueueRepository) SetStatuses(sequences []int64, status models.OpStatus) error {
	batch := make([]BatchQuery, 0, len(sequences))
	for _, seq := range sequences {
		batch = append(batch, BatchQuery{
			Query: "UPDATE queue SET status = ? WHERE sequence = ?",
			Args:  []any{string(status), seq},
		})
	}
	return r.store.ExecBatch(batch)
}

// Replace swaps a pending operation's payload in place, keeping its
// sequence position. Used when a later update supersedes an earlier one.
func (r *QueueRepository) Replace(sequence int64, op models.Operation) error {
	affected, err := r.store.ExecQuery(
		"UPDATE queue SET op_type = ?, payload = ? WHERE sequence = ? AND status = ?",
		string(op.Type), op.Payload, sequence, string(models.StatusPending),
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: pending queue operation %d", shared.ErrNotFound, sequence)
	}
	return nil
}

// Operations returns every operation with the given status in sequence
// order. With no status filter all operations are returned.
func (r *QueueRepository) Operations(statuses ...models.OpStatus) ([]models.Operation, error) {
	query := "SELECT sequence, target_type, target_id, op_type, payload, status FROM queue"
	var args []any

	if len(statuses) > 0 {
		query += " WHERE status IN (?" + repeatPlaceholder(len(statuses)-1) + ")"
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += " ORDER BY sequence"

	rows, err := r.store.DB().Query(query, args...)
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var (
			op         models.Operation
			targetType string
			opType     string
			status     string
		)
		if err := rows.Scan(&op.Sequence, &targetType, &op.TargetID, &opType, &op.Payload, &status); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		op.TargetType = models.EntityType(targetType)
		op.Type = models.OpType(opType)
		op.Status = models.OpStatus(status)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	return ops, nil
}

// PendingQueues groups pending operations into per-target queues, ordered
// by each queue's earliest sequence number.
func (r *QueueRepository) PendingQueues() ([]*models.ItemQueue, error) {
	ops, err := r.Operations(models.StatusPending)
	if err != nil {
		return nil, err
	}

	byKey := map[string]*models.ItemQueue{}
	var queues []*models.ItemQueue
	for _, op := range ops {
		key := string(op.TargetType) + ":" + op.TargetID
		q, ok := byKey[key]
		if !ok {
			q = &models.ItemQueue{TargetType: op.TargetType, TargetID: op.TargetID}
			byKey[key] = q
			queues = append(queues, q)
		}
		q.Operations = append(q.Operations, op)
	}

	sort.Slice(queues, func(i, j int) bool {
		return queues[i].FirstSequence() < queues[j].FirstSequence()
	})
	return queues, nil
}

// ClearApplied removes operations that reconciled successfully.
func (r *QueueRepository) ClearApplied() error {
	_, err := r.store.ExecQuery(
		"DELETE FROM queue WHERE status = ?",
		string(models.StatusApplied),
	)
	return err
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

// TokenRepository stores credentials durably so a restarted process reuses
// a valid refresh token instead of re-authorizing. Implements
// services.TokenStore.
type TokenRepository struct {
	store *Store
}

// NewTokenRepository creates a TokenRepository over the given store.
func NewTokenRepository(store *Store) *TokenRepository {
	return &TokenRepository{store: store}
}

var _ services.TokenStore = (*TokenRepository)(nil)

// SaveToken upserts the credential row for a grant.
func (r *TokenRepository) SaveToken(grant string, token *services.Token) error {
	return r.store.AddItemToTable("tokens", map[string]any{
		"grant_type":    grant,
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    token.Expiry.UTC().Format(time.RFC3339),
		"scopes":        token.Scopes,
	})
}

// LoadToken retrieves the credential for a grant, or a not-found error if
// none has been persisted.
func (r *TokenRepository) LoadToken(grant string) (*services.Token, error) {
	query := "SELECT access_token, refresh_token, expires_at, scopes FROM tokens WHERE grant_type = ?"

	var (
		token   services.Token
		refresh sql.NullString
		expires string
	)
	err := r.store.DB().QueryRow(query, grant).Scan(&token.AccessToken, &refresh, &expires, &token.Scopes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no token for grant %s", shared.ErrNotFound, grant)
	}
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}

	token.RefreshToken = refresh.String
	if expiry, err := time.Parse(time.RFC3339, expires); err == nil {
		token.Expiry = expiry
	}
	return &token, nil
}
