package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/repositories"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// FlushOutcome reports the reconciliation result for one target's queue.
type FlushOutcome struct {
	TargetType models.EntityType
	TargetID   string
	Applied    []int64 // sequences confirmed by the remote service
	Failed     []int64 // sequences the remote service rejected
	Skipped    bool    // another flush already held the target
	Err        error
}

// PlaylistView is a playlist as the user will see it once pending edits
// reconcile: last-confirmed cache state with the queue overlaid.
type PlaylistView struct {
	Playlist models.Playlist
	Pending  []models.Operation
}

// updatePayload is the JSON document carried by update operations. Nil
// fields are left unchanged.
type updatePayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
	Blacklisted *bool   `json:"blacklisted,omitempty"`
}

// Engine buffers edits in the persistent queue and reconciles them against
// the remote service. At most one flush runs per target at a time; cache
// writes happen only after confirmed remote success.
type Engine struct {
	remote services.Service
	cache  *repositories.CacheRepository
	queue  *repositories.QueueRepository
	logger *log.Logger

	mu       sync.Mutex
	inFlight map[string]bool

	subMu   sync.Mutex
	subs    map[int]chan ChangeEvent
	nextSub int
}

// NewEngine creates an Engine over the remote service and local storage.
func NewEngine(remote services.Service, cache *repositories.CacheRepository, queue *repositories.QueueRepository, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		remote:   remote,
		cache:    cache,
		queue:    queue,
		logger:   logger,
		inFlight: map[string]bool{},
		subs:     map[int]chan ChangeEvent{},
	}
}

// Subscribe registers a change-notification channel. The returned cancel
// function unregisters and closes it. Slow subscribers miss events rather
// than block the engine.
func (e *Engine) Subscribe() (<-chan ChangeEvent, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan ChangeEvent, 16)
	e.subs[id] = ch

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// notify fans an event out to every subscriber without blocking.
func (e *Engine) notify(event ChangeEvent) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) notifyOp(op models.Operation, status models.OpStatus) {
	e.notify(ChangeEvent{
		Sequence:   op.Sequence,
		TargetType: op.TargetType,
		TargetID:   op.TargetID,
		Type:       op.Type,
		Status:     status,
	})
}

// EnqueueEdit buffers an edit, coalescing it against pending operations on
// the same target:
//
//   - an add opposing a pending remove (or vice versa, same payload) deletes
//     the pending operation and drops the new one; the returned sequence is
//     zero
//   - an update replaces a pending update in place, keeping its position
//
// Operations already in flight are never coalesced away.
func (e *Engine) EnqueueEdit(op models.Operation) (int64, error) {
	if e.queue == nil {
		return 0, fmt.Errorf("%w: queue storage not initialized", shared.ErrServiceUnavailable)
	}
	if !op.TargetType.Valid() {
		return 0, &shared.InputError{Field: "target_type", Value: string(op.TargetType), Want: "a known entity type"}
	}
	switch op.Type {
	case models.OpAdd, models.OpRemove:
		if err := services.CheckURI(op.Payload); err != nil {
			return 0, err
		}
	case models.OpUpdate:
		var payload updatePayload
		if err := json.Unmarshal([]byte(op.Payload), &payload); err != nil {
			return 0, &shared.InputError{Field: "payload", Value: op.Payload, Want: "a JSON update document"}
		}
	default:
		return 0, &shared.InputError{Field: "op_type", Value: string(op.Type), Want: "add|remove|update"}
	}

	pending, err := e.pendingFor(op.TargetType, op.TargetID)
	if err != nil {
		return 0, err
	}

	for _, existing := range pending {
		if existing.Opposes(op) {
			if err := e.queue.Delete(existing.Sequence); err != nil {
				return 0, err
			}
			e.notifyOp(existing, models.StatusCancelled)
			e.logger.Debug("edits coalesced to nothing", "target", op.TargetID, "payload", op.Payload)
			return 0, nil
		}
		if op.Type == models.OpUpdate && existing.Type == models.OpUpdate {
			if err := e.queue.Replace(existing.Sequence, op); err != nil {
				return 0, err
			}
			op.Sequence = existing.Sequence
			e.notifyOp(op, models.StatusPending)
			return existing.Sequence, nil
		}
	}

	sequence, err := e.queue.Append(op)
	if err != nil {
		return 0, err
	}
	op.Sequence = sequence
	e.notifyOp(op, models.StatusPending)
	return sequence, nil
}

func (e *Engine) pendingFor(targetType models.EntityType, targetID string) ([]models.Operation, error) {
	ops, err := e.queue.Operations(models.StatusPending)
	if err != nil {
		return nil, err
	}

	var matched []models.Operation
	for _, op := range ops {
		if op.TargetType == targetType && op.TargetID == targetID {
			matched = append(matched, op)
		}
	}
	return matched, nil
}

// FetchView returns the playlist with its pending edits overlaid. The
// cache is not modified; the view is what the playlist will look like once
// the queue reconciles.
func (e *Engine) FetchView(playlistID string) (*PlaylistView, error) {
	playlist, err := e.cache.Playlist(playlistID)
	if err != nil {
		return nil, err
	}

	pending, err := e.pendingFor(models.EntityPlaylist, playlistID)
	if err != nil {
		return nil, err
	}

	view := *playlist
	view.TrackIDs = append([]string(nil), playlist.TrackIDs...)
	for _, op := range pending {
		applyOpToPlaylist(&view, op)
	}

	return &PlaylistView{Playlist: view, Pending: pending}, nil
}

// applyOpToPlaylist mutates a playlist the way the operation will once the
// remote service confirms it.
func applyOpToPlaylist(p *models.Playlist, op models.Operation) {
	switch op.Type {
	case models.OpAdd:
		if id, _, err := services.URIToID(op.Payload); err == nil {
			p.TrackIDs = append(p.TrackIDs, id)
		}
	case models.OpRemove:
		id, _, err := services.URIToID(op.Payload)
		if err != nil {
			return
		}
		// the remote service removes every occurrence of a URI
		kept := p.TrackIDs[:0]
		for _, trackID := range p.TrackIDs {
			if trackID != id {
				kept = append(kept, trackID)
			}
		}
		p.TrackIDs = kept
	case models.OpUpdate:
		var payload updatePayload
		if json.Unmarshal([]byte(op.Payload), &payload) != nil {
			return
		}
		if payload.Name != nil {
			p.Name = *payload.Name
		}
		if payload.Description != nil {
			p.Description = *payload.Description
		}
		if payload.Public != nil {
			p.Public = *payload.Public
		}
		if payload.Blacklisted != nil {
			p.Blacklisted = *payload.Blacklisted
		}
	}
}

// Flush reconciles every pending queue against the remote service in
// enqueue order. A target's failure is recorded in its outcome and does not
// stop the remaining targets; cancellation stops between targets.
func (e *Engine) Flush(ctx context.Context, progress chan<- ProgressUpdate) ([]FlushOutcome, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	queues, err := e.queue.PendingQueues()
	if err != nil {
		return nil, err
	}

	var outcomes []FlushOutcome
	for i, q := range queues {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		e.sendProgress(progress, flushTargetUpdate(i+1, len(queues), q))
		outcomes = append(outcomes, e.flushQueue(ctx, q, progress))
	}
	return outcomes, nil
}

// FlushTarget reconciles a single target's pending queue.
func (e *Engine) FlushTarget(ctx context.Context, targetType models.EntityType, targetID string, progress chan<- ProgressUpdate) (*FlushOutcome, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	pending, err := e.pendingFor(targetType, targetID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &FlushOutcome{TargetType: targetType, TargetID: targetID}, nil
	}

	q := &models.ItemQueue{TargetType: targetType, TargetID: targetID, Operations: pending}
	e.sendProgress(progress, flushTargetUpdate(1, 1, q))
	outcome := e.flushQueue(ctx, q, progress)
	return &outcome, nil
}

// flushQueue drains one target's pending operations. Consecutive operations
// of the same type batch into a single remote call; the first failure marks
// its run failed, returns the rest of the queue to pending and stops.
func (e *Engine) flushQueue(ctx context.Context, q *models.ItemQueue, progress chan<- ProgressUpdate) FlushOutcome {
	outcome := FlushOutcome{TargetType: q.TargetType, TargetID: q.TargetID}

	key := q.Key()
	e.mu.Lock()
	if e.inFlight[key] {
		e.mu.Unlock()
		outcome.Skipped = true
		outcome.Err = fmt.Errorf("%w: %s", shared.ErrFlushInProgress, key)
		return outcome
	}
	e.inFlight[key] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inFlight, key)
		e.mu.Unlock()
	}()

	ops := q.Pending()
	if len(ops) == 0 {
		return outcome
	}

	sequences := make([]int64, len(ops))
	for i, op := range ops {
		sequences[i] = op.Sequence
	}
	if err := e.queue.SetStatuses(sequences, models.StatusInFlight); err != nil {
		outcome.Err = err
		return outcome
	}
	for _, op := range ops {
		e.notifyOp(op, models.StatusInFlight)
	}

	var confirmed []models.Operation
	for start := 0; start < len(ops); {
		if err := ctx.Err(); err != nil {
			e.revertPending(ops[start:])
			outcome.Err = err
			return outcome
		}

		end := start + 1
		for end < len(ops) && ops[end].Type == ops[start].Type {
			end++
		}
		run := ops[start:end]
		e.sendProgress(progress, applyOpsUpdate(run[0].Type, len(run)))

		if err := e.applyRun(ctx, q.TargetType, q.TargetID, run); err != nil {
			e.logger.Error("flush failed", "target", key, "op", run[0].Type, "err", err)
			e.markOps(run, models.StatusFailed, &outcome.Failed)
			e.revertPending(ops[end:])
			outcome.Err = err
			return outcome
		}

		e.markOps(run, models.StatusApplied, &outcome.Applied)
		confirmed = append(confirmed, run...)
		start = end
	}

	e.sendProgress(progress, writeCacheUpdate(key))
	if err := e.writeThrough(ctx, q.TargetType, q.TargetID, confirmed); err != nil {
		outcome.Err = err
		return outcome
	}

	if err := e.queue.ClearApplied(); err != nil {
		outcome.Err = err
	}
	return outcome
}

func (e *Engine) markOps(ops []models.Operation, status models.OpStatus, sequences *[]int64) {
	seqs := make([]int64, len(ops))
	for i, op := range ops {
		seqs[i] = op.Sequence
	}
	if err := e.queue.SetStatuses(seqs, status); err != nil {
		e.logger.Error("failed to record queue status", "status", status, "err", err)
	}
	for _, op := range ops {
		e.notifyOp(op, status)
	}
	*sequences = append(*sequences, seqs...)
}

// revertPending returns untouched in-flight operations to pending so the
// next flush retries them.
func (e *Engine) revertPending(ops []models.Operation) {
	if len(ops) == 0 {
		return
	}
	seqs := make([]int64, len(ops))
	for i, op := range ops {
		seqs[i] = op.Sequence
	}
	if err := e.queue.SetStatuses(seqs, models.StatusPending); err != nil {
		e.logger.Error("failed to revert queue status", "err", err)
	}
	for _, op := range ops {
		e.notifyOp(op, models.StatusPending)
	}
}

// applyRun issues one remote call for a same-typed run of operations.
func (e *Engine) applyRun(ctx context.Context, targetType models.EntityType, targetID string, run []models.Operation) error {
	payloads := make([]string, len(run))
	for i, op := range run {
		payloads[i] = op.Payload
	}

	switch targetType {
	case models.EntityPlaylist:
		switch run[0].Type {
		case models.OpAdd:
			return e.remote.AddPlaylistItems(ctx, targetID, payloads)
		case models.OpRemove:
			return e.remote.RemovePlaylistItems(ctx, targetID, payloads)
		case models.OpUpdate:
			return e.applyPlaylistUpdates(ctx, targetID, run)
		}
	case models.EntityTrack:
		switch run[0].Type {
		case models.OpAdd:
			ids, err := payloadIDs(payloads)
			if err != nil {
				return err
			}
			return e.remote.SaveTracks(ctx, ids)
		case models.OpRemove:
			ids, err := payloadIDs(payloads)
			if err != nil {
				return err
			}
			return e.remote.RemoveSavedTracks(ctx, ids)
		case models.OpUpdate:
			return e.applyLocalUpdates(models.EntityTrack, targetID, run)
		}
	case models.EntityArtist:
		switch run[0].Type {
		case models.OpAdd:
			ids, err := payloadIDs(payloads)
			if err != nil {
				return err
			}
			return e.remote.FollowArtists(ctx, ids)
		case models.OpRemove:
			ids, err := payloadIDs(payloads)
			if err != nil {
				return err
			}
			return e.remote.UnfollowArtists(ctx, ids)
		case models.OpUpdate:
			return e.applyLocalUpdates(models.EntityArtist, targetID, run)
		}
	case models.EntityAlbum:
		if run[0].Type == models.OpUpdate {
			return e.applyLocalUpdates(models.EntityAlbum, targetID, run)
		}
	}

	return &shared.InputError{
		Field: "operation",
		Value: fmt.Sprintf("%s %s", targetType, run[0].Type),
		Want:  "a reconcilable target/operation pair",
	}
}

// applyPlaylistUpdates sends detail changes to the remote service. A
// blacklist-only update is a local flag and makes no remote call.
func (e *Engine) applyPlaylistUpdates(ctx context.Context, playlistID string, run []models.Operation) error {
	for _, op := range run {
		var payload updatePayload
		if err := json.Unmarshal([]byte(op.Payload), &payload); err != nil {
			return &shared.InputError{Field: "payload", Value: op.Payload, Want: "a JSON update document"}
		}

		if payload.Name == nil && payload.Description == nil && payload.Public == nil {
			continue
		}

		details := services.PlaylistDetails{
			Name:        payload.Name,
			Description: payload.Description,
			Public:      payload.Public,
		}
		if err := e.remote.ChangePlaylistDetails(ctx, playlistID, details); err != nil {
			return err
		}
	}
	return nil
}

// applyLocalUpdates handles update operations that only touch local state,
// e.g. the blacklist flag.
func (e *Engine) applyLocalUpdates(entity models.EntityType, targetID string, run []models.Operation) error {
	for _, op := range run {
		var payload updatePayload
		if err := json.Unmarshal([]byte(op.Payload), &payload); err != nil {
			return &shared.InputError{Field: "payload", Value: op.Payload, Want: "a JSON update document"}
		}
		if payload.Blacklisted != nil {
			if err := e.cache.SetBlacklisted(entity, targetID, *payload.Blacklisted); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeThrough records confirmed state in the cache after a successful
// flush.
func (e *Engine) writeThrough(ctx context.Context, targetType models.EntityType, targetID string, confirmed []models.Operation) error {
	switch targetType {
	case models.EntityPlaylist:
		playlist, err := e.cache.Playlist(targetID)
		if err != nil {
			// Nothing cached to overlay; the next pull records it.
			return nil
		}
		for _, op := range confirmed {
			applyOpToPlaylist(playlist, op)
		}
		return e.cache.SavePlaylist(*playlist)

	case models.EntityTrack, models.EntityArtist:
		var addedIDs []string
		for _, op := range confirmed {
			if op.Type != models.OpAdd {
				continue
			}
			if id, _, err := services.URIToID(op.Payload); err == nil {
				addedIDs = append(addedIDs, id)
			}
		}
		if len(addedIDs) == 0 {
			return nil
		}
		if targetType == models.EntityTrack {
			tracks, err := e.remote.SeveralTracks(ctx, addedIDs)
			if err != nil {
				return err
			}
			return e.cache.SaveTracks(tracks)
		}
		artists, err := e.remote.SeveralArtists(ctx, addedIDs)
		if err != nil {
			return err
		}
		return e.cache.SaveArtists(artists)
	}
	return nil
}

func payloadIDs(payloads []string) ([]string, error) {
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		id, _, err := services.URIToID(payload)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
