package tasks

import (
	"fmt"

	"github.com/spotmirror/spotmirror/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchPlaylists
	FetchTracks
	FetchArtists
	FetchLibrary
	FetchFeatures
	FetchDevices
	FlushQueue
	ApplyOps
	WriteCache
	Reorder
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case FetchArtists:
		return "fetch_artists"
	case FetchLibrary:
		return "fetch_library"
	case FetchFeatures:
		return "fetch_features"
	case FetchDevices:
		return "fetch_devices"
	case FlushQueue:
		return "flush_queue"
	case ApplyOps:
		return "apply_ops"
	case WriteCache:
		return "write_cache"
	case Reorder:
		return "reorder"
	default:
		return ""
	}
}

// ChangeEvent notifies subscribers that a queued operation changed state.
type ChangeEvent struct {
	Sequence   int64
	TargetType models.EntityType
	TargetID   string
	Type       models.OpType
	Status     models.OpStatus
}

func fetchProfileUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: "Fetching profile...",
	}
}

func fetchPlaylistsUpdate(step, total int, name string) ProgressUpdate {
	if name == "" {
		return ProgressUpdate{
			Phase:   FetchPlaylists,
			Step:    step,
			Total:   total,
			Message: "Fetching playlists...",
		}
	}
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, name),
	}
}

func fetchArtistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %d credited artists...", count),
	}
}

func fetchLibraryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: "Fetching saved tracks...",
	}
}

func fetchFeaturesUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", count),
	}
}

func fetchDevicesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDevices,
		Step:    1,
		Total:   1,
		Message: "Fetching devices...",
	}
}

func flushTargetUpdate(step, total int, queue *models.ItemQueue) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FlushQueue,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Flushing %s %s (%d ops)", step, total, queue.TargetType, queue.TargetID, len(queue.Operations)),
		Data:    queue,
	}
}

func applyOpsUpdate(opType models.OpType, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyOps,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Applying %d %s operation(s)...", count, opType),
	}
}

func writeCacheUpdate(target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteCache,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Recording confirmed state for %s", target),
	}
}

func reorderUpdate(playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reorder,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Replacing %d tracks in %s", count, playlistID),
	}
}
