package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/selfhosted/crate/internal/discography"
)

// DiscographySyncPayload is the TaskDiscographySync payload for scheduled/bulk
// syncs, keyed per-artist so EnqueueUnique prevents duplicate concurrent
// syncs for the same artist. POST /api/expected/artist/:id/sync does not use
// it; that endpoint syncs synchronously.
type DiscographySyncPayload struct {
	ArtistID int64 `json:"artistId"`
}

// DiscographySyncHandler fetches and persists the expected release-group set
// for one artist. Grounded on the teacher's MetadataScrapeHandler
// (task_metadata.go): unmarshal payload, broadcast task:update, delegate to
// the domain service, broadcast a failed task:update and return the wrapped
// error to the queue.
type DiscographySyncHandler struct {
	discography *discography.Service
	notifier    EventNotifier
}

func NewDiscographySyncHandler(svc *discography.Service, notifier EventNotifier) *DiscographySyncHandler {
	return &DiscographySyncHandler{discography: svc, notifier: notifier}
}

func (h *DiscographySyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DiscographySyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	taskID := "discography:" + strconv.FormatInt(p.ArtistID, 10)
	if h.notifier != nil {
		h.notifier.Broadcast("task:update", map[string]interface{}{
			"taskId": taskID, "taskType": TaskDiscographySync, "status": "running",
		})
	}

	if err := h.discography.SyncExpectedForArtist(ctx, p.ArtistID); err != nil {
		log.Printf("[jobs] discography sync failed for artist %d: %v", p.ArtistID, err)
		if h.notifier != nil {
			h.notifier.Broadcast("task:update", map[string]interface{}{
				"taskId": taskID, "taskType": TaskDiscographySync, "status": "failed", "error": err.Error(),
			})
		}
		return fmt.Errorf("sync expected: %w", err)
	}

	log.Printf("[jobs] discography sync complete for artist %d", p.ArtistID)
	if h.notifier != nil {
		h.notifier.Broadcast("task:update", map[string]interface{}{
			"taskId": taskID, "taskType": TaskDiscographySync, "status": "complete",
		})
	}
	return nil
}
