package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/selfhosted/crate/internal/scanner"
	"github.com/selfhosted/crate/internal/walker"
)

// EventNotifier broadcasts scan/sync progress to connected clients, mirroring
// the teacher's WSHub.Broadcast used by its own job handlers.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ScanPayload triggers either a full-library scan (ArtistDirName empty) or an
// artist-scoped scan, carrying the walk depth/recursion choice the request
// (or scheduler/watcher) that enqueued it asked for.
type ScanPayload struct {
	ArtistDirName string `json:"artistDirName,omitempty"`
	Recursive     bool   `json:"recursive"`
	MaxDepth      int    `json:"maxDepth"`
}

// ScanHandler runs the Scanner as a single-flight background job, grounded on
// the teacher's ScanHandler.ProcessTask (task_scan.go) shape: unmarshal
// payload, broadcast start/error/complete, delegate the actual work to the
// domain object.
type ScanHandler struct {
	scanner  *scanner.Scanner
	notifier EventNotifier
}

func NewScanHandler(sc *scanner.Scanner, notifier EventNotifier) *ScanHandler {
	return &ScanHandler{scanner: sc, notifier: notifier}
}

func (h *ScanHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	desc := "Scanning library"
	if p.ArtistDirName != "" {
		desc = "Scanning artist: " + p.ArtistDirName
	}
	log.Printf("[jobs] %s", desc)
	if h.notifier != nil {
		h.notifier.Broadcast("scan:start", map[string]string{"artistDirName": p.ArtistDirName})
	}

	opts := walker.Options{Recursive: p.Recursive, MaxDepth: p.MaxDepth}

	var err error
	if p.ArtistDirName != "" {
		err = h.scanner.RunArtist(ctx, p.ArtistDirName, opts)
	} else {
		err = h.scanner.RunFull(ctx, opts)
	}

	if err != nil {
		log.Printf("[jobs] scan failed: %v", err)
		if h.notifier != nil {
			h.notifier.Broadcast("scan:error", map[string]string{"error": err.Error()})
		}
		return fmt.Errorf("scan: %w", err)
	}

	log.Printf("[jobs] scan complete")
	if h.notifier != nil {
		h.notifier.Broadcast("scan:complete", map[string]string{"artistDirName": p.ArtistDirName})
	}
	return nil
}

// RegisterHandlers wires every background task type onto the queue's mux,
// grounded on the teacher's jobs.RegisterHandlers (tasks.go).
func RegisterHandlers(q *Queue, sc *scanner.Scanner, syncHandler *DiscographySyncHandler, notifier EventNotifier) {
	q.RegisterHandler(TaskScanLibrary, NewScanHandler(sc, notifier))
	q.RegisterHandler(TaskDiscographySync, syncHandler)
}
