// Package maintenance runs background upkeep jobs.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quillhq/quill/pkg/observability"
	"github.com/quillhq/quill/pkg/storage"
)

// blobPrefix is where attachment blobs live
const blobPrefix = "notes/"

// AttachmentPathLister yields every blob path still referenced by an
// attachment record
type AttachmentPathLister interface {
	ListAttachmentPaths(ctx context.Context) ([]string, error)
}

// Sweeper deletes orphaned attachment blobs. Attachment writes upload
// the blob first and persist the record second, so a record-write
// failure strands a blob with no referencing row. The sweeper reclaims
// those on a schedule.
type Sweeper struct {
	blobs   storage.BlobStorage
	records AttachmentPathLister
	logger  *observability.Logger
	grace   time.Duration
	cron    *cron.Cron
}

// NewSweeper creates an orphan-blob sweeper. grace is the minimum blob
// age before deletion, so an upload whose record write is still in
// flight is never reclaimed.
func NewSweeper(blobs storage.BlobStorage, records AttachmentPathLister, logger *observability.Logger, grace time.Duration) *Sweeper {
	return &Sweeper{
		blobs:   blobs,
		records: records,
		logger:  logger,
		grace:   grace,
		cron:    cron.New(),
	}
}

// Start schedules the sweep on the given cron expression and starts the
// scheduler
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.WithError(err).Error("orphan blob sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes every blob under the attachment prefix that has no
// referencing record and is older than the grace period. It returns the
// number of blobs deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	referenced, err := s.records.ListAttachmentPaths(ctx)
	if err != nil {
		return 0, err
	}
	refSet := make(map[string]bool, len(referenced))
	for _, path := range referenced {
		refSet[path] = true
	}

	blobs, err := s.blobs.List(ctx, blobPrefix)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.grace)
	deleted := 0
	for _, blob := range blobs {
		if refSet[blob.Path] {
			continue
		}
		if blob.LastModified.After(cutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, blob.Path); err != nil {
			s.logger.WithError(err).WithField("blob_path", blob.Path).Warn("failed to delete orphaned blob")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("reclaimed orphaned attachment blobs")
	}
	return deleted, nil
}
