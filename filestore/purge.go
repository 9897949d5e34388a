package filestore

import (
	"context"
	"time"

	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/log"
)

// RunPurger removes temp files older than maxAge every interval until ctx
// is done. The first sweep runs immediately.
func RunPurger(ctx context.Context, s Store, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := s.PurgeOlderThan(ctx, branding.CategoryTemp, maxAge)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("filestore: purging temp files")
		} else if n > 0 {
			log.Infof("filestore: cleaned up %d temporary files", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
