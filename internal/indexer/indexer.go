package indexer

import (
	"context"

	"github.com/0x5457/ws-index/internal/models"
)

type Indexer interface {
	// IndexProject runs one full pass over root: walk, split, extract,
	// persist, prune. Per-file failures are counted in the report.
	IndexProject(ctx context.Context, root string) (*models.IndexReport, error)
	// IndexProjectProgress runs IndexProject and streams its progress. Both
	// channels are closed when the pass ends.
	IndexProjectProgress(ctx context.Context, root string) (<-chan models.IndexProgress, <-chan error)
	Status(ctx context.Context) (models.IndexStatus, error)
	// SplitLargeFile splits one file outside of a pass. A nil summary means
	// no split was needed or possible.
	SplitLargeFile(ctx context.Context, root, path string, maxLines int) (*models.SplitSummary, error)
}
