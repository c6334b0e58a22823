package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// PageFetcher performs the remote lookups of a tree walk.
type PageFetcher interface {
	// FetchRoot resolves a single document by id.
	FetchRoot(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// FetchChildren returns one page of the children of parentID.
	FetchChildren(ctx context.Context, parentID, cursor string) (*domain.DocumentPage, error)
}

// TreeWalker produces the documents of a remote subtree.
// It never writes; consumers receive pages through the visit callback.
type TreeWalker struct {
	fetcher PageFetcher
}

// NewTreeWalker creates a walker over fetcher.
func NewTreeWalker(fetcher PageFetcher) *TreeWalker {
	return &TreeWalker{fetcher: fetcher}
}

// Walk emits the root record first, then every descendant page by page in
// breadth-first discovery order. Folders are visited at most once, so a
// provider tree that loops back on itself still terminates.
// visit may return domain.ErrStopWalk to end the walk without error.
func (w *TreeWalker) Walk(ctx context.Context, rootID string, visit func(context.Context, []domain.DocumentRecord) error) error {
	root, err := w.fetcher.FetchRoot(ctx, rootID)
	if err != nil {
		return fmt.Errorf("root document %s: %w", rootID, err)
	}
	if root == nil {
		return fmt.Errorf("root document %s: %w", rootID, domain.ErrNotFound)
	}

	if err := visit(ctx, []domain.DocumentRecord{*root}); err != nil {
		return stopOrErr(err)
	}
	if !root.CanHaveChildren {
		return nil
	}

	seen := map[string]struct{}{root.ID: {}}
	queue := []string{root.ID}

	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			page, err := w.fetcher.FetchChildren(ctx, parentID, cursor)
			if err != nil {
				return err
			}
			if page == nil {
				break
			}

			fresh := make([]domain.DocumentRecord, 0, len(page.Records))
			for _, rec := range page.Records {
				if _, ok := seen[rec.ID]; ok {
					continue
				}
				seen[rec.ID] = struct{}{}
				fresh = append(fresh, rec)
				if rec.CanHaveChildren {
					queue = append(queue, rec.ID)
				}
			}

			if len(fresh) > 0 {
				if err := visit(ctx, fresh); err != nil {
					return stopOrErr(err)
				}
			}

			if !page.HasMore() {
				break
			}
			cursor = page.Cursor
		}
	}

	return nil
}

func stopOrErr(err error) error {
	if errors.Is(err, domain.ErrStopWalk) {
		return nil
	}
	return err
}
