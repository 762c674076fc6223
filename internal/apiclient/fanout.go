package apiclient

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Call is one independent outbound operation
type Call func(ctx context.Context) (*Response, error)

// Get returns a Call that GETs endpoint
func (c *Client) Get(endpoint string) Call {
	return func(ctx context.Context) (*Response, error) {
		return c.Do(ctx, endpoint, RequestOptions{})
	}
}

// FetchAll runs calls concurrently and waits for all of them.
// The first failure cancels the rest and is returned alone; no partial
// results are returned.
func FetchAll(ctx context.Context, calls ...Call) ([]*Response, error) {
	group, gctx := errgroup.WithContext(ctx)
	results := make([]*Response, len(calls))

	for i, call := range calls {
		group.Go(func() error {
			resp, err := call(gctx)
			if err != nil {
				return err
			}
			results[i] = resp
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
