package apiclient

import (
	"context"
	"net/url"
)

// Collection is the typed client for one record collection. R is the
// canonical record kind, D its draft (the editable field set sent on create
// and update). The service owns ids and timestamps: every successful create
// or update returns the canonical record, which callers must adopt in place
// of their local draft.
type Collection[R, D any] struct {
	client *Client
	path   string
}

func NewCollection[R, D any](client *Client, path string) *Collection[R, D] {
	return &Collection[R, D]{client: client, path: path}
}

// List fetches the whole collection in server order.
func (c *Collection[R, D]) List(ctx context.Context) ([]R, error) {
	var records []R
	if err := c.client.do(ctx, "GET", c.path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create submits a draft and returns the stored canonical record.
func (c *Collection[R, D]) Create(ctx context.Context, draft D) (R, error) {
	var record R
	err := c.client.do(ctx, "POST", c.path, draft, &record)
	return record, err
}

// Update replaces the editable fields of one record.
func (c *Collection[R, D]) Update(ctx context.Context, id string, draft D) (R, error) {
	var record R
	err := c.client.do(ctx, "PUT", c.path+"/"+url.PathEscape(id), draft, &record)
	return record, err
}

// Delete removes one record. Any 2xx counts as success; the body is ignored.
func (c *Collection[R, D]) Delete(ctx context.Context, id string) error {
	return c.client.do(ctx, "DELETE", c.path+"/"+url.PathEscape(id), nil, nil)
}
