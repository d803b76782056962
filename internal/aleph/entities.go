package aleph

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// maxStreamLineSize bounds a single NDJSON entity line (entities with many
// properties can get large).
const maxStreamLineSize = 16 * 1024 * 1024

// GetEntity retrieves a single entity by id.
func (c *Client) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	entity, err := doGetJSON[Entity](ctx, c, "entities/"+url.PathEscape(entityID))
	if err != nil {
		return nil, fmt.Errorf("could not get entity %s: %w", entityID, err)
	}
	return entity, nil
}

// LoadCollectionByForeignID resolves a collection by its foreign id.
func (c *Client) LoadCollectionByForeignID(ctx context.Context, foreignID string) (*Collection, error) {
	endpoint := "collections?filter%3Aforeign_id=" + url.QueryEscape(foreignID)
	resp, err := doGetJSON[collectionsResponse](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not search collections: %w", err)
	}
	for _, col := range resp.Results {
		if col.ForeignID == foreignID {
			return &col, nil
		}
	}
	return nil, fmt.Errorf("collection not found: %s", foreignID)
}

// EntityStream lazily decodes an NDJSON entity stream. It is not
// restartable; a new StreamEntities call starts from the beginning.
type EntityStream struct {
	collectionID string
	resp         *http.Response
	scanner      *bufio.Scanner
	err          error
}

// StreamEntities opens an entity stream for a collection, filtered by
// schema on the server side. The caller must Close the stream and check
// Err after Next returns false.
func (c *Client) StreamEntities(ctx context.Context, collection *Collection, schema string) (*EntityStream, error) {
	endpoint := "entities/_stream?collection_id=" + url.QueryEscape(collection.ID)
	if schema != "" {
		endpoint += "&schema=" + url.QueryEscape(schema)
	}

	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &StreamError{CollectionID: collection.ID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body := readErrorBody(resp.Body)
		resp.Body.Close()
		return nil, &StreamError{
			CollectionID: collection.ID,
			Err:          fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, body),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineSize)

	return &EntityStream{
		collectionID: collection.ID,
		resp:         resp,
		scanner:      scanner,
	}, nil
}

// Next advances to the next entity. It returns false when the stream is
// exhausted or failed; the caller distinguishes the two via Err.
func (s *EntityStream) Next() (*Entity, bool) {
	if s.err != nil {
		return nil, false
	}
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entity Entity
		if err := json.Unmarshal(line, &entity); err != nil {
			s.err = &StreamError{CollectionID: s.collectionID, Err: fmt.Errorf("decode entity: %w", err)}
			return nil, false
		}
		return &entity, true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = &StreamError{CollectionID: s.collectionID, Err: err}
	}
	return nil, false
}

// Err returns the stream failure, if any. A nil error after Next returned
// false means the source was exhausted normally.
func (s *EntityStream) Err() error {
	return s.err
}

// Close releases the underlying response body.
func (s *EntityStream) Close() error {
	return s.resp.Body.Close()
}
