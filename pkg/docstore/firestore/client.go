// Package firestore adapts the hosted document database SDK to the
// docstore.Store contract used by the rest of the codebase.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	firestore "cloud.google.com/go/firestore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/config"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client implements docstore.Store over the hosted document database.
type Client struct {
	fs   *firestore.Client
	logg *logger.Logger
}

// New connects to the configured project.
func New(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	fs, err := firestore.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "firestore client initialized")
	}
	return &Client{fs: fs, logg: logg}, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("fetching %s/%s: %w", collection, id, err)
	}
	return toDocument(snap)
}

func (c *Client) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	fields, err := toFields(data)
	if err != nil {
		return err
	}
	ref := c.fs.Collection(collection).Doc(id)
	if merge {
		_, err = ref.Set(ctx, fields, firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, fields)
	}
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.fs.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

func (c *Client) Query(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	iter := c.query(collection, filter).Documents(ctx)
	defer iter.Stop()

	var out []docstore.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", collection, err)
		}
		doc, err := toDocument(snap)
		if err != nil {
			// Skip poison documents; siblings are unaffected.
			continue
		}
		out = append(out, doc)
	}
}

// Listen opens a live snapshot stream and replays the full filtered result
// set into the handler on every change. Stream errors are logged and end the
// stream; the SDK's own reconnect handles transient drops before that point.
func (c *Client) Listen(ctx context.Context, collection string, filter docstore.Filter, h docstore.Handler) (docstore.Registration, error) {
	if h == nil {
		return nil, fmt.Errorf("listener handler is required")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	snapshots := c.query(collection, filter).Snapshots(listenCtx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && c.logg != nil {
					c.logg.Error(listenCtx, fmt.Sprintf("listener stream for %s ended", collection), err)
				}
				return
			}
			docs := collectDocs(snap)
			h(docs)
		}
	}()

	return &registration{cancel: cancel}, nil
}

func (c *Client) Batch() docstore.WriteBatch {
	return &writeBatch{client: c, batch: c.fs.Batch()}
}

// Ping verifies connectivity with a cheap single-document read.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.fs == nil {
		return errors.New("firestore client not initialized")
	}
	_, err := c.fs.Collection("teams").Doc("__ping__").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.fs == nil {
		return nil
	}
	return c.fs.Close()
}

func (c *Client) query(collection string, filter docstore.Filter) firestore.Query {
	q := c.fs.Collection(collection).Query
	if filter.Field != "" {
		q = q.Where(filter.Field, "==", filter.Value)
	}
	return q
}

type registration struct {
	cancel context.CancelFunc
}

func (r *registration) Unsubscribe() {
	r.cancel()
}

type writeBatch struct {
	client *Client
	batch  *firestore.WriteBatch
	count  int
	errs   []error
}

func (b *writeBatch) Set(collection, id string, data any) {
	fields, err := toFields(data)
	if err != nil {
		b.errs = append(b.errs, err)
		return
	}
	b.batch.Set(b.client.fs.Collection(collection).Doc(id), fields)
	b.count++
}

func (b *writeBatch) Delete(collection, id string) {
	b.batch.Delete(b.client.fs.Collection(collection).Doc(id))
	b.count++
}

func (b *writeBatch) Len() int {
	return b.count
}

func (b *writeBatch) Commit(ctx context.Context) error {
	if len(b.errs) > 0 {
		return b.errs[0]
	}
	if _, err := b.batch.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func collectDocs(snap *firestore.QuerySnapshot) []docstore.Document {
	var docs []docstore.Document
	for {
		d, err := snap.Documents.Next()
		if err == iterator.Done {
			return docs
		}
		if err != nil {
			return docs
		}
		doc, err := toDocument(d)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
}

func toDocument(snap *firestore.DocumentSnapshot) (docstore.Document, error) {
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encoding %s: %w", snap.Ref.ID, err)
	}
	return docstore.Document{ID: snap.Ref.ID, Data: raw}, nil
}

// toFields round-trips through JSON so struct field names follow the json
// tags, which match the deployed document schema exactly.
func toFields(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding document fields: %w", err)
	}
	return fields, nil
}
