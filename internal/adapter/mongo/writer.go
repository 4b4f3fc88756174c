// Package mongo writes normalized records as MongoDB documents.
package mongo

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// DefaultDatabase is used when a destination names no database.
const DefaultDatabase = "sheetmatch"

// Writer implements port.Writer. Destination.Location is the database name
// and Namespace.Table the collection. The client connects on first use.
type Writer struct {
	uri string

	mu     sync.Mutex
	client *mongo.Client
}

var _ port.Writer = (*Writer)(nil)

func NewWriter(uri string) *Writer {
	return &Writer{uri: uri}
}

func (w *Writer) connect(ctx context.Context) (*mongo.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil {
		return w.client, nil
	}
	if w.uri == "" {
		return nil, fmt.Errorf("mongo writer: no connection URI configured")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(w.uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	w.client = client
	return client, nil
}

func (w *Writer) collection(ctx context.Context, dest port.Destination) (*mongo.Collection, error) {
	client, err := w.connect(ctx)
	if err != nil {
		return nil, err
	}
	db := dest.Location
	if db == "" {
		db = DefaultDatabase
	}
	return client.Database(db).Collection(CollectionName(dest)), nil
}

// CollectionName joins namespace and table with a dot.
func CollectionName(dest port.Destination) string {
	if dest.Namespace == "" {
		return dest.Table
	}
	return dest.Namespace + "." + dest.Table
}

// Write deletes the documents of the record's partitions and inserts one
// document per row. MongoDB creates the collection on first insert.
func (w *Writer) Write(ctx context.Context, rec domain.Record, dest port.Destination) error {
	partitions, err := port.Partitions(rec, dest.PartitionBy)
	if err != nil {
		return err
	}
	coll, err := w.collection(ctx, dest)
	if err != nil {
		return err
	}

	for _, p := range partitions {
		if _, err := coll.DeleteMany(ctx, PartitionFilter(dest.PartitionBy, p)); err != nil {
			return fmt.Errorf("deleting partition %v: %w", p, err)
		}
	}

	docs := Documents(rec)
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inserting into %s: %w", CollectionName(dest), err)
	}
	return nil
}

func (w *Writer) Drop(ctx context.Context, dest port.Destination) error {
	coll, err := w.collection(ctx, dest)
	if err != nil {
		return err
	}
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("dropping %s: %w", CollectionName(dest), err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client == nil {
		return nil
	}
	err := w.client.Disconnect(context.Background())
	w.client = nil
	return err
}

// Documents converts each row into an ordered document keyed by column.
func Documents(rec domain.Record) []bson.D {
	docs := make([]bson.D, 0, len(rec.Rows))
	for _, row := range rec.Rows {
		doc := make(bson.D, 0, len(rec.Columns))
		for i, col := range rec.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			doc = append(doc, bson.E{Key: col, Value: v})
		}
		docs = append(docs, doc)
	}
	return docs
}

// PartitionFilter matches documents whose partition fields equal values.
// A nil value matches null or missing fields.
func PartitionFilter(columns []string, values []any) bson.D {
	filter := make(bson.D, 0, len(columns))
	for i, col := range columns {
		filter = append(filter, bson.E{Key: col, Value: values[i]})
	}
	return filter
}
