// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

const mongoConnectTimeout = 10 * time.Second

// MongoArchiver stores full run reports in a MongoDB collection so that
// historical runs can be queried later. Each report is one document.
type MongoArchiver struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoArchiver connects to MongoDB and verifies the connection.
func NewMongoArchiver(ctx context.Context, opts MongoOptions) (*MongoArchiver, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if opts.Database == "" || opts.Collection == "" {
		return nil, fmt.Errorf("mongodb database and collection are required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoArchiver{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// Archive inserts the report as a single document.
func (a *MongoArchiver) Archive(ctx context.Context, report *reconcile.Report) error {
	if _, err := a.collection.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (a *MongoArchiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
