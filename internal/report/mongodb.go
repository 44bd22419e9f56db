// internal/report/mongodb.go
package report

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/types"
)

var mongoLogger = utils.NewComponentLogger("report.mongodb")

// MongoWriter persists run results to a MongoDB collection.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoWriter creates a MongoDB report writer
func NewMongoWriter(uri, database, collection string, timeout time.Duration) (*MongoWriter, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb connection URI is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb database name is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	// index creation is best effort
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scenario", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		mongoLogger.Warnf("failed to create index on %s.%s: %v", database, collection, err)
	}

	return &MongoWriter{
		client:     client,
		collection: coll,
		timeout:    timeout,
	}, nil
}

// Write upserts one run document keyed by run id
func (w *MongoWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	doc := w.buildDocument(result)
	filter := bson.M{"_id": result.ID}

	_, err := w.collection.ReplaceOne(opCtx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// buildDocument flattens a run into a BSON document
func (w *MongoWriter) buildDocument(result *types.RunResult) bson.M {
	passed, failed, skipped := result.StepCount()

	steps := make(bson.A, 0, len(result.Steps))
	for _, step := range result.Steps {
		steps = append(steps, bson.M{
			"index":       step.Index,
			"name":        step.Name,
			"type":        string(step.Type),
			"status":      string(step.Status),
			"detail":      step.Detail,
			"error":       step.Error,
			"started_at":  step.StartedAt.UTC(),
			"duration_ms": step.Duration.Milliseconds(),
		})
	}

	return bson.M{
		"_id":           result.ID,
		"scenario":      result.Scenario,
		"target_url":    result.TargetURL,
		"status":        string(result.Status),
		"failure_class": string(result.FailureClass),
		"steps_total":   len(result.Steps),
		"steps_passed":  passed,
		"steps_failed":  failed,
		"steps_skipped": skipped,
		"steps":         steps,
		"artifacts":     result.Artifacts,
		"attempt":       result.Attempt,
		"error":         result.Error,
		"started_at":    result.StartedAt.UTC(),
		"finished_at":   result.FinishedAt.UTC(),
		"duration_ms":   result.Duration.Milliseconds(),
		"created_at":    time.Now().UTC(),
	}
}

// Ping verifies the MongoDB deployment is still reachable
func (w *MongoWriter) Ping(ctx context.Context) error {
	if w.client == nil {
		return fmt.Errorf("mongodb writer is closed")
	}
	return w.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (w *MongoWriter) Close() error {
	if w.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.client.Disconnect(ctx)
	w.client = nil
	return err
}
