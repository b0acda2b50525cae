// Package mongostore persists classifier predictions and simulation
// readings in MongoDB. Each scenario is one collection of prediction
// documents in the prediction database.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

const simulationCollection = "readings"

// Store wraps one Mongo client for the prediction and simulation
// databases.
type Store struct {
	client       *mongo.Client
	predictionDB string
	simulationDB string
	logger       *slog.Logger
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, predictionDB, simulationDB string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &Store{
		client:       client,
		predictionDB: predictionDB,
		simulationDB: simulationDB,
		logger:       logger,
	}, nil
}

// Ping verifies the connection; used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ListScenarios returns the scenario collection names in the prediction
// database.
func (s *Store) ListScenarios(ctx context.Context) ([]string, error) {
	names, err := s.client.Database(s.predictionDB).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing scenario collections: %w", err)
	}
	return names, nil
}

// ScenarioDocs returns every document in one scenario collection as raw
// maps. Numeric fields keep whatever encoding they were stored with;
// normalization happens at the domain boundary.
func (s *Store) ScenarioDocs(ctx context.Context, scenario string) ([]map[string]any, error) {
	coll := s.client.Database(s.predictionDB).Collection(scenario)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("loading scenario %q: %w", scenario, err)
	}

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding scenario %q: %w", scenario, err)
	}
	return docs, nil
}

// InsertPredictions stores a batch of classifier output rows in the named
// scenario collection.
func (s *Store) InsertPredictions(ctx context.Context, scenario string, predictions []domain.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	docs := make([]any, len(predictions))
	for i, p := range predictions {
		docs[i] = p
	}
	_, err := s.client.Database(s.predictionDB).Collection(scenario).InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("storing predictions in %q: %w", scenario, err)
	}
	return nil
}

// InsertSimulationReading stores one operator-created simulation point.
func (s *Store) InsertSimulationReading(ctx context.Context, r domain.SimulationReading) error {
	_, err := s.client.Database(s.simulationDB).Collection(simulationCollection).InsertOne(ctx, r)
	if err != nil {
		return fmt.Errorf("storing simulation reading: %w", err)
	}
	return nil
}

// ListSimulationReadings returns every stored simulation point.
func (s *Store) ListSimulationReadings(ctx context.Context) ([]domain.SimulationReading, error) {
	coll := s.client.Database(s.simulationDB).Collection(simulationCollection)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("loading simulation readings: %w", err)
	}

	var readings []domain.SimulationReading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("decoding simulation readings: %w", err)
	}
	return readings, nil
}

// ClearSimulationReadings removes every stored simulation point.
func (s *Store) ClearSimulationReadings(ctx context.Context) error {
	_, err := s.client.Database(s.simulationDB).Collection(simulationCollection).DeleteMany(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("clearing simulation readings: %w", err)
	}
	return nil
}
