// Package store wraps the Neo4j driver behind the small query surface the
// repositories need: run a Cypher query, get back ordered rows for the
// materializer.
package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/graphbill/graphbill/internal/graph"
)

// Runner executes a Cypher query and returns materializer-ready rows. It is
// the seam repositories depend on, so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) ([]graph.Row, error)
}

// Config holds the Neo4j connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store is the Neo4j-backed Runner used in production.
type Store struct {
	driver neo4j.DriverWithContext
	db     string
	log    *zap.Logger
}

// New creates a store and verifies connectivity.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("could not reach Neo4j at %s: %w", cfg.URI, err)
	}

	return &Store{driver: driver, db: cfg.Database, log: log}, nil
}

// Run executes a Cypher query through ExecuteQuery, which manages sessions
// and transactions itself, and converts the eager result into ordered rows.
func (s *Store) Run(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		s.driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.db),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	rows := make([]graph.Row, 0, len(result.Records))
	for _, record := range result.Records {
		values := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			values[key] = record.Values[i]
		}
		rows = append(rows, graph.NewRow(record.Keys, values))
	}

	return rows, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureConstraints creates the unique-id constraint for each label so
// upserts by business id stay single-node. Runs at startup, before traffic.
func (s *Store) EnsureConstraints(ctx context.Context, labels []string) error {
	for _, label := range labels {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			label,
		)
		if _, err := s.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("creating constraint for label %s: %w", label, err)
		}
		s.log.Debug("ensured unique constraint", zap.String("label", label))
	}
	return nil
}
