// Package graph is the Neo4j backend for the belief stores. Hypotheses and
// evidence are nodes; AFFECTS, VERIFIED_BY and RELATES_TO are relationships.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph: NEO4J_URI is required")
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPool <= 0 {
		cfg.MaxPool = 50
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPool
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) read(ctx context.Context, fn neo4j.ManagedTransactionWork) (any, error) {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: c.database})
	defer sess.Close(ctx)
	return sess.ExecuteRead(ctx, fn)
}

func (c *Client) write(ctx context.Context, fn neo4j.ManagedTransactionWork) (any, error) {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: c.database})
	defer sess.Close(ctx)
	return sess.ExecuteWrite(ctx, fn)
}

var constraints = []string{
	"CREATE CONSTRAINT hypothesis_id IF NOT EXISTS FOR (h:Hypothesis) REQUIRE h.id IS UNIQUE",
	"CREATE CONSTRAINT evidence_id IF NOT EXISTS FOR (e:Evidence) REQUIRE e.id IS UNIQUE",
}

// EnsureConstraints creates the unique id constraints. Failures are logged
// and skipped so older servers without IF NOT EXISTS still start.
func (c *Client) EnsureConstraints(ctx context.Context) error {
	for _, q := range constraints {
		_, err := c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, q, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			c.logger.Warn("neo4j constraint skipped", zap.String("cypher", q), zap.Error(err))
		}
	}
	return nil
}

// NewStores wires every Neo4j store over one client.
func NewStores(c *Client) domain.Stores {
	return domain.Stores{
		Hypotheses:    &HypothesisStore{c: c},
		Evidence:      &EvidenceStore{c: c},
		Links:         &LinkStore{c: c},
		Verifications: &VerificationStore{c: c},
		Relations:     &RelationStore{c: c},
	}
}
