package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// Connection holds the details needed to reach a Neo4j server.
type Connection struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// ExecutionSummary reports what a query changed.
type ExecutionSummary struct {
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	PropertiesSet        int `json:"properties_set"`
	LabelsAdded          int `json:"labels_added"`
}

// Executor runs Cypher against a Neo4j server, one driver per call.
type Executor struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute connects with conn and runs query once.
func (e *Executor) Execute(ctx context.Context, conn Connection, query string) (*ExecutionSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: no query to execute", common.ErrInput)
	}
	if conn.URL == "" {
		return nil, fmt.Errorf("%w: no Neo4j URL supplied", common.ErrInput)
	}

	driver, err := neo4j.NewDriverWithContext(conn.URL, neo4j.BasicAuth(conn.Username, conn.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: execute query: %w", common.ErrNetwork, err)
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: execute query: %w", common.ErrNetwork, err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if conn.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(conn.Database))
	}

	res, err := neo4j.ExecuteQuery(ctx, driver, query, nil, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: execute query: %w", common.ErrNetwork, err)
	}

	counters := res.Summary.Counters()
	summary := &ExecutionSummary{
		NodesCreated:         counters.NodesCreated(),
		RelationshipsCreated: counters.RelationshipsCreated(),
		PropertiesSet:        counters.PropertiesSet(),
		LabelsAdded:          counters.LabelsAdded(),
	}

	e.logger.Info("cypher executed",
		zap.String("url", conn.URL),
		zap.Int("nodes_created", summary.NodesCreated),
		zap.Int("relationships_created", summary.RelationshipsCreated),
	)
	return summary, nil
}
