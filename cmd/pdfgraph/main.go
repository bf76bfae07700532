// Command pdfgraph suggests a graph data model and Cypher query for the first
// page of a PDF and optionally runs the query against Neo4j.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/config"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/graph"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	pdfPath := flag.String("pdf", "", "PDF to analyse (defaults to graph.pdf_path)")
	execute := flag.Bool("execute", false, "run the suggested query against Neo4j")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *pdfPath, *execute, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, pdfPath string, execute bool, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if pdfPath == "" {
		pdfPath = cfg.Graph.PDFPath
	}
	if pdfPath == "" {
		return errors.New("no PDF given; pass -pdf or set graph.pdf_path")
	}
	if cfg.LLM.APIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return err
	}

	result, err := document.NewProcessor(cfg.Document(), logger).Extract(ctx, document.Request{
		Backend: document.BackendLayout,
		Data:    data,
	})
	if err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		return errors.New("no pages found")
	}
	pageContent := result.Entries[0]
	fmt.Printf("Page content:\n%s\n\n", pageContent)

	model, err := graph.NewOpenAIModel(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	if err != nil {
		return err
	}
	suggestion, err := graph.NewSuggester(model, cfg.Suggester(), logger).Suggest(ctx, pageContent)
	if suggestion != nil {
		fmt.Printf("Suggested data model:\n%s\n\n", suggestion.DataModel)
	}
	if errors.Is(err, graph.ErrNoCypher) {
		fmt.Printf("Model reply:\n%s\n\n", suggestion.Reply)
		return errors.New("no valid Cypher query detected in the response")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Suggested Cypher query:\n%s\n", suggestion.Cypher)

	if !execute {
		return nil
	}
	summary, err := graph.NewExecutor(logger).Execute(ctx, cfg.Connection(), suggestion.Cypher)
	if err != nil {
		return err
	}
	fmt.Printf("\nQuery executed successfully! nodes created: %d, relationships created: %d, properties set: %d\n",
		summary.NodesCreated, summary.RelationshipsCreated, summary.PropertiesSet)
	return nil
}
