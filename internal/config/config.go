// Package config loads the service configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/graph"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	Graph      GraphConfig      `yaml:"graph"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type ExtractionConfig struct {
	MaxDocumentBytes int64  `yaml:"max_document_bytes"`
	TempDir          string `yaml:"temp_dir"`
	MaxDisplayChars  int    `yaml:"max_display_chars"`
	DefaultBackend   string `yaml:"default_backend"`
}

type OCRConfig struct {
	DefaultURL    string        `yaml:"default_url"`
	Language      string        `yaml:"language"`
	DPI           float64       `yaml:"dpi"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes int64         `yaml:"max_fetch_bytes"`
}

type LLMConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	CypherModel        string `yaml:"cypher_model"`
	DataModelMaxTokens int    `yaml:"data_model_max_tokens"`
	CypherMaxTokens    int    `yaml:"cypher_max_tokens"`
}

type Neo4jConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type GraphConfig struct {
	PDFPath string `yaml:"pdf_path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	APIKey    string        `yaml:"api_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
	Dir    string `yaml:"dir"`
	MaxAge int    `yaml:"max_age"`
	Secure bool   `yaml:"secure"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Extraction: ExtractionConfig{
			MaxDocumentBytes: 50 * 1024 * 1024,
			MaxDisplayChars:  5000,
			DefaultBackend:   "elements",
		},
		OCR: OCRConfig{
			DefaultURL:    "https://arxiv.org/pdf/2103.15348.pdf",
			Language:      "eng",
			DPI:           300,
			FetchTimeout:  60 * time.Second,
			MaxFetchBytes: 100 * 1024 * 1024,
		},
		LLM: LLMConfig{
			Model:              "gpt-4o-mini",
			CypherModel:        "gpt-4o-mini",
			DataModelMaxTokens: 500,
			CypherMaxTokens:    1000,
		},
		Neo4j: Neo4jConfig{
			URL:      "bolt://localhost:7687",
			Username: "neo4j",
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Session: SessionConfig{
			MaxAge: 3600,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides. An
// empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "PDFLAB_ADDR")
	setString(&c.Extraction.TempDir, "PDFLAB_TEMP_DIR")
	setString(&c.OCR.DefaultURL, "PDFLAB_OCR_URL")
	setString(&c.OCR.Language, "TESSERACT_LANG")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Neo4j.URL, "NEO4J_URL")
	setString(&c.Neo4j.Username, "NEO4J_USERNAME")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Graph.PDFPath, "PDFLAB_GRAPH_PDF")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.APIKey, "PDFLAB_API_KEY")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Session.Dir, "PDFLAB_SESSION_DIR")

	if v := os.Getenv("PDFLAB_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}
	if v := os.Getenv("PDFLAB_MAX_DOCUMENT_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PDFLAB_MAX_DOCUMENT_BYTES: %w", err)
		}
		c.Extraction.MaxDocumentBytes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Document returns the extraction settings in the form the processor takes.
func (c *Config) Document() document.Config {
	return document.Config{
		MaxDocumentSize: c.Extraction.MaxDocumentBytes,
		TempDir:         c.Extraction.TempDir,
		OCRDefaultURL:   c.OCR.DefaultURL,
		OCRLanguage:     c.OCR.Language,
		OCRDPI:          c.OCR.DPI,
		FetchTimeout:    c.OCR.FetchTimeout,
		MaxFetchBytes:   c.OCR.MaxFetchBytes,
	}
}

// Suggester returns the language model settings for the graph suggester.
func (c *Config) Suggester() graph.SuggesterOptions {
	return graph.SuggesterOptions{
		DataModelModel:     c.LLM.Model,
		CypherModel:        c.LLM.CypherModel,
		DataModelMaxTokens: c.LLM.DataModelMaxTokens,
		CypherMaxTokens:    c.LLM.CypherMaxTokens,
	}
}

// Connection returns the default Neo4j connection.
func (c *Config) Connection() graph.Connection {
	return graph.Connection{
		URL:      c.Neo4j.URL,
		Username: c.Neo4j.Username,
		Password: c.Neo4j.Password,
		Database: c.Neo4j.Database,
	}
}
