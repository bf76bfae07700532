package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/auth"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/graph"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/query"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/session"
)

// Options carries the request defaults the handler applies.
type Options struct {
	DefaultBackend   document.Backend
	MaxDisplayChars  int
	MaxDocumentBytes int64
	GraphPDFPath     string
	Neo4j            graph.Connection
	// AllowedOrigins lists the browser origins allowed to call the API with
	// credentials. Empty or "*" allows any origin without credentials.
	AllowedOrigins   []string
}

// Handler handles API requests
type Handler struct {
	docProcessor   *document.Processor
	suggester      *graph.Suggester
	executor       *graph.Executor
	jwtManager     *auth.JWTManager
	sessionManager *session.SessionManager
	opts           Options
	logger         *zap.Logger
}

// NewHandler creates a new handler. suggester and jwtManager may be nil when
// no language model or token secret is configured.
func NewHandler(
	docProcessor *document.Processor,
	suggester *graph.Suggester,
	executor *graph.Executor,
	jwtManager *auth.JWTManager,
	sessionManager *session.SessionManager,
	opts Options,
	logger *zap.Logger,
) *Handler {
	if opts.DefaultBackend == "" {
		opts.DefaultBackend = document.BackendElements
	}
	return &Handler{
		docProcessor:   docProcessor,
		suggester:      suggester,
		executor:       executor,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		opts:           opts,
		logger:         logger,
	}
}

// HealthCheck provides a simple health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"backends":  document.Backends,
	})
}

// IssueToken exchanges the configured API key for a bearer token
func (h *Handler) IssueToken(c *gin.Context) {
	if h.jwtManager == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token authentication is not enabled"})
		return
	}

	var req struct {
		APIKey  string `json:"api_key" binding:"required"`
		Subject string `json:"subject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Subject == "" {
		req.Subject = c.ClientIP()
	}

	token, err := h.jwtManager.IssueToken(req.APIKey, req.Subject)
	if err != nil {
		h.logger.Warn("token request rejected", zap.String("subject", req.Subject), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "Bearer"})
}

// Extract runs one backend over the uploaded document (or remote URL for the
// OCR backend) and presents the result as full text or prefix-filtered lines.
func (h *Handler) Extract(c *gin.Context) {
	backend, err := document.ParseBackend(c.DefaultPostForm("backend", string(h.opts.DefaultBackend)))
	if err != nil {
		h.fail(c, err)
		return
	}

	view, err := query.ParseView(c.PostForm("view"))
	if err != nil {
		h.fail(c, err)
		return
	}
	prefix := c.PostForm("prefix")
	if view == query.ViewPrefix && prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"warning": query.MissingPrefixWarning})
		return
	}

	req := document.Request{Backend: backend, URL: c.PostForm("url")}

	if backend == document.BackendElements {
		opts := extractor.DefaultElementOptions()
		if v := c.PostForm("extract_images"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				h.fail(c, fmt.Errorf("%w: extract_images must be a boolean", common.ErrInput))
				return
			}
			opts.ExtractImages = b
		}
		if v := c.PostForm("mode"); v != "" {
			opts.Mode = extractor.ElementMode(v)
		}
		req.Elements = opts
	}

	if backend != document.BackendOCR {
		data, err := h.readUpload(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		req.Data = data
	}

	result, err := h.docProcessor.Extract(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"document_id": result.DocumentID,
		"backend":     result.Backend,
		"entries":     len(result.Entries),
		"view":        view,
		"metadata":    result.Metadata,
	}

	switch view {
	case query.ViewPrefix:
		lines, err := query.FilterPrefix(result.Entries, prefix)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp["prefix"] = prefix
		resp["lines"] = lines
		resp["matched"] = len(lines)
		if len(lines) == 0 {
			resp["message"] = query.NoMatchMessage(prefix)
		}
	default:
		resp["text"] = query.FullText(result.Entries)
		resp["display_limit"] = h.opts.MaxDisplayChars
	}

	c.JSON(http.StatusOK, resp)
}

// SuggestGraph proposes a graph data model and Cypher query for the first page
// of the uploaded document, or of the configured document when none is sent.
func (h *Handler) SuggestGraph(c *gin.Context) {
	if h.suggester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Language model is not configured"})
		return
	}

	var (
		data []byte
		err  error
	)
	if _, ferr := c.FormFile("file"); ferr == nil {
		data, err = h.readUpload(c)
	} else if h.opts.GraphPDFPath != "" {
		data, err = os.ReadFile(h.opts.GraphPDFPath)
	} else {
		err = fmt.Errorf("%w: file is required", common.ErrInput)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.docProcessor.Extract(c.Request.Context(), document.Request{
		Backend: document.BackendLayout,
		Data:    data,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(result.Entries) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No pages found."})
		return
	}
	pageContent := result.Entries[0]

	suggestion, err := h.suggester.Suggest(c.Request.Context(), pageContent)
	switch {
	case errors.Is(err, graph.ErrNoCypher):
		c.JSON(http.StatusOK, gin.H{
			"page_content": pageContent,
			"data_model":   suggestion.DataModel,
			"reply":        suggestion.Reply,
			"warning":      "No valid Cypher query detected in the response.",
		})
		return
	case err != nil:
		h.logger.Error("graph suggestion failed", zap.Error(err))
		h.fail(c, err)
		return
	}

	if err := h.sessionManager.StoreCypher(c, suggestion.Cypher); err != nil {
		h.logger.Warn("suggested query not stored in session", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"page_content": pageContent,
		"data_model":   suggestion.DataModel,
		"cypher":       suggestion.Cypher,
	})
}

// ExecuteGraph runs a Cypher query, by default the last one suggested in this
// session, against Neo4j.
func (h *Handler) ExecuteGraph(c *gin.Context) {
	var req struct {
		graph.Connection
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conn := req.Connection
	if conn.URL == "" {
		conn.URL = h.opts.Neo4j.URL
	}
	if conn.Username == "" {
		conn.Username = h.opts.Neo4j.Username
	}
	if conn.Password == "" {
		conn.Password = h.opts.Neo4j.Password
	}
	if conn.Database == "" {
		conn.Database = h.opts.Neo4j.Database
	}

	cypher := req.Query
	if cypher == "" {
		stored, err := h.sessionManager.LoadCypher(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cypher = stored
	}

	summary, err := h.executor.Execute(c.Request.Context(), conn, cypher)
	if err != nil {
		if errors.Is(err, common.ErrInput) {
			h.fail(c, err)
			return
		}
		h.logger.Error("cypher execution failed", zap.String("url", conn.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Error executing the query: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Query executed successfully!",
		"summary": summary,
	})
}

// readUpload returns the bytes of the multipart "file" field.
func (h *Handler) readUpload(c *gin.Context) ([]byte, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file is required", common.ErrInput)
	}
	defer file.Close()

	limit := h.opts.MaxDocumentBytes
	if limit > 0 && header.Size > limit {
		return nil, document.ErrFileTooLarge
	}

	var r io.Reader = file
	if limit > 0 {
		r = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", common.ErrInput, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, document.ErrFileTooLarge
	}
	return data, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": common.UserMessage(err)})
}
