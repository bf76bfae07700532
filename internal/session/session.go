package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session cookie name constant to ensure consistency
const SessionCookieName = "pdflab_session"

const cypherKey = "suggested_cypher"

// ErrNoSuggestion is returned when the session holds no suggested query.
var ErrNoSuggestion = errors.New("no suggested query in session; run a suggestion first")

// SessionManager keeps per-browser state between the suggest and execute
// steps of the graph flow.
type SessionManager struct {
	logger *zap.Logger
	store  sessions.Store
}

// NewSessionManager creates a new session manager
func NewSessionManager(logger *zap.Logger, store sessions.Store) *SessionManager {
	return &SessionManager{
		logger: logger,
		store:  store,
	}
}

// NewFilesystemStore keeps session values on disk under dir so suggested
// queries are not limited by cookie size. An empty dir uses the system temp
// directory.
func NewFilesystemStore(dir string, secret []byte, maxAge int, secure bool) *sessions.FilesystemStore {
	store := sessions.NewFilesystemStore(dir, secret)
	store.MaxLength(0)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// StoreCypher remembers the latest suggested query for this client.
func (sm *SessionManager) StoreCypher(c *gin.Context, query string) error {
	session, err := sm.store.Get(c.Request, SessionCookieName)
	if err != nil {
		sm.logger.Debug("discarding unreadable session", zap.Error(err))
		session, err = sm.store.New(c.Request, SessionCookieName)
		if session == nil {
			return err
		}
	}

	session.Values[cypherKey] = query
	if err := session.Save(c.Request, c.Writer); err != nil {
		sm.logger.Error("failed to save session", zap.Error(err))
		return err
	}
	return nil
}

// LoadCypher returns the query stored by StoreCypher.
func (sm *SessionManager) LoadCypher(c *gin.Context) (string, error) {
	session, err := sm.store.Get(c.Request, SessionCookieName)
	if err != nil {
		sm.logger.Debug("session not readable", zap.Error(err))
		return "", ErrNoSuggestion
	}

	query, ok := session.Values[cypherKey].(string)
	if !ok || query == "" {
		return "", ErrNoSuggestion
	}
	return query, nil
}
