// Package server exposes the coaching engine over HTTP.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cogniverse/coach-engine/internal/report"
	"github.com/cogniverse/coach-engine/internal/state"
)

// #region identity

const (
	// uidCookie carries the anonymous user id across requests.
	uidCookie = "cv_uid"
	// uidHeader carries an authenticated user id set by the fronting auth
	// layer. Its presence makes the request authenticated.
	uidHeader = "X-User-ID"

	uidCookieMaxAge = 180 * 24 * 60 * 60
	ctxUserID       = "userID"
)

// IsAnonymous reports whether a user id belongs to an unauthenticated
// visitor.
func IsAnonymous(userID string) bool {
	return strings.HasPrefix(userID, "anon_")
}

// #endregion identity

// Server wires the store, the generation pipeline, and the HTTP surface.
type Server struct {
	store *state.Store
	pipe  *report.Pipeline
	lib   report.FallbackLibrary
	log   *zap.Logger
}

// New builds a server. A nil logger is replaced with a no-op one.
func New(store *state.Store, pipe *report.Pipeline, lib report.FallbackLibrary, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, pipe: pipe, lib: lib, log: log}
}

// Router assembles the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.identity())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/instrument/finish", s.handleInstrumentFinish)
	api.GET("/next-actions", s.handleNextActions)

	return r
}

// identity resolves the request's user id. An authenticated id from the
// header wins; otherwise the anonymous cookie is used, minted on first
// sight. When an authenticated request still carries an anonymous cookie,
// the anonymous rows are rebased onto the authenticated id and the cookie
// is cleared.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		anonID, _ := c.Cookie(uidCookie)

		if authed := c.GetHeader(uidHeader); authed != "" && !IsAnonymous(authed) {
			if anonID != "" && IsAnonymous(anonID) {
				if err := s.store.RebaseOwner(anonID, authed); err != nil {
					s.log.Warn("rebase failed",
						zap.String("from", anonID),
						zap.String("to", authed),
						zap.Error(err))
				} else {
					c.SetCookie(uidCookie, "", -1, "/", "", false, true)
				}
			}
			c.Set(ctxUserID, authed)
			c.Next()
			return
		}

		if anonID == "" || !IsAnonymous(anonID) {
			anonID = "anon_" + uuid.New().String()
			c.SetCookie(uidCookie, anonID, uidCookieMaxAge, "/", "", false, true)
		}
		c.Set(ctxUserID, anonID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// #region error-shape

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}

// #endregion error-shape

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
