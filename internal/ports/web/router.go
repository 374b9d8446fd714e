// Package web is the controller layer: REST routes for account and
// session management plus the realtime websocket channel every seated
// player holds.
package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trackdown/internal/app"
	"trackdown/internal/auth"
	"trackdown/internal/domain"
	"trackdown/internal/ports"
)

// Server holds the dependencies behind the HTTP surface.
type Server struct {
	registry *app.Registry
	catalog  ports.Catalog
	tokens   *auth.Manager
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer wires the controller layer.
func NewServer(registry *app.Registry, catalog ports.Catalog, tokens *auth.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		registry: registry,
		catalog:  catalog,
		tokens:   tokens,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browsers connect from the separately hosted UI.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	api := r.Group("/api")
	api.POST("/players", s.handleRegisterPlayer)
	api.GET("/games", s.handleListGames)
	api.GET("/playlists/:id", s.handleGetPlaylist)
	api.GET("/stats/total-games", s.handleTotalGames)

	authed := api.Group("")
	authed.Use(s.authenticate)
	authed.POST("/games", s.handleCreateGame)
	authed.POST("/games/:id/join", s.handleJoinGame)
	authed.POST("/games/guess", s.handleSubmitGuess)

	r.GET("/ws", s.handleWebSocket)
	return r
}

// authenticate verifies the bearer credential and resolves the player it
// names, storing the id in the request context.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
		return
	}

	playerID, err := s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}
	if _, err := s.registry.Player(playerID); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown player"})
		return
	}

	c.Set("playerID", playerID)
	c.Next()
}

// writeError maps a typed core failure onto an HTTP response.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidState, domain.KindAlreadyActed:
		status = http.StatusConflict
	case domain.KindValidationFailed:
		status = http.StatusBadRequest
	case domain.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	case domain.KindNoPlayableContent:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
