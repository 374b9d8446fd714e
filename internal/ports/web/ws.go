package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trackdown/internal/domain"
)

// wsCommand is a client->server message on the realtime channel.
type wsCommand struct {
	Action  string `json:"action"`
	Content string `json:"content,omitempty"`
}

// Realtime actions.
const (
	actionReady   = "ready"
	actionUnready = "unready"
	actionLeave   = "leaveGame"
	actionChat    = "chat"
)

// handleWebSocket establishes the player's realtime channel: snapshots
// flow out through the transport adapter, commands flow in through the
// read loop. A permanently closed socket evicts the player.
//
// GET /ws?token=...
func (s *Server) handleWebSocket(c *gin.Context) {
	playerID, err := s.tokens.Verify(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}
	player, err := s.registry.Player(playerID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown player"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "player", playerID, "error", err)
		return
	}

	transport := newConnTransport(conn)
	player.SetTransport(transport)
	s.log.Info("player connected", "player", playerID)

	go s.readLoop(playerID, transport)
}

func (s *Server) readLoop(playerID string, transport *connTransport) {
	defer func() {
		transport.Close()
		s.registry.DisconnectPlayer(playerID)
		s.log.Info("player disconnected", "player", playerID)
	}()

	for {
		var cmd wsCommand
		if err := transport.conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.dispatch(playerID, cmd)
	}
}

// dispatch routes one realtime command. Failures are logged, not
// returned: the channel carries fire-and-forget commands and the next
// broadcast carries the authoritative state anyway.
func (s *Server) dispatch(playerID string, cmd wsCommand) {
	session, err := s.registry.PlayerSession(playerID)
	if err != nil {
		s.log.Warn("realtime command without active session", "player", playerID, "action", cmd.Action)
		return
	}

	switch cmd.Action {
	case actionReady:
		err = session.Ready(playerID)
	case actionUnready:
		err = session.Unready(playerID)
	case actionLeave:
		err = s.registry.Leave(playerID)
	case actionChat:
		err = session.Chat(playerID, cmd.Content)
	default:
		s.log.Warn("unknown realtime action", "player", playerID, "action", cmd.Action)
		return
	}

	if err != nil && domain.KindOf(err) == "" {
		s.log.Error("realtime command failed", "player", playerID, "action", cmd.Action, "error", err)
	}
}
