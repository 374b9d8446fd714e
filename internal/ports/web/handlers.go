package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trackdown/internal/domain"
)

// handleRegisterPlayer creates a participant and mints its credential.
//
// POST /api/players {"name": ...} -> {"playerId": ..., "token": ...}
func (s *Server) handleRegisterPlayer(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be specified"})
		return
	}

	player, err := s.registry.RegisterPlayer(req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := s.tokens.Mint(player.ID)
	if err != nil {
		s.log.Error("token mint failed", "player", player.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue credential"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerId": player.ID, "token": token})
}

// handleCreateGame builds a session for a playlist.
//
// POST /api/games {"playlistId", "type", "visibility", "options"}
// -> {"id", "numRounds", "playlistId"}
func (s *Server) handleCreateGame(c *gin.Context) {
	var req struct {
		PlaylistID string             `json:"playlistId"`
		Type       domain.SessionType `json:"type"`
		Visibility domain.Visibility  `json:"visibility"`
		Options    domain.Options     `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlaylistID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playlistId must be specified"})
		return
	}

	switch req.Type {
	case domain.TypeNormal, domain.TypeChoices, domain.TypeTheater:
	case "":
		req.Type = domain.TypeNormal
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game type"})
		return
	}
	if req.Visibility == "" {
		req.Visibility = domain.VisibilityPublic
	}

	playlist, err := s.catalog.FindPlaylist(c.Request.Context(), req.PlaylistID)
	if err != nil {
		writeError(c, err)
		return
	}

	session, err := s.registry.CreateSession(c.Request.Context(), playlist, req.Type, req.Visibility, req.Options)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         session.ID,
		"numRounds":  session.NumRounds(),
		"playlistId": req.PlaylistID,
	})
}

// handleListGames returns every public joinable session.
//
// GET /api/games -> [SessionState...]
func (s *Server) handleListGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.ListJoinable())
}

// handleJoinGame seats the authenticated player in the session.
//
// POST /api/games/:id/join
func (s *Server) handleJoinGame(c *gin.Context) {
	playerID := c.GetString("playerID")
	if err := s.registry.Join(playerID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// handleSubmitGuess registers the player's answer for the current round.
//
// POST /api/games/guess {"roundNum", "trackId"} -> GuessResult
func (s *Server) handleSubmitGuess(c *gin.Context) {
	playerID := c.GetString("playerID")

	var req struct {
		RoundNum *int   `json:"roundNum"`
		TrackID  string `json:"trackId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoundNum == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roundNum and trackId must be specified"})
		return
	}

	session, err := s.registry.PlayerSession(playerID)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := session.Guess(playerID, *req.RoundNum, req.TrackID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleGetPlaylist proxies a playlist lookup for the lobby UI.
//
// GET /api/playlists/:id -> playlist summary with track count
func (s *Server) handleGetPlaylist(c *gin.Context) {
	playlist, err := s.catalog.FindPlaylist(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          playlist.ID,
		"name":        playlist.Name,
		"uri":         playlist.URI,
		"description": playlist.Description,
		"numTracks":   playlist.TotalTracks,
	})
}

// handleTotalGames reports the durable total-sessions counter.
//
// GET /api/stats/total-games -> {"totalGamesPlayed": n}
func (s *Server) handleTotalGames(c *gin.Context) {
	total, err := s.registry.TotalPlayed(c.Request.Context())
	if err != nil {
		s.log.Error("counter read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "counter unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalGamesPlayed": total})
}
