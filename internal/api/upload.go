package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bodega/internal/relay"
)

func (s *Server) Upload(c *gin.Context) {
	if s.relay == nil {
		s.respond(c, relay.InternalError(errors.New("upload relay is not configured")))
		return
	}
	var payload relay.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.log.Warn("upload body rejected", zap.Error(err))
		s.respond(c, relay.InternalError(err))
		return
	}
	s.respond(c, s.relay.Handle(c.Request.Context(), payload))
}

func (s *Server) respond(c *gin.Context, resp relay.Response) {
	c.JSON(resp.Status, resp.Body)
}
