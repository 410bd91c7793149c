package httpapi

import (
	"net/http"

	"talehub/pkg/protocol"

	"github.com/gin-gonic/gin"
)

func (s *Server) editComment(c *gin.Context) {
	id, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	var req protocol.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := s.ledger.EditComment(c.Request.Context(), id, req.Comment, currentAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, comment, "Comment updated")
}

func (s *Server) deleteComment(c *gin.Context) {
	id, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	if err := s.ledger.DeleteComment(c.Request.Context(), id, currentAccount(c)); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Comment deleted")
}
