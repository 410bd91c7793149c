package httpapi

import (
	"net/http"

	"talehub/internal/auth"
	"talehub/pkg/protocol"

	"github.com/gin-gonic/gin"
)

func (s *Server) signUp(c *gin.Context) {
	var req protocol.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := s.accounts.SignUp(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, profile, "User registered successfully")
}

func (s *Server) signIn(c *gin.Context) {
	var req protocol.SignInRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := s.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.cookies.SetTokens(c.Writer, sess.Tokens); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, protocol.SignInResponse{
		User:         sess.Account,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
	}, "User signed in successfully")
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.accounts.SignOut(c.Request.Context(), currentAccount(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.cookies.Clear(c.Writer)
	respond(c, http.StatusOK, nil, "User signed out")
}

// refreshToken takes the token from the refreshToken cookie, falling back
// to the JSON body.
func (s *Server) refreshToken(c *gin.Context) {
	token, err := s.cookies.Read(c.Request, auth.RefreshCookie)
	if err != nil || token == "" {
		var req protocol.RefreshRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}

	pair, err := s.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.cookies.SetTokens(c.Writer, pair); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, pair, "Access token refreshed")
}

func (s *Server) changePassword(c *gin.Context) {
	var req protocol.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.accounts.ChangePassword(c.Request.Context(), currentAccount(c).ID, req.OldPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Password changed successfully")
}

func (s *Server) changeUsername(c *gin.Context) {
	var req protocol.UsernameRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := s.accounts.UpdateUsername(c.Request.Context(), currentAccount(c).ID, req.Username)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, profile, "Username updated")
}

func (s *Server) changeEmail(c *gin.Context) {
	var req protocol.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := s.accounts.UpdateEmail(c.Request.Context(), currentAccount(c).ID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, profile, "Email updated")
}

func (s *Server) me(c *gin.Context) {
	respond(c, http.StatusOK, currentAccount(c).Profile(), "Current user")
}

func (s *Server) history(c *gin.Context) {
	history, err := s.accounts.StoryHistory(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, history, "Story history")
}

func (s *Server) searchUsers(c *gin.Context) {
	users, err := s.accounts.Search(c.Request.Context(), c.Query("username"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, users, "Users found")
}

func (s *Server) myComments(c *gin.Context) {
	comments, err := s.ledger.CommentHistory(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, comments, "Comment history")
}

func (s *Server) myLikes(c *gin.Context) {
	stories, err := s.ledger.LikedStories(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stories, "Liked stories")
}

func (s *Server) notifications(c *gin.Context) {
	list, err := s.accounts.Notifications(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, list, "Notifications")
}

func (s *Server) deleteNotification(c *gin.Context) {
	id, ok := paramID(c, "notificationId")
	if !ok {
		return
	}
	if err := s.accounts.DeleteNotification(c.Request.Context(), currentAccount(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Notification deleted")
}

func (s *Server) profile(c *gin.Context) {
	p, err := s.ledger.AuthorProfile(c.Request.Context(), c.Param("username"), currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p, "Author profile")
}

func (s *Server) follow(c *gin.Context) {
	state, err := s.ledger.ToggleFollow(c.Request.Context(), currentAccount(c), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"state": state}, "Follow state changed")
}
