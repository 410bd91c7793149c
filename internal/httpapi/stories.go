package httpapi

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/story"
	"talehub/pkg/protocol"

	"github.com/gin-gonic/gin"
)

func (s *Server) listStories(c *gin.Context) {
	in := story.ListInput{
		Search:   c.Query("search"),
		SortBy:   c.Query("sortBy"),
		SortType: c.Query("sortType"),
		Username: c.Query("username"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, apperr.Validation("limit", "limit must be a non-negative integer"))
			return
		}
		in.Limit = n
	}
	if raw := c.Query("story"); raw != "" {
		in.IncludeBody, _ = strconv.ParseBool(raw)
	}

	res, err := s.stories.List(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, res, "Stories fetched")
}

func (s *Server) getStory(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	st, err := s.stories.Get(c.Request.Context(), id, currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, st, "Story fetched")
}

// saveUpload copies the multipart file under field to a temporary path.
// The returned cleanup removes it. A missing file yields an empty path.
func (s *Server) saveUpload(c *gin.Context, field string) (string, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", func() {}, nil
	}
	if err != nil {
		return "", func() {}, apperr.Validation(field, "invalid multipart form")
	}
	if fh.Size > s.opts.MaxUploadBytes {
		return "", func() {}, apperr.Validation(field, "image is too large")
	}

	tmp, err := os.CreateTemp("", "talehub-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", func() {}, err
	}
	path := tmp.Name()
	tmp.Close()
	cleanup := func() { os.Remove(path) }
	if err := c.SaveUploadedFile(fh, path); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}

// parseOwners accepts repeated owners fields or one comma separated value.
func parseOwners(values []string) []string {
	var owners []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				owners = append(owners, name)
			}
		}
	}
	return owners
}

func (s *Server) createStory(c *gin.Context) {
	imagePath, cleanup, err := s.saveUpload(c, "image")
	if err != nil {
		fail(c, err)
		return
	}
	defer cleanup()

	var editable bool
	if raw := c.PostForm("isEditable"); raw != "" {
		if editable, err = strconv.ParseBool(raw); err != nil {
			fail(c, apperr.Validation("isEditable", "isEditable must be true or false"))
			return
		}
	}

	st, err := s.stories.Create(c.Request.Context(), story.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Body:        c.PostForm("story"),
		Genre:       c.PostForm("genre"),
		Owners:      parseOwners(c.PostFormArray("owners")),
		Editable:    editable,
		ImagePath:   imagePath,
	}, currentAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, st, "Story created")
}

func (s *Server) updateStoryField(field domain.StoryField) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "storyId")
		if !ok {
			return
		}
		var req protocol.FieldUpdateRequest
		if !bindJSON(c, &req) {
			return
		}
		st, err := s.stories.UpdateField(c.Request.Context(), id, field, req.Value, currentAccount(c))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, st, "Story "+string(field)+" updated")
	}
}

func (s *Server) updateThumbnail(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	imagePath, cleanup, err := s.saveUpload(c, "image")
	if err != nil {
		fail(c, err)
		return
	}
	defer cleanup()
	if imagePath == "" {
		fail(c, apperr.Validation("image", "image is required"))
		return
	}

	st, err := s.stories.UpdateField(c.Request.Context(), id, domain.FieldThumbnail, imagePath, currentAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, st, "Story thumbnail updated")
}

func (s *Server) deleteStory(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	if err := s.stories.Delete(c.Request.Context(), id, currentAccount(c)); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Story deleted")
}

func (s *Server) toggleLike(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	state, err := s.ledger.ToggleLike(c.Request.Context(), id, currentAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"state": state}, "Like state changed")
}

func (s *Server) listLikes(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	res, err := s.ledger.ListLikes(c.Request.Context(), id, currentAccount(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, res, "Likes fetched")
}

func (s *Server) listComments(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	res, err := s.ledger.ListComments(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, res, "Comments fetched")
}

func (s *Server) addComment(c *gin.Context) {
	id, ok := paramID(c, "storyId")
	if !ok {
		return
	}
	var req protocol.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := s.ledger.AddComment(c.Request.Context(), id, currentAccount(c), req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, comment, "Comment added")
}
