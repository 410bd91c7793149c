// Package story creates, reads and mutates stories. Every content change
// goes through Authorize; deletion goes through AuthorizeDelete.
package story

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"talehub/internal/apperr"
	"talehub/internal/blob"
	"talehub/internal/domain"
	"talehub/internal/notify"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// SearchAll lists every story instead of filtering by title.
	SearchAll = "all"
)

type Repository interface {
	CreateStory(ctx context.Context, ns domain.NewStory) (domain.Story, error)
	FindStoryByID(ctx context.Context, id uint) (domain.Story, error)
	ListStories(ctx context.Context, q domain.StoryQuery) ([]domain.Story, int64, error)
	UpdateStoryField(ctx context.Context, id uint, field domain.StoryField, value string) (domain.Story, error)
	DeleteStory(ctx context.Context, id uint) error

	FindAccountByUsername(ctx context.Context, username string) (domain.Account, error)
	FindAccountsByIDs(ctx context.Context, ids []uint) ([]domain.Account, error)
	AppendStoryHistory(ctx context.Context, accountID, storyID uint) error
}

type Engine struct {
	repo          Repository
	uploader      blob.Uploader
	notifier      notify.Dispatcher
	defaultAvatar string
}

func NewEngine(repo Repository, uploader blob.Uploader, notifier notify.Dispatcher, defaultAvatar string) *Engine {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Engine{repo: repo, uploader: uploader, notifier: notifier, defaultAvatar: defaultAvatar}
}

type CreateInput struct {
	Title       string
	Description string
	Body        string
	Genre       string
	Owners      []string // usernames, the actor is always added
	Editable    bool
	ImagePath   string // optional local file
}

func (in *CreateInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Genre = strings.TrimSpace(in.Genre)
	switch {
	case in.Title == "":
		return apperr.Validation("title", "title is required")
	case in.Description == "":
		return apperr.Validation("description", "description is required")
	case strings.TrimSpace(in.Body) == "":
		return apperr.Validation("story", "story is required")
	case in.Genre == "":
		return apperr.Validation("genre", "genre is required")
	}
	return nil
}

// Create stores a new story owned by the named accounts plus the actor.
func (e *Engine) Create(ctx context.Context, in CreateInput, actor domain.Account) (domain.Story, error) {
	if err := in.normalize(); err != nil {
		return domain.Story{}, err
	}

	owners, err := e.resolveOwners(ctx, in.Owners, actor.ID)
	if err != nil {
		return domain.Story{}, err
	}

	avatar := e.defaultAvatar
	if in.ImagePath != "" {
		if avatar, err = e.upload(ctx, in.ImagePath); err != nil {
			return domain.Story{}, err
		}
	}

	st, err := e.repo.CreateStory(ctx, domain.NewStory{
		Title:       in.Title,
		Description: in.Description,
		Body:        in.Body,
		Genre:       in.Genre,
		Owners:      owners,
		Editable:    in.Editable,
		AvatarURL:   avatar,
	})
	if err != nil {
		return domain.Story{}, err
	}

	if err := e.repo.AppendStoryHistory(ctx, actor.ID, st.ID); err != nil {
		log.Printf("Failed to record story %d in history of account %d: %v", st.ID, actor.ID, err)
	}
	e.notifyOwners(ctx, st, st.Title+" has been created and you are the owner", notify.SentimentPositive)
	return st, nil
}

// resolveOwners maps usernames to ids in the order given, drops duplicates
// and appends actorID when it was not named.
func (e *Engine) resolveOwners(ctx context.Context, usernames []string, actorID uint) ([]uint, error) {
	seen := make(map[uint]bool, len(usernames)+1)
	ids := make([]uint, 0, len(usernames)+1)
	for _, name := range usernames {
		name = domain.NormalizeHandle(name)
		if name == "" {
			continue
		}
		acc, err := e.repo.FindAccountByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if !seen[acc.ID] {
			seen[acc.ID] = true
			ids = append(ids, acc.ID)
		}
	}
	if !seen[actorID] {
		ids = append(ids, actorID)
	}
	return ids, nil
}

func (e *Engine) upload(ctx context.Context, path string) (string, error) {
	if e.uploader == nil {
		return "", apperr.New(apperr.KindInternal, "image uploads are not configured")
	}
	url, err := e.uploader.Upload(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

// Get loads a story and, for a signed-in viewer, records it in their history.
func (e *Engine) Get(ctx context.Context, id uint, viewerID uint) (domain.Story, error) {
	st, err := e.repo.FindStoryByID(ctx, id)
	if err != nil {
		return domain.Story{}, err
	}
	if viewerID != 0 {
		if err := e.repo.AppendStoryHistory(ctx, viewerID, id); err != nil {
			log.Printf("Failed to record story %d in history of account %d: %v", id, viewerID, err)
		}
	}
	return st, nil
}

type ListInput struct {
	Search      string
	SortBy      string
	SortType    string // asc or desc
	Username    string // owner filter
	Limit       int
	IncludeBody bool
}

type ListResult struct {
	Stories []domain.Story `json:"stories"`
	Total   int64          `json:"total"`
}

func (e *Engine) List(ctx context.Context, in ListInput) (ListResult, error) {
	search := strings.TrimSpace(in.Search)
	if search == "" {
		return ListResult{}, apperr.Validation("search", "search term is required")
	}
	q := domain.StoryQuery{IncludeBody: in.IncludeBody, SortBy: domain.SortByTitle, Limit: in.Limit}
	if !strings.EqualFold(search, SearchAll) {
		q.Search = search
	}

	switch sortBy := domain.SortField(strings.TrimSpace(in.SortBy)); sortBy {
	case "":
	case domain.SortByTitle, domain.SortByGenre, domain.SortByCreatedAt:
		q.SortBy = sortBy
	default:
		return ListResult{}, apperr.Validation("sortBy", "sortBy must be one of title, genre, created_at")
	}

	switch strings.ToLower(strings.TrimSpace(in.SortType)) {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		return ListResult{}, apperr.Validation("sortType", "sortType must be asc or desc")
	}

	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	if name := domain.NormalizeHandle(in.Username); name != "" {
		acc, err := e.repo.FindAccountByUsername(ctx, name)
		if errors.Is(err, apperr.ErrNotFound) {
			return ListResult{Stories: []domain.Story{}}, nil
		}
		if err != nil {
			return ListResult{}, err
		}
		q.OwnerID = acc.ID
	}

	stories, total, err := e.repo.ListStories(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	if stories == nil {
		stories = []domain.Story{}
	}
	return ListResult{Stories: stories, Total: total}, nil
}

// UpdateField changes exactly one field. For FieldThumbnail, value is a
// local image path; the previous remote image is not deleted.
func (e *Engine) UpdateField(ctx context.Context, id uint, field domain.StoryField, value string, actor domain.Account) (domain.Story, error) {
	if !field.Valid() {
		return domain.Story{}, apperr.Validation("field", "unknown story field "+string(field))
	}
	if field != domain.FieldBody {
		value = strings.TrimSpace(value)
	}
	if strings.TrimSpace(value) == "" {
		return domain.Story{}, apperr.Validation(string(field), string(field)+" is required")
	}

	before, err := e.repo.FindStoryByID(ctx, id)
	if err != nil {
		return domain.Story{}, err
	}
	if err := Authorize(before, actor.ID); err != nil {
		return domain.Story{}, err
	}

	if field == domain.FieldThumbnail {
		if value, err = e.upload(ctx, value); err != nil {
			return domain.Story{}, err
		}
	}

	after, err := e.repo.UpdateStoryField(ctx, id, field, value)
	if err != nil {
		return domain.Story{}, err
	}

	var msg string
	switch field {
	case domain.FieldTitle:
		msg = fmt.Sprintf("%s title has been updated to %s by %s", before.Title, after.Title, actor.Username)
	case domain.FieldThumbnail:
		msg = fmt.Sprintf("%s thumbnail has been updated by %s", after.Title, actor.Username)
	case domain.FieldBody:
		msg = fmt.Sprintf("%s story has been updated by %s", after.Title, actor.Username)
	default:
		msg = fmt.Sprintf("%s %s has been updated by %s", after.Title, field, actor.Username)
	}
	e.notifyOwners(ctx, after, msg, notify.SentimentPositive)
	return after, nil
}

// Delete removes the story. Its comments and likes stay behind.
func (e *Engine) Delete(ctx context.Context, id uint, actor domain.Account) error {
	st, err := e.repo.FindStoryByID(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeDelete(st, actor.ID); err != nil {
		return err
	}
	if err := e.repo.DeleteStory(ctx, id); err != nil {
		return err
	}
	e.notifyOwners(ctx, st, fmt.Sprintf("%s has been deleted by %s", st.Title, actor.Username), notify.SentimentNegative)
	return nil
}

func (e *Engine) notifyOwners(ctx context.Context, st domain.Story, message, sentiment string) {
	owners, err := e.repo.FindAccountsByIDs(ctx, st.Owners)
	if err != nil {
		log.Printf("Failed to load owners of story %d for notification: %v", st.ID, err)
		return
	}
	for _, o := range owners {
		e.notifier.Notify(notify.Event{
			RecipientID: o.ID,
			Username:    o.Username,
			Email:       o.Email,
			Message:     message,
			Sentiment:   sentiment,
		})
	}
}
