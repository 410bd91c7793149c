// Package interaction records likes, comments and follows. Like and follow
// state is the existence of a unique pair row; toggles rely on that
// constraint instead of in-process locks.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/notify"
)

type LikeState string

const (
	Liked   LikeState = "liked"
	Unliked LikeState = "unliked"
)

type FollowState string

const (
	Followed   FollowState = "followed"
	Unfollowed FollowState = "unfollowed"
)

type Repository interface {
	FindStoryByID(ctx context.Context, id uint) (domain.Story, error)
	FindAccountByUsername(ctx context.Context, username string) (domain.Account, error)
	FindAccountsByIDs(ctx context.Context, ids []uint) ([]domain.Account, error)

	InsertLike(ctx context.Context, storyID, accountID uint) error
	DeleteLike(ctx context.Context, storyID, accountID uint) (bool, error)
	LikeExists(ctx context.Context, storyID, accountID uint) (bool, error)
	ListLikers(ctx context.Context, storyID uint) ([]domain.AccountSummary, error)
	LikedStories(ctx context.Context, accountID uint) ([]domain.StorySummary, error)

	CreateComment(ctx context.Context, storyID, accountID uint, text string) (domain.Comment, error)
	FindComment(ctx context.Context, commentID uint) (domain.Comment, error)
	UpdateCommentText(ctx context.Context, commentID uint, text string) (domain.Comment, error)
	DeleteComment(ctx context.Context, commentID uint) error
	ListComments(ctx context.Context, storyID uint) ([]domain.Comment, error)
	CommentsByAccount(ctx context.Context, accountID uint) ([]domain.Comment, error)

	InsertFollow(ctx context.Context, followerID, authorID uint) error
	DeleteFollow(ctx context.Context, followerID, authorID uint) (bool, error)
	FollowCounts(ctx context.Context, accountID uint) (domain.FollowCounts, error)
	IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error)
}

type Ledger struct {
	repo     Repository
	notifier notify.Dispatcher
}

func NewLedger(repo Repository, notifier notify.Dispatcher) *Ledger {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Ledger{repo: repo, notifier: notifier}
}

// ToggleLike flips the like state of (storyID, actor). It deletes first; if
// nothing was removed it inserts. An insert that loses a race against a
// concurrent insert is turned back into a delete, so a caller never ends up
// with two records for the pair.
func (l *Ledger) ToggleLike(ctx context.Context, storyID uint, actor domain.Account) (LikeState, error) {
	st, err := l.repo.FindStoryByID(ctx, storyID)
	if err != nil {
		return "", err
	}

	removed, err := l.repo.DeleteLike(ctx, storyID, actor.ID)
	if err != nil {
		return "", err
	}
	if removed {
		return Unliked, nil
	}

	err = l.repo.InsertLike(ctx, storyID, actor.ID)
	if errors.Is(err, apperr.ErrConflict) {
		if _, err := l.repo.DeleteLike(ctx, storyID, actor.ID); err != nil {
			return "", err
		}
		return Unliked, nil
	}
	if err != nil {
		return "", err
	}

	l.notifyOwners(ctx, st, actor.ID, fmt.Sprintf("%s liked your story %s", actor.Username, st.Title), notify.SentimentPositive)
	return Liked, nil
}

type LikesResult struct {
	Likers   []domain.AccountSummary `json:"likers"`
	Total    int                     `json:"total"`
	HasLiked bool                    `json:"hasLiked"`
}

// ListLikes returns who liked the story; HasLiked refers to viewerID.
func (l *Ledger) ListLikes(ctx context.Context, storyID, viewerID uint) (LikesResult, error) {
	if _, err := l.repo.FindStoryByID(ctx, storyID); err != nil {
		return LikesResult{}, err
	}
	likers, err := l.repo.ListLikers(ctx, storyID)
	if err != nil {
		return LikesResult{}, err
	}
	res := LikesResult{Likers: likers, Total: len(likers)}
	for _, a := range likers {
		if a.ID == viewerID {
			res.HasLiked = true
			break
		}
	}
	return res, nil
}

func (l *Ledger) HasLiked(ctx context.Context, storyID, accountID uint) (bool, error) {
	return l.repo.LikeExists(ctx, storyID, accountID)
}

func (l *Ledger) LikedStories(ctx context.Context, accountID uint) ([]domain.StorySummary, error) {
	return l.repo.LikedStories(ctx, accountID)
}

// AddComment appends a comment. The repository checks the story exists in
// the same transaction as the insert.
func (l *Ledger) AddComment(ctx context.Context, storyID uint, actor domain.Account, text string) (domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Comment{}, apperr.Validation("comment", "comment is required")
	}
	c, err := l.repo.CreateComment(ctx, storyID, actor.ID, text)
	if err != nil {
		return domain.Comment{}, err
	}

	if st, err := l.repo.FindStoryByID(ctx, storyID); err == nil {
		l.notifyOwners(ctx, st, actor.ID, fmt.Sprintf("%s commented on your story %s", actor.Username, st.Title), notify.SentimentPositive)
	}
	return c, nil
}

// authorizeComment allows the comment author and the owners of the story it
// belongs to.
func (l *Ledger) authorizeComment(ctx context.Context, c domain.Comment, actorID uint) error {
	if c.AuthorID == actorID {
		return nil
	}
	st, err := l.repo.FindStoryByID(ctx, c.StoryID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err == nil && st.HasOwner(actorID) {
		return nil
	}
	return apperr.Forbidden("only the author or a story owner can change this comment")
}

func (l *Ledger) EditComment(ctx context.Context, commentID uint, text string, actor domain.Account) (domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Comment{}, apperr.Validation("comment", "comment is required")
	}
	c, err := l.repo.FindComment(ctx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := l.authorizeComment(ctx, c, actor.ID); err != nil {
		return domain.Comment{}, err
	}
	return l.repo.UpdateCommentText(ctx, commentID, text)
}

func (l *Ledger) DeleteComment(ctx context.Context, commentID uint, actor domain.Account) error {
	c, err := l.repo.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := l.authorizeComment(ctx, c, actor.ID); err != nil {
		return err
	}
	return l.repo.DeleteComment(ctx, commentID)
}

type CommentsResult struct {
	Comments []domain.Comment `json:"comments"`
	Total    int              `json:"total"`
}

func (l *Ledger) ListComments(ctx context.Context, storyID uint) (CommentsResult, error) {
	if _, err := l.repo.FindStoryByID(ctx, storyID); err != nil {
		return CommentsResult{}, err
	}
	comments, err := l.repo.ListComments(ctx, storyID)
	if err != nil {
		return CommentsResult{}, err
	}
	return CommentsResult{Comments: comments, Total: len(comments)}, nil
}

func (l *Ledger) CommentHistory(ctx context.Context, accountID uint) ([]domain.Comment, error) {
	return l.repo.CommentsByAccount(ctx, accountID)
}

// ToggleFollow flips whether follower follows the named author, with the
// same delete-then-insert scheme as ToggleLike.
func (l *Ledger) ToggleFollow(ctx context.Context, follower domain.Account, authorUsername string) (FollowState, error) {
	author, err := l.repo.FindAccountByUsername(ctx, domain.NormalizeHandle(authorUsername))
	if err != nil {
		return "", err
	}
	if author.ID == follower.ID {
		return "", apperr.Validation("username", "you cannot follow yourself")
	}

	removed, err := l.repo.DeleteFollow(ctx, follower.ID, author.ID)
	if err != nil {
		return "", err
	}
	if removed {
		return Unfollowed, nil
	}

	err = l.repo.InsertFollow(ctx, follower.ID, author.ID)
	if errors.Is(err, apperr.ErrConflict) {
		if _, err := l.repo.DeleteFollow(ctx, follower.ID, author.ID); err != nil {
			return "", err
		}
		return Unfollowed, nil
	}
	if err != nil {
		return "", err
	}

	l.notifier.Notify(notify.Event{
		RecipientID: author.ID,
		Username:    author.Username,
		Email:       author.Email,
		Message:     follower.Username + " started following you",
		Sentiment:   notify.SentimentPositive,
	})
	return Followed, nil
}

type AuthorProfile struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar,omitempty"`
	Followers   int64  `json:"followers"`
	Following   int64  `json:"following"`
	IsFollowing bool   `json:"isFollowing"`
}

func (l *Ledger) AuthorProfile(ctx context.Context, username string, viewerID uint) (AuthorProfile, error) {
	author, err := l.repo.FindAccountByUsername(ctx, domain.NormalizeHandle(username))
	if err != nil {
		return AuthorProfile{}, err
	}
	counts, err := l.repo.FollowCounts(ctx, author.ID)
	if err != nil {
		return AuthorProfile{}, err
	}
	p := AuthorProfile{
		ID:        author.ID,
		Username:  author.Username,
		Email:     author.Email,
		AvatarURL: author.AvatarURL,
		Followers: counts.Followers,
		Following: counts.Following,
	}
	if viewerID != 0 && viewerID != author.ID {
		if p.IsFollowing, err = l.repo.IsFollowing(ctx, viewerID, author.ID); err != nil {
			return AuthorProfile{}, err
		}
	}
	return p, nil
}

// notifyOwners tells every owner except the actor.
func (l *Ledger) notifyOwners(ctx context.Context, st domain.Story, actorID uint, message, sentiment string) {
	owners, err := l.repo.FindAccountsByIDs(ctx, st.Owners)
	if err != nil {
		log.Printf("Failed to load owners of story %d for notification: %v", st.ID, err)
		return
	}
	for _, o := range owners {
		if o.ID == actorID {
			continue
		}
		l.notifier.Notify(notify.Event{
			RecipientID: o.ID,
			Username:    o.Username,
			Email:       o.Email,
			Message:     message,
			Sentiment:   sentiment,
		})
	}
}
