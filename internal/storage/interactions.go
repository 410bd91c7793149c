package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/models"

	"gorm.io/gorm"
)

// InsertLike records the (story, account) pair. A second insert for the same
// pair fails with Conflict through the composite unique index.
func (s *Store) InsertLike(ctx context.Context, storyID, accountID uint) error {
	row := models.Like{StoryID: storyID, AccountID: accountID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("story already liked")
		}
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

// DeleteLike removes the pair and reports whether a row existed.
func (s *Store) DeleteLike(ctx context.Context, storyID, accountID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("story_id = ? AND account_id = ?", storyID, accountID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete like: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) LikeExists(ctx context.Context, storyID, accountID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("story_id = ? AND account_id = ?", storyID, accountID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return n > 0, nil
}

// ListLikers returns the accounts that liked storyID, oldest like first.
func (s *Store) ListLikers(ctx context.Context, storyID uint) ([]domain.AccountSummary, error) {
	out := []domain.AccountSummary{}
	err := s.db.WithContext(ctx).Table("likes").
		Select("accounts.id, accounts.username").
		Joins("JOIN accounts ON accounts.id = likes.account_id AND accounts.deleted_at IS NULL").
		Where("likes.story_id = ?", storyID).
		Order("likes.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	return out, nil
}

// LikedStories returns the stories accountID liked that still exist.
func (s *Store) LikedStories(ctx context.Context, accountID uint) ([]domain.StorySummary, error) {
	out := []domain.StorySummary{}
	err := s.db.WithContext(ctx).Table("likes").
		Select("stories.id, stories.title").
		Joins("JOIN stories ON stories.id = likes.story_id").
		Where("likes.account_id = ?", accountID).
		Order("likes.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list liked stories: %w", err)
	}
	return out, nil
}

// CreateComment checks the story exists and inserts the comment in one
// transaction, so a comment never points at a missing story.
func (s *Store) CreateComment(ctx context.Context, storyID, accountID uint, text string) (domain.Comment, error) {
	row := models.Comment{StoryID: storyID, AccountID: accountID, Text: text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var story models.Story
		if err := tx.Select("id").First(&story, storyID).Error; err != nil {
			return lookupErr(err, "story")
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return s.FindComment(ctx, row.ID)
}

type commentRow struct {
	ID        uint
	StoryID   uint
	AccountID uint
	Username  *string
	Title     *string
	Text      string
	CreatedAt time.Time
}

func (r commentRow) toDomain() domain.Comment {
	c := domain.Comment{
		ID:        r.ID,
		StoryID:   r.StoryID,
		AuthorID:  r.AccountID,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
	if r.Username != nil {
		c.Author = *r.Username
	}
	if r.Title != nil {
		c.StoryName = *r.Title
	}
	return c
}

func (s *Store) commentQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("comments").
		Select("comments.id, comments.story_id, comments.account_id, accounts.username, stories.title, comments.text, comments.created_at").
		Joins("LEFT JOIN accounts ON accounts.id = comments.account_id").
		Joins("LEFT JOIN stories ON stories.id = comments.story_id")
}

func (s *Store) FindComment(ctx context.Context, commentID uint) (domain.Comment, error) {
	var rows []commentRow
	if err := s.commentQuery(ctx).Where("comments.id = ?", commentID).Limit(1).Scan(&rows).Error; err != nil {
		return domain.Comment{}, fmt.Errorf("failed to load comment: %w", err)
	}
	if len(rows) == 0 {
		return domain.Comment{}, apperr.NotFound("comment not found")
	}
	return rows[0].toDomain(), nil
}

func (s *Store) UpdateCommentText(ctx context.Context, commentID uint, text string) (domain.Comment, error) {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		Update("text", text)
	if res.Error != nil {
		return domain.Comment{}, fmt.Errorf("failed to update comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Comment{}, apperr.NotFound("comment not found")
	}
	return s.FindComment(ctx, commentID)
}

func (s *Store) DeleteComment(ctx context.Context, commentID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, commentID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("comment not found")
	}
	return nil
}

// ListComments returns a story's comments with author usernames, oldest first.
func (s *Store) ListComments(ctx context.Context, storyID uint) ([]domain.Comment, error) {
	var rows []commentRow
	if err := s.commentQuery(ctx).Where("comments.story_id = ?", storyID).Order("comments.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return toComments(rows), nil
}

// CommentsByAccount returns every comment accountID wrote, with story titles.
func (s *Store) CommentsByAccount(ctx context.Context, accountID uint) ([]domain.Comment, error) {
	var rows []commentRow
	if err := s.commentQuery(ctx).Where("comments.account_id = ?", accountID).Order("comments.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list account comments: %w", err)
	}
	return toComments(rows), nil
}

func toComments(rows []commentRow) []domain.Comment {
	out := make([]domain.Comment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func (s *Store) InsertFollow(ctx context.Context, followerID, authorID uint) error {
	row := models.Follow{FollowerID: followerID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("already following")
		}
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	return nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, authorID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND author_id = ?", followerID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FollowCounts(ctx context.Context, accountID uint) (domain.FollowCounts, error) {
	var counts domain.FollowCounts
	db := s.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("author_id = ?", accountID).Count(&counts.Followers).Error; err != nil {
		return counts, fmt.Errorf("failed to count followers: %w", err)
	}
	db = s.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("follower_id = ?", accountID).Count(&counts.Following).Error; err != nil {
		return counts, fmt.Errorf("failed to count following: %w", err)
	}
	return counts, nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	var row models.Follow
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND author_id = ?", followerID, authorID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return true, nil
}
