package storage

import (
	"context"
	"fmt"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/models"

	"gorm.io/gorm"
)

var storyColumns = map[domain.StoryField]string{
	domain.FieldTitle:       "title",
	domain.FieldDescription: "description",
	domain.FieldBody:        "body",
	domain.FieldThumbnail:   "avatar_url",
}

var sortColumns = map[domain.SortField]string{
	domain.SortByTitle:     "title",
	domain.SortByGenre:     "genre",
	domain.SortByCreatedAt: "created_at",
}

func toStory(m models.Story) domain.Story {
	return domain.Story{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Body:        m.Body,
		Genre:       m.Genre,
		Editable:    m.Editable,
		AvatarURL:   m.AvatarURL,
		Owners:      []uint{},
		CommentIDs:  []uint{},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// CreateStory inserts the story and its owner links in one transaction.
func (s *Store) CreateStory(ctx context.Context, ns domain.NewStory) (domain.Story, error) {
	row := models.Story{
		Title:       ns.Title,
		Description: ns.Description,
		Body:        ns.Body,
		Genre:       ns.Genre,
		Editable:    ns.Editable,
		AvatarURL:   ns.AvatarURL,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("story with same title already exists")
			}
			return fmt.Errorf("failed to insert story: %w", err)
		}
		owners := make([]models.StoryOwner, 0, len(ns.Owners))
		for i, id := range ns.Owners {
			owners = append(owners, models.StoryOwner{StoryID: row.ID, AccountID: id, Position: i})
		}
		if len(owners) > 0 {
			if err := tx.Create(&owners).Error; err != nil {
				return fmt.Errorf("failed to insert story owners: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Story{}, err
	}
	return s.FindStoryByID(ctx, row.ID)
}

func (s *Store) FindStoryByID(ctx context.Context, id uint) (domain.Story, error) {
	var row models.Story
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Story{}, lookupErr(err, "story")
	}
	stories, err := s.hydrate(ctx, []models.Story{row})
	if err != nil {
		return domain.Story{}, err
	}
	return stories[0], nil
}

// ListStories returns one page of matching stories plus the total count.
func (s *Store) ListStories(ctx context.Context, q domain.StoryQuery) ([]domain.Story, int64, error) {
	filtered := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&models.Story{})
		if q.Search != "" {
			tx = tx.Where("LOWER(title) LIKE ?", containsFold(q.Search))
		}
		if q.OwnerID != 0 {
			owned := s.db.Model(&models.StoryOwner{}).Select("story_id").Where("account_id = ?", q.OwnerID)
			tx = tx.Where("id IN (?)", owned)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stories: %w", err)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "title"
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	var rows []models.Story
	err := filtered().
		Order(column + " " + direction).
		Order("id").
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stories: %w", err)
	}

	stories, err := s.hydrate(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	if !q.IncludeBody {
		for i := range stories {
			stories[i].Body = ""
		}
	}
	return stories, total, nil
}

// hydrate fills owner and comment id lists with two explicit queries.
func (s *Store) hydrate(ctx context.Context, rows []models.Story) ([]domain.Story, error) {
	out := make([]domain.Story, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uint, len(rows))
	index := make(map[uint]int, len(rows))
	for i, r := range rows {
		out[i] = toStory(r)
		ids[i] = r.ID
		index[r.ID] = i
	}

	var owners []models.StoryOwner
	err := s.db.WithContext(ctx).
		Where("story_id IN ?", ids).
		Order("story_id, position").
		Find(&owners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load story owners: %w", err)
	}
	for _, o := range owners {
		i := index[o.StoryID]
		out[i].Owners = append(out[i].Owners, o.AccountID)
	}

	type commentRef struct {
		ID      uint
		StoryID uint
	}
	var comments []commentRef
	err = s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("id, story_id").
		Where("story_id IN ?", ids).
		Order("id").
		Scan(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load story comments: %w", err)
	}
	for _, c := range comments {
		i := index[c.StoryID]
		out[i].CommentIDs = append(out[i].CommentIDs, c.ID)
	}
	return out, nil
}

// UpdateStoryField writes exactly one column and returns the fresh story.
func (s *Store) UpdateStoryField(ctx context.Context, id uint, field domain.StoryField, value string) (domain.Story, error) {
	column, ok := storyColumns[field]
	if !ok {
		return domain.Story{}, apperr.Validation("field", "unknown story field "+string(field))
	}
	res := s.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return domain.Story{}, apperr.Conflict("story with same title already exists")
		}
		return domain.Story{}, fmt.Errorf("failed to update story %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Story{}, apperr.NotFound("story not found")
	}
	return s.FindStoryByID(ctx, id)
}

// DeleteStory removes the story and its owner links. Comments and likes
// are left in place.
func (s *Store) DeleteStory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id = ?", id).Delete(&models.StoryOwner{}).Error; err != nil {
			return fmt.Errorf("failed to delete story owners: %w", err)
		}
		res := tx.Delete(&models.Story{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete story: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("story not found")
		}
		return nil
	})
}
