package memory

import (
	"context"
	"sort"
	"strings"

	"talehub/internal/apperr"
	"talehub/internal/domain"
)

func (s *Store) CreateStory(_ context.Context, ns domain.NewStory) (domain.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stories {
		if st.Title == ns.Title {
			return domain.Story{}, apperr.Conflict("story with same title already exists")
		}
	}
	now := s.now()
	st := domain.Story{
		ID:          s.id(),
		Title:       ns.Title,
		Description: ns.Description,
		Body:        ns.Body,
		Genre:       ns.Genre,
		Owners:      append([]uint{}, ns.Owners...),
		Editable:    ns.Editable,
		AvatarURL:   ns.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.stories[st.ID] = st
	return s.view(st), nil
}

// view copies the slices and derives comment ids, as the join query does.
func (s *Store) view(st domain.Story) domain.Story {
	st.Owners = append([]uint{}, st.Owners...)
	st.CommentIDs = []uint{}
	for id, c := range s.comments {
		if c.StoryID == st.ID {
			st.CommentIDs = append(st.CommentIDs, id)
		}
	}
	sort.Slice(st.CommentIDs, func(i, j int) bool { return st.CommentIDs[i] < st.CommentIDs[j] })
	return st
}

func (s *Store) FindStoryByID(_ context.Context, id uint) (domain.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return domain.Story{}, apperr.NotFound("story not found")
	}
	return s.view(st), nil
}

func (s *Store) ListStories(_ context.Context, q domain.StoryQuery) ([]domain.Story, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var matched []domain.Story
	for _, st := range s.stories {
		if search != "" && !strings.Contains(strings.ToLower(st.Title), search) {
			continue
		}
		if q.OwnerID != 0 && !st.HasOwner(q.OwnerID) {
			continue
		}
		matched = append(matched, s.view(st))
	}

	key := func(st domain.Story) string {
		switch q.SortBy {
		case domain.SortByGenre:
			return st.Genre
		case domain.SortByCreatedAt:
			return st.CreatedAt.Format("2006-01-02T15:04:05.000000000")
		default:
			return st.Title
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ki, kj := key(matched[i]), key(matched[j])
		if ki == kj {
			return matched[i].ID < matched[j].ID
		}
		if q.Descending {
			return ki > kj
		}
		return ki < kj
	})

	total := int64(len(matched))
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if !q.IncludeBody {
		for i := range matched {
			matched[i].Body = ""
		}
	}
	return matched, total, nil
}

func (s *Store) UpdateStoryField(_ context.Context, id uint, field domain.StoryField, value string) (domain.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return domain.Story{}, apperr.NotFound("story not found")
	}
	switch field {
	case domain.FieldTitle:
		for otherID, other := range s.stories {
			if otherID != id && other.Title == value {
				return domain.Story{}, apperr.Conflict("story with same title already exists")
			}
		}
		st.Title = value
	case domain.FieldDescription:
		st.Description = value
	case domain.FieldBody:
		st.Body = value
	case domain.FieldThumbnail:
		st.AvatarURL = value
	default:
		return domain.Story{}, apperr.Validation("field", "unknown story field "+string(field))
	}
	st.UpdatedAt = s.now()
	s.stories[id] = st
	return s.view(st), nil
}

func (s *Store) DeleteStory(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[id]; !ok {
		return apperr.NotFound("story not found")
	}
	delete(s.stories, id)
	return nil
}
