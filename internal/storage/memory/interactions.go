package memory

import (
	"context"
	"sort"

	"talehub/internal/apperr"
	"talehub/internal/domain"
)

func (s *Store) InsertLike(_ context.Context, storyID, accountID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{storyID, accountID}
	if _, ok := s.likes[key]; ok {
		return apperr.Conflict("story already liked")
	}
	s.likes[key] = s.id()
	return nil
}

func (s *Store) DeleteLike(_ context.Context, storyID, accountID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{storyID, accountID}
	if _, ok := s.likes[key]; !ok {
		return false, nil
	}
	delete(s.likes, key)
	return true, nil
}

func (s *Store) LikeExists(_ context.Context, storyID, accountID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[pair{storyID, accountID}]
	return ok, nil
}

// CountLikes is not part of the gorm store; tests use it to observe the
// number of records for a pair.
func (s *Store) CountLikes(storyID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.likes {
		if k.a == storyID {
			n++
		}
	}
	return n
}

type seqPair struct {
	seq uint
	id  uint
}

func sortedBySeq(in []seqPair) []uint {
	sort.Slice(in, func(i, j int) bool { return in[i].seq < in[j].seq })
	out := make([]uint, len(in))
	for i, p := range in {
		out[i] = p.id
	}
	return out
}

func (s *Store) ListLikers(_ context.Context, storyID uint) ([]domain.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []seqPair
	for k, seq := range s.likes {
		if k.a == storyID {
			refs = append(refs, seqPair{seq, k.b})
		}
	}
	out := []domain.AccountSummary{}
	for _, id := range sortedBySeq(refs) {
		if acc, ok := s.accounts[id]; ok {
			out = append(out, domain.AccountSummary{ID: acc.ID, Username: acc.Username})
		}
	}
	return out, nil
}

func (s *Store) LikedStories(_ context.Context, accountID uint) ([]domain.StorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []seqPair
	for k, seq := range s.likes {
		if k.b == accountID {
			refs = append(refs, seqPair{seq, k.a})
		}
	}
	out := []domain.StorySummary{}
	for _, id := range sortedBySeq(refs) {
		if st, ok := s.stories[id]; ok {
			out = append(out, domain.StorySummary{ID: st.ID, Title: st.Title})
		}
	}
	return out, nil
}

func (s *Store) CreateComment(_ context.Context, storyID, accountID uint, text string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[storyID]; !ok {
		return domain.Comment{}, apperr.NotFound("story not found")
	}
	c := domain.Comment{
		ID:        s.id(),
		StoryID:   storyID,
		AuthorID:  accountID,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.comments[c.ID] = c
	return s.commentView(c), nil
}

func (s *Store) commentView(c domain.Comment) domain.Comment {
	if acc, ok := s.accounts[c.AuthorID]; ok {
		c.Author = acc.Username
	}
	if st, ok := s.stories[c.StoryID]; ok {
		c.StoryName = st.Title
	}
	return c
}

func (s *Store) FindComment(_ context.Context, commentID uint) (domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[commentID]
	if !ok {
		return domain.Comment{}, apperr.NotFound("comment not found")
	}
	return s.commentView(c), nil
}

func (s *Store) UpdateCommentText(_ context.Context, commentID uint, text string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok {
		return domain.Comment{}, apperr.NotFound("comment not found")
	}
	c.Text = text
	s.comments[commentID] = c
	return s.commentView(c), nil
}

func (s *Store) DeleteComment(_ context.Context, commentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[commentID]; !ok {
		return apperr.NotFound("comment not found")
	}
	delete(s.comments, commentID)
	return nil
}

func (s *Store) ListComments(_ context.Context, storyID uint) ([]domain.Comment, error) {
	return s.filterComments(func(c domain.Comment) bool { return c.StoryID == storyID }), nil
}

func (s *Store) CommentsByAccount(_ context.Context, accountID uint) ([]domain.Comment, error) {
	return s.filterComments(func(c domain.Comment) bool { return c.AuthorID == accountID }), nil
}

func (s *Store) filterComments(keep func(domain.Comment) bool) []domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Comment{}
	for _, c := range s.comments {
		if keep(c) {
			out = append(out, s.commentView(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) InsertFollow(_ context.Context, followerID, authorID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{followerID, authorID}
	if _, ok := s.follows[key]; ok {
		return apperr.Conflict("already following")
	}
	s.follows[key] = struct{}{}
	return nil
}

func (s *Store) DeleteFollow(_ context.Context, followerID, authorID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{followerID, authorID}
	if _, ok := s.follows[key]; !ok {
		return false, nil
	}
	delete(s.follows, key)
	return true, nil
}

func (s *Store) FollowCounts(_ context.Context, accountID uint) (domain.FollowCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts domain.FollowCounts
	for k := range s.follows {
		if k.b == accountID {
			counts.Followers++
		}
		if k.a == accountID {
			counts.Following++
		}
	}
	return counts, nil
}

func (s *Store) IsFollowing(_ context.Context, followerID, authorID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.follows[pair{followerID, authorID}]
	return ok, nil
}

func (s *Store) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.id()
	n.CreatedAt = s.now()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, accountID uint, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Notification{}
	for _, n := range s.notifications {
		if n.RecipientID == accountID {
			out = append(out, n)
		}
	}
	// ids grow monotonically, so id order is creation order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteNotification(_ context.Context, accountID, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.RecipientID != accountID {
		return apperr.NotFound("notification not found")
	}
	delete(s.notifications, notificationID)
	return nil
}
