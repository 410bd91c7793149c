package storage

import (
	"context"
	"fmt"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/models"

	"gorm.io/gorm/clause"
)

func toAccount(m models.Account) domain.Account {
	return domain.Account{
		ID:               m.ID,
		Username:         m.Username,
		Email:            m.Email,
		PasswordHash:     m.PasswordHash,
		AvatarURL:        m.AvatarURL,
		RefreshTokenHash: m.RefreshTokenHash,
		CreatedAt:        m.CreatedAt,
	}
}

func (s *Store) CreateAccount(ctx context.Context, a domain.NewAccount) (domain.Account, error) {
	row := models.Account{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return domain.Account{}, apperr.Conflict("user with email or username already exists")
		}
		return domain.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return toAccount(row), nil
}

func (s *Store) FindAccountByID(ctx context.Context, id uint) (domain.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Account{}, lookupErr(err, "account")
	}
	return toAccount(row), nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return domain.Account{}, lookupErr(err, "account")
	}
	return toAccount(row), nil
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		return domain.Account{}, lookupErr(err, "user "+username)
	}
	return toAccount(row), nil
}

// FindAccountsByIDs returns the accounts in the order of ids, skipping ids
// that no longer exist.
func (s *Store) FindAccountsByIDs(ctx context.Context, ids []uint) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Account
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	byID := make(map[uint]models.Account, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]domain.Account, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, toAccount(r))
		}
	}
	return out, nil
}

func (s *Store) SearchAccounts(ctx context.Context, fragment string, limit int) ([]domain.AccountSummary, error) {
	var out []domain.AccountSummary
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Select("id, username").
		Where("LOWER(username) LIKE ?", containsFold(fragment)).
		Order("username").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}
	return out, nil
}

// SetRefreshTokenHash overwrites the stored hash unconditionally. An empty
// hash signs the account out.
func (s *Store) SetRefreshTokenHash(ctx context.Context, accountID uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("refresh_token_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

// SwapRefreshTokenHash replaces oldHash with newHash only if oldHash is still
// the stored value. It reports whether the swap happened.
func (s *Store) SwapRefreshTokenHash(ctx context.Context, accountID uint, oldHash, newHash string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND refresh_token_hash = ?", accountID, oldHash).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, accountID uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (s *Store) UpdateUsername(ctx context.Context, accountID uint, username string) (domain.Account, error) {
	return s.updateAccountColumn(ctx, accountID, "username", username)
}

func (s *Store) UpdateEmail(ctx context.Context, accountID uint, email string) (domain.Account, error) {
	return s.updateAccountColumn(ctx, accountID, "email", email)
}

func (s *Store) updateAccountColumn(ctx context.Context, accountID uint, column, value string) (domain.Account, error) {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update(column, value)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return domain.Account{}, apperr.Conflict(column + " is already taken")
		}
		return domain.Account{}, fmt.Errorf("failed to update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Account{}, apperr.NotFound("account not found")
	}
	return s.FindAccountByID(ctx, accountID)
}

// AppendStoryHistory adds storyID to the account history once.
func (s *Store) AppendStoryHistory(ctx context.Context, accountID, storyID uint) error {
	row := models.StoryHistory{AccountID: accountID, StoryID: storyID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to append story history: %w", err)
	}
	return nil
}

// StoryHistory lists history entries whose story still exists and prunes
// the ones that point at deleted stories.
func (s *Store) StoryHistory(ctx context.Context, accountID uint) ([]domain.StorySummary, error) {
	type historyRow struct {
		StoryID uint
		Title   *string
	}
	var rows []historyRow
	err := s.db.WithContext(ctx).Table("story_histories").
		Select("story_histories.story_id, stories.title").
		Joins("LEFT JOIN stories ON stories.id = story_histories.story_id").
		Where("story_histories.account_id = ?", accountID).
		Order("story_histories.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load story history: %w", err)
	}

	out := make([]domain.StorySummary, 0, len(rows))
	var stale []uint
	for _, r := range rows {
		if r.Title == nil {
			stale = append(stale, r.StoryID)
			continue
		}
		out = append(out, domain.StorySummary{ID: r.StoryID, Title: *r.Title})
	}

	if len(stale) > 0 {
		err := s.db.WithContext(ctx).
			Where("account_id = ? AND story_id IN ?", accountID, stale).
			Delete(&models.StoryHistory{}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to prune story history: %w", err)
		}
	}
	return out, nil
}
