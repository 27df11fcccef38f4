package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailySongRepository defines the ledger, feed and sweep operations on daily songs
type DailySongRepository interface {
	SubmitDailySong(ctx context.Context, song *models.DailySong) error
	GetCurrentSong(ctx context.Context, userID uint, day string) (*models.DailySong, error)
	GetSongsByUserID(ctx context.Context, userID uint, limit int) ([]models.DailySong, error)
	GetAllSongs(ctx context.Context, order models.SortOrder) ([]models.DailySong, error)
	GetFollowedSongs(ctx context.Context, followerID uint, order models.SortOrder) ([]models.DailySong, error)
	DeactivateBefore(ctx context.Context, day string) (int64, error)
}

// PostgresDailySongRepository implements DailySongRepository on top of gorm
type PostgresDailySongRepository struct {
	db *gorm.DB
}

// NewPostgresDailySongRepository creates a new PostgresDailySongRepository
func NewPostgresDailySongRepository(db *gorm.DB) *PostgresDailySongRepository {
	return &PostgresDailySongRepository{db: db}
}

// SubmitDailySong makes song the single current post of its author.
//
// The author's account row is locked first, so concurrent submissions by the
// same account are serialized and the last one to commit stays current. Every
// previously current song of the author, whatever its date, is deactivated
// before the insert.
func (r *PostgresDailySongRepository) SubmitDailySong(ctx context.Context, song *models.DailySong) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&author, song.UserID).Error; err != nil {
			return fmt.Errorf("lock author %d: %w", song.UserID, err)
		}

		if err := tx.Model(&models.DailySong{}).
			Where("user_id = ? AND is_current = ?", song.UserID, true).
			Update("is_current", false).Error; err != nil {
			return fmt.Errorf("deactivate current song: %w", err)
		}

		song.ID = 0
		song.IsCurrent = true
		if err := tx.Omit(clause.Associations).Create(song).Error; err != nil {
			return fmt.Errorf("insert daily song: %w", err)
		}
		return nil
	})
}

// GetCurrentSong returns the author's current song for day, or gorm.ErrRecordNotFound.
func (r *PostgresDailySongRepository) GetCurrentSong(ctx context.Context, userID uint, day string) (*models.DailySong, error) {
	var song models.DailySong
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date_posted = ? AND is_current = ?", userID, day, true).
		First(&song).Error
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// GetSongsByUserID returns an author's songs, newest first. A limit <= 0 returns all of them.
func (r *PostgresDailySongRepository) GetSongsByUserID(ctx context.Context, userID uint, limit int) ([]models.DailySong, error) {
	var songs []models.DailySong
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(orderByDate(models.SortDesc))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

// GetAllSongs returns every song with its author, ordered by date then id.
func (r *PostgresDailySongRepository) GetAllSongs(ctx context.Context, order models.SortOrder) ([]models.DailySong, error) {
	var songs []models.DailySong
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order(orderByDate(order)).
		Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

// GetFollowedSongs returns the songs of every account followerID follows.
func (r *PostgresDailySongRepository) GetFollowedSongs(ctx context.Context, followerID uint, order models.SortOrder) ([]models.DailySong, error) {
	var songs []models.DailySong
	db := r.db.WithContext(ctx)
	if err := db.
		Preload("User").
		Where("user_id IN (?)",
			db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", followerID),
		).
		Order(orderByDate(order)).
		Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

// DeactivateBefore clears the current flag of every song dated strictly before day.
// It returns the number of rows changed; a second run on the same day changes none.
func (r *PostgresDailySongRepository) DeactivateBefore(ctx context.Context, day string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DailySong{}).
		Where("date_posted < ? AND is_current = ?", day, true).
		Update("is_current", false)
	if res.Error != nil {
		return 0, fmt.Errorf("deactivate songs before %s: %w", day, res.Error)
	}
	return res.RowsAffected, nil
}

func orderByDate(order models.SortOrder) clause.OrderBy {
	desc := order != models.SortAsc
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "date_posted"}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
