package models

import (
	"strings"
	"time"
)

// DateLayout is the storage format of DailySong.DatePosted.
const DateLayout = "2006-01-02"

// DailySong is one entry of the daily post ledger.
//
// At most one row per user has IsCurrent set; the partial unique index
// idx_daily_songs_one_current enforces it in storage.
type DailySong struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index;uniqueIndex:idx_daily_songs_one_current,where:is_current = true"`
	Title      string    `json:"title" gorm:"size:100;not null"`
	Artist     string    `json:"artist" gorm:"size:100;not null"`
	Genre      string    `json:"genre" gorm:"size:50;not null"`
	MusicURL   string    `json:"music_url" gorm:"size:500;not null"`
	DatePosted string    `json:"date_posted" gorm:"size:10;not null;index"`
	IsCurrent  bool      `json:"is_current" gorm:"not null;default:false;index"`
	CreatedAt  time.Time `json:"created_at"`
	User       User      `json:"user" gorm:"foreignKey:UserID"`
}

// Genres lists the accepted genre keys in display order.
var Genres = []Genre{
	{Key: "pop", Label: "J-Pop"},
	{Key: "rock", Label: "Rock"},
	{Key: "jazz", Label: "Jazz"},
	{Key: "classical", Label: "Classical"},
	{Key: "hiphop", Label: "Hip-Hop / Rap"},
	{Key: "electronic", Label: "Electronic"},
	{Key: "other", Label: "Other"},
}

type Genre struct {
	Key   string
	Label string
}

// DailySongRequest is the "song of the day" form.
type DailySongRequest struct {
	Title    string `form:"title" validate:"required,max=100"`
	Artist   string `form:"artist" validate:"required,max=100"`
	Genre    string `form:"genre" validate:"required,oneof=pop rock jazz classical hiphop electronic other"`
	MusicURL string `form:"music_url" validate:"required,url,max=500"`
}

// SortOrder is the date ordering of a feed.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder maps a query value to a SortOrder, defaulting to descending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}
