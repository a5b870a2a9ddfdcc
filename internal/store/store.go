// Package store is the durable side of the chat server: users, rooms,
// room membership and message history live here. Live presence does not.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/Banter/internal/domain"
)

type Store struct {
	db *gorm.DB
}

// Open opens the sqlite database at path and migrates the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&domain.User{}, &domain.Room{}, &domain.RoomMember{}, &domain.Message{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// GetOrCreateUser implements the login flow: first sight of a username
// creates the user.
func (s *Store) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = domain.User{Username: username}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	log.Info().Str("module", "store").Str("username", username).Msg("created user")
	return &user, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := s.db.WithContext(ctx).Order("id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomByID resolves a room id; unknown ids map to domain.ErrUnknownRoom.
func (s *Store) RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var room domain.Room
	err := s.db.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRoom, id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// EnsureMember records durable membership on first entry; repeats are
// no-ops.
func (s *Store) EnsureMember(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("user_id = ? AND room_id = ?", userID, roomID).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&domain.RoomMember{UserID: userID, RoomID: roomID}).Error
}

// InsertMessage durably stores a message, assigning id and server
// timestamp. Callers must not broadcast until this returns nil.
func (s *Store) InsertMessage(ctx context.Context, roomID domain.RoomID, userID domain.UserID, ct domain.ContentType, content string) (*domain.Message, error) {
	msg := domain.Message{
		RoomID:      roomID,
		UserID:      userID,
		ContentType: ct,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageView is the history row shape the API returns.
type MessageView struct {
	ID          uint               `json:"id"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
	Timestamp   string             `json:"timestamp"`
	Username    string             `json:"username"`
}

// HistoryPage is one page of room history, newest first.
type HistoryPage struct {
	Messages []MessageView `json:"messages"`
	HasNext  bool          `json:"has_next"`
	HasPrev  bool          `json:"has_prev"`
}

// RecentMessages pages through a room's history newest-first. Pages are
// 1-based; an out-of-range page returns an empty page, not an error.
func (s *Store) RecentMessages(ctx context.Context, roomID domain.RoomID, page, pageSize int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&domain.Message{}).
		Where("room_id = ?", roomID).Count(&total).Error
	if err != nil {
		return nil, err
	}

	type row struct {
		ID          uint
		Content     string
		ContentType domain.ContentType
		CreatedAt   time.Time
		Username    string
	}
	var rows []row
	err = s.db.WithContext(ctx).Model(&domain.Message{}).
		Select("messages.id, messages.content, messages.content_type, messages.created_at, users.username").
		Joins("JOIN users ON users.id = messages.user_id").
		Where("messages.room_id = ?", roomID).
		Order("messages.created_at DESC, messages.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &HistoryPage{
		Messages: make([]MessageView, 0, len(rows)),
		HasNext:  int64(page*pageSize) < total,
		HasPrev:  page > 1 && total > 0,
	}
	for _, r := range rows {
		out.Messages = append(out.Messages, MessageView{
			ID:          r.ID,
			Content:     r.Content,
			ContentType: r.ContentType,
			Timestamp:   r.CreatedAt.Format(time.RFC3339),
			Username:    r.Username,
		})
	}
	return out, nil
}

// SeedRooms creates any missing rooms from the configured name list.
// Rooms are created out-of-band of the core, here at startup.
func (s *Store) SeedRooms(ctx context.Context, names []string) error {
	for _, name := range names {
		var count int64
		err := s.db.WithContext(ctx).Model(&domain.Room{}).
			Where("name = ?", name).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Create(&domain.Room{Name: name}).Error; err != nil {
			return err
		}
		log.Info().Str("module", "store").Str("room", name).Msg("seeded room")
	}
	return nil
}
