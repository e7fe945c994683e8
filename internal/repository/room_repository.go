package repository

import (
	"context"

	"github.com/shinyyama/social-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository interface {
	FindOrCreate(ctx context.Context, name string, creatorID uint64, isPrivate bool) (*model.Room, error)
	AddParticipants(ctx context.Context, roomID uint64, userIDs ...uint64) error
	FindByName(ctx context.Context, name string) (*model.Room, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Room, error)
	IsParticipant(ctx context.Context, roomID, userID uint64) (bool, error)
	CreateMessage(ctx context.Context, msg *model.Message, link *model.ItemMessage) error
	FindMessage(ctx context.Context, id uint64) (*model.Message, error)
	ListMessages(ctx context.Context, roomID uint64, limit int) ([]model.Message, error)
	UpdateMessageBody(ctx context.Context, id uint64, body string) error
	FindItemMessage(ctx context.Context, id uint64) (*model.ItemMessage, error)
	ListItemMessagesByUser(ctx context.Context, userID uint64) ([]model.ItemMessage, error)
	DeleteItemMessage(ctx context.Context, id uint64) error
	CountItemMessages(ctx context.Context, roomID uint64) (int64, error)
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// FindOrCreate inserts the room unless the name is taken and returns the stored row.
// Concurrent callers with the same name all observe the single winning insert.
func (r *roomRepository) FindOrCreate(ctx context.Context, name string, creatorID uint64, isPrivate bool) (*model.Room, error) {
	candidate := model.Room{Name: name, CreatorID: creatorID, IsPrivate: isPrivate}
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&candidate).Error; err != nil {
		return nil, err
	}
	return r.FindByName(ctx, name)
}

func (r *roomRepository) AddParticipants(ctx context.Context, roomID uint64, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]model.RoomParticipant, 0, len(userIDs))
	seen := make(map[uint64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, model.RoomParticipant{RoomID: roomID, UserID: id})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *roomRepository) FindByName(ctx context.Context, name string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) ListByUser(ctx context.Context, userID uint64) ([]model.Room, error) {
	var rooms []model.Room
	sub := r.db.Model(&model.RoomParticipant{}).Select("room_id").Where("user_id = ?", userID)
	if err := r.db.WithContext(ctx).
		Where("creator_id = ? OR id IN (?)", userID, sub).
		Order("id DESC").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) IsParticipant(ctx context.Context, roomID, userID uint64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND creator_id = ?", roomID, userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	if cnt > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&model.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// CreateMessage stores msg and, when link is set, its ItemMessage in one transaction.
func (r *roomRepository) CreateMessage(ctx context.Context, msg *model.Message, link *model.ItemMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		if link == nil {
			return nil
		}
		link.RoomID = msg.RoomID
		link.MessageID = msg.ID
		return tx.Omit(clause.Associations).Create(link).Error
	})
}

func (r *roomRepository) FindMessage(ctx context.Context, id uint64) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns up to limit of the newest messages in chronological order.
func (r *roomRepository) ListMessages(ctx context.Context, roomID uint64, limit int) ([]model.Message, error) {
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *roomRepository) UpdateMessageBody(ctx context.Context, id uint64, body string) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Update("body", body).Error
}

func (r *roomRepository) FindItemMessage(ctx context.Context, id uint64) (*model.ItemMessage, error) {
	var im model.ItemMessage
	if err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Message").
		Preload("Item").
		Preload("Sender").
		Preload("Receiver").
		First(&im, id).Error; err != nil {
		return nil, err
	}
	return &im, nil
}

func (r *roomRepository) ListItemMessagesByUser(ctx context.Context, userID uint64) ([]model.ItemMessage, error) {
	var list []model.ItemMessage
	if err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Message").
		Preload("Item").
		Preload("Sender").
		Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *roomRepository) DeleteItemMessage(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&model.ItemMessage{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *roomRepository) CountItemMessages(ctx context.Context, roomID uint64) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ItemMessage{}).
		Where("room_id = ?", roomID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
