package repository

import (
	"context"
	"strings"

	"github.com/shinyyama/social-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id uint64) (*model.Item, error)
	List(ctx context.Context, limit, offset int) ([]model.Item, int64, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]model.Item, error)
	SearchByName(ctx context.Context, query string, limit int) ([]model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uint64) error
	FindOrCreateCategory(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *itemRepository) FindByID(ctx context.Context, id uint64) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Seller").
		First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, limit, offset int) ([]model.Item, int64, error) {
	var (
		items []model.Item
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Item{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("seller_id = ?", sellerID).
		Order("id desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SearchByName matches query as a case-insensitive substring of the item name.
func (r *itemRepository) SearchByName(ctx context.Context, query string, limit int) ([]model.Item, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var items []model.Item
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("LOWER(name) LIKE ? ESCAPE '!'", pattern).
		Order("id desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *itemRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepository) FindOrCreateCategory(ctx context.Context, name string) (*model.Category, error) {
	cat := model.Category{Name: name}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cat).Error; err != nil {
		return nil, err
	}
	var found model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&found).Error; err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *itemRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := r.db.WithContext(ctx).Order("name asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
