package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/config"
	"github.com/shinyyama/social-market/internal/db"
	"github.com/shinyyama/social-market/internal/logger"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoPassword = "marketdemo1"

type seedItem struct {
	Name        string
	Description string
	PriceCents  int64
	Category    string
}

type seedPost struct {
	Title    string
	Subtitle string
	Content  string
}

func main() {
	_ = godotenv.Load()
	log := logger.New(os.Getenv("APP_ENV"), "info")
	if err := run(context.Background(), log); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Info().Msg("items already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	items := buildSeedItems()
	posts := buildSeedPosts()
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sellers, err := seedUsers(ctx, tx, []string{"alice", "bob", "carol"})
		if err != nil {
			return err
		}
		itemRepo := repository.NewItemRepository(tx)
		for idx, it := range items {
			cat, err := itemRepo.FindOrCreateCategory(ctx, it.Category)
			if err != nil {
				return fmt.Errorf("category %q: %w", it.Category, err)
			}
			imageURL := picsumURL(it.Category, idx+1)
			item := &model.Item{
				SellerID:    sellers[idx%len(sellers)].ID,
				CategoryID:  &cat.ID,
				Name:        it.Name,
				Description: it.Description,
				PriceCents:  it.PriceCents,
				Quantity:    1,
				Condition:   "used",
				ImageURL:    &imageURL,
			}
			if err := itemRepo.Create(ctx, item); err != nil {
				return fmt.Errorf("insert item %q: %w", it.Name, err)
			}
		}

		postRepo := repository.NewPostRepository(tx)
		for idx, p := range posts {
			post := &model.Post{
				AuthorID: sellers[idx%len(sellers)].ID,
				Title:    p.Title,
				Subtitle: p.Subtitle,
				Content:  p.Content,
				Status:   model.PostStatusPublished,
			}
			if err := postRepo.Create(ctx, post); err != nil {
				return fmt.Errorf("insert post %q: %w", p.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("items", len(items)).Int("posts", len(posts)).Msg("seeded")
	return nil
}

// seedUsers get-or-creates the demo accounts, all sharing demoPassword.
func seedUsers(ctx context.Context, tx *gorm.DB, names []string) ([]*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	repo := repository.NewUserRepository(tx)
	users := make([]*model.User, 0, len(names))
	for _, name := range names {
		u, err := repo.FindByUsername(ctx, name)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = &model.User{Username: name, PasswordHash: string(hash)}
			err = repo.Create(ctx, u)
		}
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", name, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func buildSeedItems() []seedItem {
	type cat struct {
		Name   string
		Price  int64
		Titles []string
	}
	categories := []cat{
		{Name: "Fashion", Price: 4200, Titles: []string{"Relaxed fit hoodie", "Organic cotton T-shirt", "Classic denim jeans", "Light nylon parka"}},
		{Name: "Electronics", Price: 24000, Titles: []string{"14-inch ultrabook", "64GB tablet", "Wireless mechanical keyboard", "Silent wireless mouse"}},
		{Name: "Home", Price: 7800, Titles: []string{"Solid wood side table", "Cotton rug 140x200", "Stacking shelf", "Faux pothos plant"}},
		{Name: "Books", Price: 1400, Titles: []string{"Sci-fi anthology", "Travel magazine", "Business classics bundle", "Comic omnibus"}},
		{Name: "Sports", Price: 6200, Titles: []string{"Running shoes", "Quick-dry shirt", "Training mat", "Steel water bottle"}},
		{Name: "Outdoor", Price: 9200, Titles: []string{"Compact camp chair", "Down blanket", "Titanium mug set", "28L backpack"}},
		{Name: "Music", Price: 7600, Titles: []string{"Wireless earbuds", "Audio interface", "Condenser microphone", "Studio headphones"}},
		{Name: "Other", Price: 3000, Titles: []string{"Cable organizer", "Travel pouch", "Plug adapter", "Noise reducing earplugs"}},
	}

	var items []seedItem
	for _, c := range categories {
		for i, t := range c.Titles {
			items = append(items, seedItem{
				Name:        t,
				Description: fmt.Sprintf("%s (%s). Stored at home, barely used. No returns.", t, strings.ToLower(c.Name)),
				PriceCents:  c.Price + int64((i+1)*100),
				Category:    c.Name,
			})
		}
	}
	return items
}

func buildSeedPosts() []seedPost {
	return []seedPost{
		{Title: "Welcome to the market", Subtitle: "House rules", Content: "Be kind, describe items honestly, and reply to buyers quickly."},
		{Title: "Pricing tips", Subtitle: "What sells", Content: "Check similar listings first. Round prices sell faster than odd ones."},
		{Title: "Shipping checklist", Content: "Wrap electronics twice and always keep the receipt."},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Item{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func picsumURL(category string, itemIndex int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", strings.ToLower(category), itemIndex)
}
