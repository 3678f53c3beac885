package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/canteen-pos/api/internal/auth"
	"github.com/canteen-pos/api/internal/config"
	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// seedNamespace derives stable IDs so re-running the seed updates rows in
// place instead of duplicating them.
var seedNamespace = uuid.MustParse("6f1c2a4e-9d0b-4c55-8a63-2f7b1e0d9c41")

type seedCategory struct {
	name   string
	screen string
	items  map[string]string
}

var (
	seedScreens = map[string]string{
		"grill":  "Grill",
		"drinks": "Drinks Bar",
	}
	seedCategories = []seedCategory{
		{name: "Mains", screen: "grill", items: map[string]string{
			"Nasi Goreng": "12000",
			"Sate Ayam":   "15000",
			"Mie Goreng":  "11000",
		}},
		{name: "Drinks", screen: "drinks", items: map[string]string{
			"Es Teh":   "4000",
			"Es Jeruk": "5000",
		}},
	}
)

func main() {
	tokens := flag.Bool("tokens", true, "Print development tokens for each role")
	ttl := flag.Duration("ttl", 24*time.Hour, "Lifetime of printed tokens")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction (screens, categories and items or nothing)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)
	if err := seedCatalog(ctx, q); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seed completed successfully")

	if *tokens {
		if err := printTokens(cfg.JWTSecret, *ttl); err != nil {
			log.Fatalf("Failed to issue tokens: %v", err)
		}
	}
}

func seedCatalog(ctx context.Context, q *database.Queries) error {
	for key, name := range seedScreens {
		if _, err := q.UpsertScreen(ctx, database.UpsertScreenParams{ScreenKey: key, Name: name}); err != nil {
			return fmt.Errorf("upsert screen %s: %w", key, err)
		}
		log.Printf("Screen '%s' (%s)", key, name)
	}

	for _, c := range seedCategories {
		category, err := q.UpsertCategory(ctx, database.UpsertCategoryParams{
			ID:   uuid.NewSHA1(seedNamespace, []byte("category/"+c.name)),
			Name: c.name,
		})
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", c.name, err)
		}
		if err := q.AssignCategoryToScreen(ctx, database.AssignCategoryToScreenParams{
			CategoryID: category.ID,
			ScreenKey:  c.screen,
		}); err != nil {
			return fmt.Errorf("assign category %s: %w", c.name, err)
		}

		for name, price := range c.items {
			var numeric pgtype.Numeric
			if err := numeric.Scan(decimal.RequireFromString(price).StringFixed(2)); err != nil {
				return fmt.Errorf("price of %s: %w", name, err)
			}
			item, err := q.UpsertMenuItem(ctx, database.UpsertMenuItemParams{
				ID:         uuid.NewSHA1(seedNamespace, []byte("item/"+name)),
				CategoryID: category.ID,
				Name:       name,
				Price:      numeric,
			})
			if err != nil {
				return fmt.Errorf("upsert menu item %s: %w", name, err)
			}
			log.Printf("Menu item '%s' %s -> %s (ID: %s)", name, price, c.screen, item.ID)
		}
	}
	return nil
}

// printTokens issues one token per role for local testing. Kitchen gets one
// token pinned to each seeded screen.
func printTokens(secret string, ttl time.Duration) error {
	roles := []string{
		enum.UserRoleOwner,
		enum.UserRoleManager,
		enum.UserRoleCashier,
		enum.UserRoleStudent,
		enum.UserRoleSystem,
	}
	for _, role := range roles {
		token, err := auth.GenerateToken(secret, uuid.New(), role, "", ttl)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %s\n", role, token)
	}
	for key := range seedScreens {
		token, err := auth.GenerateToken(secret, uuid.New(), enum.UserRoleKitchen, key, ttl)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %s (screen %s)\n", enum.UserRoleKitchen, token, key)
	}
	return nil
}
