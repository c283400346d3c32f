package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/config"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close()

	fmt.Printf("✅ Connected to %s store\n", store.Name())
	fmt.Println()

	boards, err := store.LoadBoards(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Println("📋 No boards document saved yet")
	case err != nil:
		log.Fatal("Failed to load boards:", err)
	default:
		ids := make([]string, 0, len(boards))
		for id := range boards {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Printf("📋 Boards (%d):\n", len(ids))
		for _, id := range ids {
			b := boards[id]
			fmt.Printf("  - %s | %s | %d actions\n", id, b.Name, len(b.Actions))
		}
	}
	fmt.Println()

	users, err := store.LoadUsers(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Println("👥 No users document saved yet")
		return
	case err != nil:
		log.Fatal("Failed to load users:", err)
	}

	fmt.Printf("👥 Users (%d):\n", len(users.Users))
	for _, u := range users.Users {
		role := "member"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Printf("  - %s | %s | %s\n", u.ID, u.Username, role)
	}
	fmt.Println()

	ids := make([]string, 0, len(users.BoardAccess))
	for id := range users.BoardAccess {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("🔐 Access entries (%d):\n", len(ids))
	for _, id := range ids {
		entry := users.BoardAccess[id]
		fmt.Printf("  - %s\n", id)
		fmt.Printf("      read:  %s\n", strings.Join(entry.ReadAccess, ", "))
		fmt.Printf("      write: %s\n", strings.Join(entry.WriteAccess, ", "))
	}
}
