package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"social-service/internal/config"
	"social-service/internal/database"
	"social-service/internal/models"
	"social-service/internal/repositories/postgres"
	"social-service/internal/services"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	config.NewLogger(cfg.Log)

	slog.Info("Starting database seeding...")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}

	ctx := context.Background()
	userRepo := postgres.NewUserRepository(db)
	conversationRepo := postgres.NewConversationRepository(db)
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	seedUsers := []struct {
		username string
		email    string
		password string
	}{
		{"alice", "alice@social.local", "123456"},
		{"bob", "bob@social.local", "123456"},
		{"charlie", "charlie@social.local", "123456"},
	}

	var users []*models.User
	for _, data := range seedUsers {
		user, err := userRepo.FindByEmail(ctx, data.email)
		if err != nil {
			hashed, err := bcrypt.GenerateFromPassword([]byte(data.password), bcrypt.DefaultCost)
			if err != nil {
				log.Fatal("Failed to hash password:", err)
			}
			user = &models.User{Username: data.username, Email: data.email, Password: string(hashed)}
			if err := userRepo.Create(ctx, user); err != nil {
				log.Fatalf("Failed to create user %s: %v", data.username, err)
			}
			slog.Info("Created user", "id", user.ID, "username", user.Username)
		}
		users = append(users, user)
	}

	group := &models.Conversation{Name: "seed group", Type: models.ConversationTypeGroup}
	if err := conversationRepo.Create(ctx, group); err != nil {
		log.Fatal("Failed to create conversation:", err)
	}
	for _, user := range users {
		if err := conversationRepo.AddMember(ctx, group.ID, user.ID); err != nil {
			slog.Warn("Failed to add member", "conversationID", group.ID, "userID", user.ID, "error", err)
		}
	}
	slog.Info("Created conversation", "id", group.ID, "members", len(users))

	for _, user := range users {
		token, err := authService.IssueToken(user.ID)
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Printf("%s (id %d): %s\n", user.Username, user.ID, token)
	}

	slog.Info("Database seeding completed successfully!")
}
