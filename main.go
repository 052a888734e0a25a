package main

import (
	"log"

	api "mailiq-backend/cmd/api"
	authdomain "mailiq-backend/internal/auth/domain"
	authRepo "mailiq-backend/internal/auth/repository"
	authUsecase "mailiq-backend/internal/auth/usecase"
	emaildomain "mailiq-backend/internal/email/domain"
	emailRepo "mailiq-backend/internal/email/repository"
	emailUsecase "mailiq-backend/internal/email/usecase"
	"mailiq-backend/pkg/config"
	"mailiq-backend/pkg/database"
	"mailiq-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &emaildomain.Email{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(db)
	emailRepository := emailRepo.NewEmailRepository(db)

	// Initialize Gmail provider
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize use cases
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, cfg)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(emailRepository, userRepository, gmailService)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, emailUsecaseInstance, cfg)

	log.Printf("Server is running on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
