package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/config"
	"github.com/freetravelapp/freetravel-server/internal/database"
	"github.com/freetravelapp/freetravel-server/internal/handler"
	"github.com/freetravelapp/freetravel-server/internal/queue"
	"github.com/freetravelapp/freetravel-server/internal/repository"
	"github.com/freetravelapp/freetravel-server/internal/router"
	"github.com/freetravelapp/freetravel-server/internal/utils"
)

func main() {
	// .env is a developer convenience; in production the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	routes := repository.NewRouteRepo(db)
	requests := repository.NewRequestRepo(db)
	notifications := repository.NewNotificationRepo(db)
	conversations := repository.NewConversationRepo(db)
	reports := repository.NewReportRepo(db)

	mailer := utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, mailer),
		Users:         handler.NewUserHandler(users),
		Routes:        handler.NewRouteHandler(routes, requests, notifications),
		Requests:      handler.NewRequestHandler(requests, routes, users, notifications, conversations),
		Notifications: handler.NewNotificationHandler(notifications, users),
		Conversations: handler.NewConversationHandler(conversations, routes, users),
		Reports:       handler.NewReportHandler(reports, users, mailer),
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, h, cfg.JWTSecret, rdb)

	// The trip event consumer runs for the lifetime of the process and
	// reconnects on its own; a missing broker only disables the audit log.
	go func() {
		if err := queue.StartTripConsumer(); err != nil {
			log.Printf("queue consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
