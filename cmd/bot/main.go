package main

import (
	"context"
	"flag"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/bot"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to start service: %v", err)
	}
	defer service.Close()

	chats, err := app.NewChatRegistryFromURL(context.Background(), service.Config.Bot.RedisURL)
	if err != nil {
		logger.Error.Fatalf("Failed to connect chat registry: %v", err)
	}
	defer chats.Close()

	b, err := bot.New(service.Config, service, chats)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	logger.Info.Println("Bot initialized successfully")
	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot error: %v", err)
	}
}
