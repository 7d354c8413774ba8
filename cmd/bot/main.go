package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"

	telegramBot "github.com/go-telegram/bot"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	portalURL := os.Getenv("POWERSCHOOL_URL")
	if portalURL == "" {
		log.Fatal("POWERSCHOOL_URL is not set")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":2000"
	}

	r := newBot(portalURL)

	opts := []telegramBot.Option{
		telegramBot.WithMessageTextHandler("/start", telegramBot.MatchTypeExact, r.startHandler),
		telegramBot.WithMessageTextHandler("/refresh", telegramBot.MatchTypeExact, r.refreshHandler),
		telegramBot.WithDefaultHandler(r.defaultHandler),
	}

	b, err := telegramBot.New(os.Getenv("TELEGRAM_BOT_TOKEN"), opts...)
	if err != nil {
		log.Fatal(err)
	}

	b.RegisterHandlerMatchFunc(r.matchGetResults, r.getResultsHandler)

	// call methods.SetWebhook if needed

	go b.StartWebhook(ctx)

	log.Print("Starting the bot server...")

	err = http.ListenAndServe(listenAddr, b.WebhookHandler())
	if err != nil {
		log.Fatal(err)
	}
}
