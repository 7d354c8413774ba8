package main

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	telegramBot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"powerschoolBot/internal/portal"
)

const (
	sessionCacheSize = 512
	sessionCacheTTL  = 15 * time.Minute
)

type bot struct {
	portalService *portal.Service

	// sessions remembers the portal session of each chat so /refresh can
	// re-fetch grades without asking for credentials again.
	sessions *expirable.LRU[int64, *portal.Session]
}

func newBot(portalURL string) *bot {
	return &bot{
		portalService: portal.NewService(portalURL),
		sessions:      expirable.NewLRU[int64, *portal.Session](sessionCacheSize, nil, sessionCacheTTL),
	}
}

func (_ *bot) matchGetResults(update *models.Update) bool {
	if update.Message == nil {
		return false
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return false
	}

	textLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(textLines) != 2 {
		return false
	}

	return true
}

func (r *bot) getResultsHandler(ctx context.Context, b *telegramBot.Bot, update *models.Update) {
	textLines := strings.Split(strings.ReplaceAll(strings.TrimSpace(update.Message.Text), "\r\n", "\n"), "\n")

	username := strings.TrimSpace(textLines[0])
	if username == "" {
		_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          update.Message.Chat.ID,
			Text:            "The first line of your message should be your PowerSchool username. Check it and send again.",
			ReplyParameters: replyParametersTo(update.Message),
		})

		if err != nil {
			log.Print(err)
		}

		return
	}

	password := strings.TrimSpace(textLines[1])
	if password == "" {
		_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          update.Message.Chat.ID,
			Text:            "The second line should be your password. Make sure it is not just spaces and send again.",
			ReplyParameters: replyParametersTo(update.Message),
		})

		if err != nil {
			log.Print(err)
		}

		return
	}

	_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
		ChatID:          update.Message.Chat.ID,
		Text:            "One moment, signing in...",
		ReplyParameters: replyParametersTo(update.Message),
	})
	if err != nil {
		log.Print(err)
	}

	var session *portal.Session
	session, err = r.portalService.Login(ctx, username, password)
	if err != nil {
		log.Print(err)

		if errors.Is(err, portal.ErrInvalidCredentials) {
			_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
				ChatID:          update.Message.Chat.ID,
				Text:            "The portal did not accept those credentials. Remember: username on the first line, password on the second.",
				ReplyParameters: replyParametersTo(update.Message),
			})
		} else {
			_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
				ChatID:          update.Message.Chat.ID,
				Text:            "Sorry, something went wrong while signing in. Please try again in a bit.",
				ReplyParameters: replyParametersTo(update.Message),
			})
		}

		if err != nil {
			log.Print(err)
		}

		return
	}

	r.sessions.Add(update.Message.Chat.ID, session)

	r.fetchAndSend(ctx, b, update.Message, session)
}

func (r *bot) refreshHandler(ctx context.Context, b *telegramBot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	session, ok := r.sessions.Get(update.Message.Chat.ID)
	if !ok {
		_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          update.Message.Chat.ID,
			Text:            "Your session expired. Send your username and password again (two lines) and I will fetch fresh grades.",
			ReplyParameters: replyParametersTo(update.Message),
		})
		if err != nil {
			log.Print(err)
		}

		return
	}

	r.fetchAndSend(ctx, b, update.Message, session)
}

func (r *bot) fetchAndSend(ctx context.Context, b *telegramBot.Bot, message *models.Message, session *portal.Session) {
	info, err := r.portalService.FetchStudentInfo(ctx, session)
	if err != nil {
		log.Print(err)

		r.sessions.Remove(message.Chat.ID)

		if errors.Is(err, portal.ErrMalformedPayload) {
			_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
				ChatID:          message.Chat.ID,
				Text:            "The data that came back from the portal is not in a shape this bot understands. The portal may have changed.",
				ReplyParameters: replyParametersTo(message),
			})
		} else {
			_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
				ChatID:          message.Chat.ID,
				Text:            "Sorry, fetching the grades failed. Send your credentials again and I will retry.",
				ReplyParameters: replyParametersTo(message),
			})
		}

		if err != nil {
			log.Print(err)
		}

		return
	}

	var formatted *string
	formatted, err = portal.FormatStudentInfo(info)
	if err != nil {
		log.Print(err)

		_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          message.Chat.ID,
			Text:            "Sorry, something went wrong while putting the report together.",
			ReplyParameters: replyParametersTo(message),
		})

		if err != nil {
			log.Print(err)
		}

		return
	}

	_, err = b.SendMessage(ctx, &telegramBot.SendMessageParams{
		ChatID:          message.Chat.ID,
		Text:            *formatted + "\nSend /refresh to fetch fresh grades.",
		ReplyParameters: replyParametersTo(message),
	})
	if err != nil {
		log.Print(err)
	}
}

func (_ *bot) startHandler(ctx context.Context, b *telegramBot.Bot, update *models.Update) {
	if update.Message != nil {
		_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          update.Message.Chat.ID,
			Text:            "Hi! Send a message with two lines, your PowerSchool username on the first and your password on the second, and I will fetch the grade report.",
			ReplyParameters: replyParametersTo(update.Message),
		})
		if err != nil {
			log.Print(err)
		}
	}
}

func (_ *bot) defaultHandler(ctx context.Context, b *telegramBot.Bot, update *models.Update) {
	if update.Message != nil {
		_, err := b.SendMessage(ctx, &telegramBot.SendMessageParams{
			ChatID:          update.Message.Chat.ID,
			Text:            "This bot only understands one thing: a two-line message with your PowerSchool username and password. It will then fetch your grades and send them back.",
			ReplyParameters: replyParametersTo(update.Message),
		})
		if err != nil {
			log.Print(err)
		}
	}
}

func replyParametersTo(message *models.Message) *models.ReplyParameters {
	return &models.ReplyParameters{
		ChatID:    message.Chat.ID,
		MessageID: message.ID,
	}
}
