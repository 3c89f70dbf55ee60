package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"git.skobk.in/skobkin/telegram-relay-bot/dialog"
	"git.skobk.in/skobkin/telegram-relay-bot/relay"
	"git.skobk.in/skobkin/telegram-relay-bot/storage"
)

var (
	ErrGetMe          = errors.New("cannot retrieve api user")
	ErrUpdatesChannel = errors.New("cannot get updates channel")
	ErrHandlerInit    = errors.New("cannot initialize handler")
)

// Update types the bot subscribes to
var allowedUpdates = []string{"message", "channel_post", "edited_message"}

// Authorizer decides who may manage subscriptions
type Authorizer interface {
	IsWhitelisted(userID int64) bool
}

type Bot struct {
	api        *telego.Bot
	storage    *storage.Storage
	dispatcher *relay.Dispatcher
	dialog     *dialog.Dialog
	auth       Authorizer
}

func New(api *telego.Bot, storage *storage.Storage, dispatcher *relay.Dispatcher, dialog *dialog.Dialog, auth Authorizer) *Bot {
	return &Bot{
		api:        api,
		storage:    storage,
		dispatcher: dispatcher,
		dialog:     dialog,
		auth:       auth,
	}
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	botUser, err := b.api.GetMe()
	if err != nil {
		slog.Error("bot: Cannot retrieve api user", "error", err)
		return ErrGetMe
	}

	slog.Info("bot: Running api as",
		"id", botUser.ID,
		"username", botUser.Username,
		"name", botUser.FirstName,
	)

	err = b.api.DeleteWebhook(&telego.DeleteWebhookParams{DropPendingUpdates: true})
	if err != nil {
		slog.Warn("bot: Cannot drop pending updates", "error", err)
	}

	updates, err := b.api.UpdatesViaLongPolling(&telego.GetUpdatesParams{
		AllowedUpdates: allowedUpdates,
	})
	if err != nil {
		slog.Error("bot: Cannot get update channel", "error", err)
		return ErrUpdatesChannel
	}

	bh, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		slog.Error("bot: Cannot initialize bot handler", "error", err)
		b.api.StopLongPolling()
		return ErrHandlerInit
	}

	bh.Use(b.authMiddleware)

	bh.Handle(b.startHandler, th.CommandEqual("start"))
	bh.Handle(b.startHandler, th.CommandEqual("help"))
	bh.Handle(b.addHandler, th.CommandEqual("add"))
	bh.Handle(b.listHandler, th.CommandEqual("list"))
	bh.Handle(b.removeHandler, th.CommandEqual("remove"))
	bh.Handle(b.cancelHandler, th.CommandEqual("cancel"))
	bh.Handle(b.dialogHandler, th.AnyMessage(), isPrivateChat)
	bh.Handle(b.relayHandler, isRelayable)

	go bh.Start()
	slog.Info("bot: Handling updates")

	<-ctx.Done()

	slog.Info("bot: Stopping")
	b.api.StopLongPolling()
	bh.Stop()

	return nil
}

func isPrivateChat(update telego.Update) bool {
	return update.Message != nil && update.Message.Chat.Type == telego.ChatTypePrivate
}
