package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	Session *discordgo.Session
	log     *zap.Logger
}

func New(cfg *Config, log *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	return &Bot{
		Session: session,
		log:     log.Named("discord"),
	}, nil
}

func (b *Bot) Start() error {
	// Message content is needed for prefix commands; voice states to find the caller.
	b.Session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	b.log.Info("Bot is now running")
	return nil
}

func (b *Bot) Stop() error {
	return b.Session.Close()
}
