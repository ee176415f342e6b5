package commands

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"harmony/internal/music"
)

// handlerTimeout bounds one event, including the search and voice join of a play.
const handlerTimeout = 20 * time.Second

const msgSlowDown = "⏳ You're sending commands too fast. Please wait a moment."

// Router feeds gateway events into the music service and delivers its responses.
type Router struct {
	service *music.Service
	store   music.ConfigStore
	limiter *userLimiter
	prefix  string
	log     *zap.Logger
}

// Options tune the router.
type Options struct {
	// DefaultPrefix is advertised in the bot presence.
	DefaultPrefix string
	// CommandRate and CommandBurst size each user's token bucket.
	CommandRate  float64
	CommandBurst int
}

func NewRouter(service *music.Service, store music.ConfigStore, opts Options, log *zap.Logger) *Router {
	return &Router{
		service: service,
		store:   store,
		limiter: newUserLimiter(opts.CommandRate, opts.CommandBurst),
		prefix:  opts.DefaultPrefix,
		log:     log.Named("commands"),
	}
}

// Register adds the router's handlers to a session.
func (r *Router) Register(s *discordgo.Session) {
	s.AddHandler(r.OnReady)
	s.AddHandler(r.OnMessageCreate)
	s.AddHandler(r.OnInteractionCreate)
}

func (r *Router) OnReady(s *discordgo.Session, e *discordgo.Ready) {
	r.log.Info("Logged in",
		zap.String("user", e.User.Username),
		zap.Int("guilds", len(e.Guilds)),
	)
	if err := s.UpdateListeningStatus("music | " + r.prefix + "help"); err != nil {
		r.log.Warn("Failed to set presence", zap.Error(err))
	}
}

// OnMessageCreate handles prefixed commands and music-channel requests.
func (r *Router) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	cfg := r.store.Get(ctx, m.GuildID)
	if _, ok := music.ParseText(m.Content, m.ChannelID, cfg); !ok {
		return
	}
	if !r.limiter.allow(m.Author.ID) {
		r.log.Debug("Rate limited",
			zap.String("guild", m.GuildID),
			zap.String("user", m.Author.ID),
		)
		r.sendMessage(s, m.Message, music.Response{Content: msgSlowDown})
		return
	}

	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}
	resp, handled := r.service.HandleMessage(ctx, music.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Member:    r.member(s, m.GuildID, m.Author, roles, messagePermissions(s, m.Author.ID, m.ChannelID, r.log)),
	})
	if !handled {
		return
	}
	r.sendMessage(s, m.Message, resp)
}

// OnInteractionCreate handles button clicks and select-menu choices.
func (r *Router) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	user := i.Member.User
	data := i.MessageComponentData()
	if !r.limiter.allow(user.ID) {
		r.respond(s, i, music.Response{Content: msgSlowDown, Ephemeral: true})
		return
	}

	resp, handled := r.service.HandleComponent(ctx, music.Component{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		CustomID:  data.CustomID,
		Values:    data.Values,
		Member:    r.member(s, i.GuildID, user, i.Member.Roles, i.Member.Permissions),
	})
	if !handled {
		r.log.Debug("Ignored component", zap.String("custom_id", data.CustomID))
		return
	}
	r.respond(s, i, resp)
}
