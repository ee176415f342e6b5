package music

import (
	"context"

	"go.uber.org/zap"
)

// Message is a chat message seen in a guild text channel.
type Message struct {
	GuildID   string
	ChannelID string
	Content   string
	Member    Member
}

// Component is a button click or select-menu choice.
type Component struct {
	GuildID   string
	ChannelID string
	CustomID  string
	Values    []string
	Member    Member
}

// Service handles one gateway event at a time: read config, normalize,
// authorize, dispatch.
type Service struct {
	store      ConfigStore
	dispatcher *Dispatcher
	log        *zap.Logger
}

func NewService(store ConfigStore, dispatcher *Dispatcher, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		log:        log.Named("music"),
	}
}

// HandleMessage returns false when the message is not addressed to the bot.
func (s *Service) HandleMessage(ctx context.Context, m Message) (resp Response, handled bool) {
	defer s.contain(m.GuildID, &resp, &handled)

	cfg := s.store.Get(ctx, m.GuildID)
	action, ok := ParseText(m.Content, m.ChannelID, cfg)
	if !ok {
		return Response{}, false
	}

	resp = s.dispatcher.Dispatch(ctx, Call{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Member:    m.Member,
		Action:    action,
		Config:    cfg,
	}, Authorize(action, m.Member, cfg))
	s.logOutcome(m.GuildID, m.Member.UserID, action, resp)
	return resp, true
}

// HandleComponent returns false for component ids the bot does not own.
func (s *Service) HandleComponent(ctx context.Context, c Component) (resp Response, handled bool) {
	defer s.contain(c.GuildID, &resp, &handled)

	action, ok := ParseComponent(c.CustomID, c.Values)
	if !ok {
		return Response{}, false
	}

	cfg := s.store.Get(ctx, c.GuildID)
	resp = s.dispatcher.Dispatch(ctx, Call{
		GuildID:       c.GuildID,
		ChannelID:     c.ChannelID,
		Member:        c.Member,
		Action:        action,
		Config:        cfg,
		FromComponent: true,
	}, Authorize(action, c.Member, cfg))
	s.logOutcome(c.GuildID, c.Member.UserID, action, resp)
	return resp, true
}

func (s *Service) contain(guildID string, resp *Response, handled *bool) {
	if r := recover(); r != nil {
		s.log.Error("Recovered from panic in event handler",
			zap.String("guild", guildID),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		*resp, *handled = Failure(), true
	}
}

func (s *Service) logOutcome(guildID, userID string, a Action, resp Response) {
	s.log.Debug("Handled action",
		zap.String("guild", guildID),
		zap.String("user", userID),
		zap.String("action", a.Name()),
		zap.Stringer("outcome", resp.Outcome),
	)
}
