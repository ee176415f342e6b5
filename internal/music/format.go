package music

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	EmbedColor = 0x3498db
	ErrorColor = 0xe74c3c

	progressSegments = 15
	queuePreview     = 10
)

// FormatTime renders d as m:ss, or h:mm:ss once it reaches an hour.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ProgressBar draws a fixed-width bar with a knob at pos.
func ProgressBar(pos, total time.Duration) string {
	filled := 0
	if total > 0 {
		filled = int(float64(progressSegments)*float64(pos)/float64(total) + 0.5)
	}
	filled = max(0, min(progressSegments, filled))
	return strings.Repeat("▬", filled) + "🔘" + strings.Repeat("▬", progressSegments-filled)
}

func trackLink(t Track) string {
	if t.URL == "" {
		return fmt.Sprintf("**%s**", t.Title)
	}
	return fmt.Sprintf("[%s](%s)", t.Title, t.URL)
}

func requester(t Track) string {
	if t.RequestedBy == "" {
		return "Autoplay"
	}
	return t.RequestedBy
}

func thumbnail(t Track) *discordgo.MessageEmbedThumbnail {
	if t.Thumbnail == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
}

// TrackStartedEmbed is posted when a track begins.
func TrackStartedEmbed(t Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: trackLink(t),
		Color:       EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: FormatTime(t.Duration), Inline: true},
			{Name: "Requested by", Value: requester(t), Inline: true},
		},
		Thumbnail: thumbnail(t),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Use the controls below to manage playback"},
	}
}

// QueueEndedEmbed replaces the last announcement once nothing is left to play.
func QueueEndedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📭 Queue finished",
		Description: "Nothing left to play. Add more with the play command.",
		Color:       EmbedColor,
	}
}

// ErrorEmbed reports a playback failure.
func ErrorEmbed(err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Player Error",
		Description: fmt.Sprintf("An error occurred: %v", err),
		Color:       ErrorColor,
	}
}

func addedEmbed(t Track, username string) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("✅ Added %s to the queue", trackLink(t)),
		Color:       EmbedColor,
	}
	if username != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Requested by " + username}
	}
	return e
}

func nowPlayingEmbed(t Track, volume int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: trackLink(t),
		Color:       EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Progress",
				Value: fmt.Sprintf("%s\n%s / %s", ProgressBar(t.Position, t.Duration), FormatTime(t.Position), FormatTime(t.Duration)),
			},
			{Name: "Requested by", Value: requester(t), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", volume), Inline: true},
		},
		Thumbnail: thumbnail(t),
	}
}

func queueEmbed(current Track, upcoming []Track, total int, length time.Duration) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(upcoming))
	for i, t := range upcoming {
		lines = append(lines, fmt.Sprintf("**%d.** %s (%s)", i+1, trackLink(t), FormatTime(t.Duration)))
	}
	desc := strings.Join(lines, "\n")
	if desc == "" {
		desc = "Nothing queued after the current track."
	} else if total > len(upcoming) {
		desc += fmt.Sprintf("\n...and %d more", total-len(upcoming))
	}

	return &discordgo.MessageEmbed{
		Title:       "📜 Current Queue",
		Description: desc,
		Color:       EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Now Playing", Value: trackLink(current)},
			{Name: "Total Tracks", Value: fmt.Sprintf("%d", total), Inline: true},
			{Name: "Queue Duration", Value: FormatTime(length), Inline: true},
		},
	}
}

func helpEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Harmony - Help Menu",
		Description: fmt.Sprintf("Prefix: `%s`", prefix),
		Color:       EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎶 Music Commands", Value: "`play`, `skip`, `stop`, `pause`, `resume`, `queue`, `nowplaying`, `volume`, `loop`, `shuffle`, `seek`, `leave`"},
			{Name: "⚙️ Configuration", Value: "`setprefix`, `setmusicchannel`, `adddj`, `removedj`"},
			{Name: "ℹ️ Information", Value: "`help`, `invite`, `support`"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Use the menu below for more detailed help"},
	}
}

func helpMenu() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    HelpMenuID,
					Placeholder: "Select a category",
					Options: []discordgo.SelectMenuOption{
						{Label: "Music Commands", Value: "help_music"},
						{Label: "Configuration", Value: "help_config"},
						{Label: "Information", Value: "help_info"},
					},
				},
			},
		},
	}
}

func helpTopicEmbed(topic, prefix string) *discordgo.MessageEmbed {
	var title string
	var lines []string
	switch topic {
	case TopicMusic:
		title = "🎶 Music Commands"
		lines = []string{
			"`play <query>` (alias `p`): search and queue a song",
			"`skip`: skip the current track",
			"`stop`: stop playback and clear the queue",
			"`pause` / `resume`: pause or resume playback",
			"`queue`: show the upcoming tracks",
			"`nowplaying` (alias `np`): show the current track",
			"`volume <0-200>`: change the playback volume",
			"`loop`: toggle repeating the current track",
			"`shuffle`: shuffle the queue",
			"`seek <time>`: jump to a time such as `1:30`, `2m30s` or `90`",
			"`leave`: disconnect from the voice channel",
		}
	case TopicConfig:
		title = "⚙️ Configuration"
		lines = []string{
			"`setprefix <1-3 chars>`: change the command prefix",
			"`setmusicchannel [#channel|off]`: every message there becomes a play request",
			"`adddj <role>`: allow a role to control playback",
			"`removedj <role>`: remove a DJ role",
			"Configuration commands need the Manage Server permission.",
		}
	default:
		title = "ℹ️ Information"
		lines = []string{
			"`help [music|config|info]`: show this menu",
			"`invite`: invite the bot to your server",
			"`support`: join the support server",
		}
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Prefix: %s", prefix)},
	}
}

func inviteEmbed(l Links) *discordgo.MessageEmbed {
	var lines []string
	if l.Invite != "" {
		lines = append(lines, fmt.Sprintf("[Click here to invite the bot to your server](%s)", l.Invite))
	}
	if l.Support != "" {
		lines = append(lines, fmt.Sprintf("[Click here to join our support server](%s)", l.Support))
	}
	if len(lines) == 0 {
		lines = append(lines, "No invite link is configured.")
	}
	return &discordgo.MessageEmbed{
		Title:       "Invite Harmony",
		Description: strings.Join(lines, "\n"),
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Thank you for using Harmony!"},
	}
}

func supportEmbed(l Links) *discordgo.MessageEmbed {
	desc := "No support server is configured."
	if l.Support != "" {
		desc = fmt.Sprintf("[Click here to join our support server](%s)", l.Support)
	}
	return &discordgo.MessageEmbed{
		Title:       "Support Server",
		Description: desc,
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "We'll be happy to help you!"},
	}
}

// ControlRows builds the playback buttons shown under a Now Playing announcement.
func ControlRows(paused, repeat bool) []discordgo.MessageComponent {
	pauseLabel, pauseEmoji := "Pause", "⏸️"
	if paused {
		pauseLabel, pauseEmoji = "Resume", "▶️"
	}
	loopLabel, loopStyle := "Enable Loop", discordgo.SecondaryButton
	if repeat {
		loopLabel, loopStyle = "Disable Loop", discordgo.SuccessButton
	}

	button := func(id, label, emoji string, style discordgo.ButtonStyle) discordgo.Button {
		return discordgo.Button{
			CustomID: id,
			Label:    label,
			Style:    style,
			Emoji:    &discordgo.ComponentEmoji{Name: emoji},
		}
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				button("skip", "Skip", "⏭️", discordgo.PrimaryButton),
				button("pause", pauseLabel, pauseEmoji, discordgo.SecondaryButton),
				button("stop", "Stop", "⏹️", discordgo.DangerButton),
				button("loop", loopLabel, "🔄", loopStyle),
				button("shuffle", "Shuffle", "🔀", discordgo.PrimaryButton),
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				button("rewind", "-5s", "⏪", discordgo.SecondaryButton),
				button("forward", "+5s", "⏩", discordgo.SecondaryButton),
				button("leave", "Disconnect", "🚪", discordgo.DangerButton),
				button("queue", "Queue", "📜", discordgo.PrimaryButton),
				button("lyrics", "Lyrics", "📝", discordgo.PrimaryButton),
			},
		},
	}
}
