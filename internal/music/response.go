package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Outcome classifies a response for logging and tests.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDenied
	OutcomeInvalid
	OutcomeIdle
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDenied:
		return "denied"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeIdle:
		return "idle"
	default:
		return "failed"
	}
}

// Response is what the gateway sends back for one event.
type Response struct {
	Content    string
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	// Ephemeral is honoured for interactions only.
	Ephemeral bool
	// Reaction, when set, is added to the triggering message instead of replying.
	Reaction string
	Outcome  Outcome
}

const (
	msgGenericFailure = "❌ An error occurred while executing that command. Please try again."
	msgPlayFailure    = "❌ Failed to play the track. Please try again."
	msgNothingPlaying = "❌ No track is currently playing!"
	msgEmptyQueue     = "❌ No tracks in queue!"
	msgNoVoice        = "❌ You need to be in a voice channel to play music!"
	msgNoQuery        = "❌ Please provide a song name or URL!"
	msgFewToShuffle   = "❌ Not enough tracks in queue to shuffle!"
	msgNoSeekTime     = "❌ Please provide a time to seek to (e.g. 1:30 or 90s)!"
	msgBadSeekTime    = "❌ Please provide a valid time format!"
	msgSeekPastEnd    = "❌ That time is past the end of the track!"
	msgBadVolume      = "❌ Please provide a valid volume between 0 and 200!"
	msgBadPrefix      = "❌ Please provide a valid prefix (1-3 characters)!"
	msgBadRole        = "❌ Please mention a role or provide a role ID!"
	msgBadChannel     = "❌ Please mention a channel or provide a channel ID!"
	msgAlreadyDJ      = "❌ This role is already a DJ role!"
	msgNotDJ          = "❌ This role is not a DJ role!"
	msgLyrics         = "🚧 Lyrics feature coming soon!"
)

func reply(content string) Response {
	return Response{Content: content, Outcome: OutcomeOK}
}

func embedReply(e *discordgo.MessageEmbed) Response {
	return Response{Embed: e, Outcome: OutcomeOK}
}

func invalid(content string) Response {
	return Response{Content: content, Ephemeral: true, Outcome: OutcomeInvalid}
}

func idle(content string) Response {
	return Response{Content: content, Ephemeral: true, Outcome: OutcomeIdle}
}

// Failure is the generic answer for errors the user cannot act on.
func Failure() Response {
	return Response{Content: msgGenericFailure, Ephemeral: true, Outcome: OutcomeFailed}
}

func denied(reason string, fromComponent bool) Response {
	subject := "command"
	if fromComponent {
		subject = "control"
	}
	return Response{
		Content:   fmt.Sprintf("❌ This %s %s.", subject, reason),
		Ephemeral: true,
		Outcome:   OutcomeDenied,
	}
}
