package music

import (
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"harmony/internal/guildconfig"
)

// Help topics reachable from the help command and the help select menu.
const (
	TopicMusic  = "music"
	TopicConfig = "config"
	TopicInfo   = "info"
)

// HelpMenuID is the custom id of the help select menu.
const HelpMenuID = "help_menu"

const seekStep = 5 * time.Second

var buttons = map[string]Action{
	"skip":    Skip{},
	"pause":   TogglePause{},
	"stop":    Stop{},
	"loop":    Loop{},
	"shuffle": Shuffle{},
	"rewind":  SeekBy{Delta: -seekStep},
	"forward": SeekBy{Delta: seekStep},
	"leave":   Leave{},
	"queue":   ShowQueue{},
	"lyrics":  Lyrics{},
}

var helpValues = map[string]string{
	"help_music":  TopicMusic,
	"help_config": TopicConfig,
	"help_info":   TopicInfo,
}

// ParseText turns a chat message into an action. The second result is false
// when the message is not meant for the bot.
func ParseText(content, channelID string, cfg guildconfig.Config) (Action, bool) {
	if cfg.Prefix != "" && strings.HasPrefix(content, cfg.Prefix) {
		args := strings.Fields(content[len(cfg.Prefix):])
		if len(args) == 0 {
			return nil, false
		}
		return parseCommand(strings.ToLower(args[0]), args[1:], channelID), true
	}

	if cfg.MusicChannel != "" && cfg.MusicChannel == channelID {
		query := strings.TrimSpace(content)
		if query == "" {
			return nil, false
		}
		return Play{Query: query, FromMusicChannel: true}, true
	}

	return nil, false
}

// ParseComponent turns a button click or select-menu choice into an action.
func ParseComponent(customID string, values []string) (Action, bool) {
	if customID == HelpMenuID {
		if len(values) == 0 {
			return nil, false
		}
		topic, ok := helpValues[values[0]]
		if !ok {
			return nil, false
		}
		return Help{Topic: topic}, true
	}

	a, ok := buttons[customID]
	return a, ok
}

func parseCommand(cmd string, args []string, channelID string) Action {
	switch cmd {
	case "play", "p":
		return Play{Query: strings.Join(args, " ")}
	case "skip":
		return Skip{}
	case "stop":
		return Stop{}
	case "pause":
		return Pause{}
	case "resume":
		return Resume{}
	case "loop":
		return Loop{}
	case "shuffle":
		return Shuffle{}
	case "leave":
		return Leave{}
	case "volume":
		return parseVolume(first(args))
	case "seek":
		in := first(args)
		d, err := ParseTime(in)
		if err != nil {
			return BadTime{Input: in}
		}
		return Seek{To: d}
	case "queue":
		return ShowQueue{}
	case "nowplaying", "np":
		return NowPlaying{}
	case "setprefix":
		return SetPrefix{Prefix: first(args)}
	case "setmusicchannel":
		return parseMusicChannel(first(args), channelID)
	case "adddj":
		return AddDJ{RoleID: parseID(first(args), "<@&")}
	case "removedj":
		return RemoveDJ{RoleID: parseID(first(args), "<@&")}
	case "help":
		return Help{Topic: parseTopic(first(args))}
	case "invite":
		return Invite{}
	case "support":
		return Support{}
	default:
		return Unknown{Command: cmd}
	}
}

func parseVolume(in string) Action {
	v, err := strconv.Atoi(in)
	if err != nil || !guildconfig.ValidVolume(v) {
		return BadVolume{Input: in}
	}
	return Volume{Percent: v}
}

func parseMusicChannel(in, current string) Action {
	switch strings.ToLower(in) {
	case "":
		return SetMusicChannel{ChannelID: current}
	case "off", "none":
		return SetMusicChannel{Clear: true}
	}
	return SetMusicChannel{ChannelID: parseID(in, "<#")}
}

func parseTopic(in string) string {
	switch t := strings.ToLower(in); t {
	case TopicMusic, TopicConfig, TopicInfo:
		return t
	}
	return ""
}

// parseID accepts a mention with the given opening or a raw snowflake and
// returns the id, or "" when the input is neither.
func parseID(in, mention string) string {
	if strings.HasPrefix(in, mention) && strings.HasSuffix(in, ">") {
		in = in[len(mention) : len(in)-1]
	}
	id, err := snowflake.Parse(in)
	if err != nil || id == 0 {
		return ""
	}
	return id.String()
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
