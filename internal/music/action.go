package music

import "time"

// Class groups actions by the permission they need.
type Class int

const (
	// ClassOpen actions are informational or requests anyone may issue.
	ClassOpen Class = iota
	// ClassControl actions change playback and honour DJ roles.
	ClassControl
	// ClassConfig actions change the guild configuration.
	ClassConfig
)

func (c Class) String() string {
	switch c {
	case ClassControl:
		return "control"
	case ClassConfig:
		return "config"
	default:
		return "open"
	}
}

// Action is one normalized user intent. The set is closed.
type Action interface {
	Class() Class
	Name() string
	action()
}

type (
	Play struct {
		Query            string
		FromMusicChannel bool
	}
	Skip        struct{}
	Pause       struct{}
	Resume      struct{}
	TogglePause struct{}
	Stop        struct{}
	Loop        struct{}
	Shuffle     struct{}
	Seek        struct{ To time.Duration }
	SeekBy      struct{ Delta time.Duration }
	Volume      struct{ Percent int }
	Leave       struct{}

	ShowQueue  struct{}
	NowPlaying struct{}
	Lyrics     struct{}
	Help       struct{ Topic string }
	Invite     struct{}
	Support    struct{}

	SetPrefix       struct{ Prefix string }
	SetMusicChannel struct {
		ChannelID string
		Clear     bool
	}
	AddDJ    struct{ RoleID string }
	RemoveDJ struct{ RoleID string }

	// Unknown is a prefixed command nobody recognises.
	Unknown struct{ Command string }
	// BadTime is a seek whose argument failed to parse.
	BadTime struct{ Input string }
	// BadVolume is a volume whose argument is not an integer in range.
	BadVolume struct{ Input string }
)

func (Play) Class() Class            { return ClassOpen }
func (Skip) Class() Class            { return ClassControl }
func (Pause) Class() Class           { return ClassControl }
func (Resume) Class() Class          { return ClassControl }
func (TogglePause) Class() Class     { return ClassControl }
func (Stop) Class() Class            { return ClassControl }
func (Loop) Class() Class            { return ClassControl }
func (Shuffle) Class() Class         { return ClassControl }
func (Seek) Class() Class            { return ClassControl }
func (SeekBy) Class() Class          { return ClassControl }
func (Volume) Class() Class          { return ClassControl }
func (Leave) Class() Class           { return ClassControl }
func (ShowQueue) Class() Class       { return ClassOpen }
func (NowPlaying) Class() Class      { return ClassOpen }
func (Lyrics) Class() Class          { return ClassOpen }
func (Help) Class() Class            { return ClassOpen }
func (Invite) Class() Class          { return ClassOpen }
func (Support) Class() Class         { return ClassOpen }
func (SetPrefix) Class() Class       { return ClassConfig }
func (SetMusicChannel) Class() Class { return ClassConfig }
func (AddDJ) Class() Class           { return ClassConfig }
func (RemoveDJ) Class() Class        { return ClassConfig }
func (Unknown) Class() Class         { return ClassOpen }
func (BadTime) Class() Class         { return ClassControl }
func (BadVolume) Class() Class       { return ClassControl }

func (Play) Name() string            { return "play" }
func (Skip) Name() string            { return "skip" }
func (Pause) Name() string           { return "pause" }
func (Resume) Name() string          { return "resume" }
func (TogglePause) Name() string     { return "togglepause" }
func (Stop) Name() string            { return "stop" }
func (Loop) Name() string            { return "loop" }
func (Shuffle) Name() string         { return "shuffle" }
func (Seek) Name() string            { return "seek" }
func (SeekBy) Name() string          { return "seekby" }
func (Volume) Name() string          { return "volume" }
func (Leave) Name() string           { return "leave" }
func (ShowQueue) Name() string       { return "queue" }
func (NowPlaying) Name() string      { return "nowplaying" }
func (Lyrics) Name() string          { return "lyrics" }
func (Help) Name() string            { return "help" }
func (Invite) Name() string          { return "invite" }
func (Support) Name() string         { return "support" }
func (SetPrefix) Name() string       { return "setprefix" }
func (SetMusicChannel) Name() string { return "setmusicchannel" }
func (AddDJ) Name() string           { return "adddj" }
func (RemoveDJ) Name() string        { return "removedj" }
func (Unknown) Name() string         { return "unknown" }
func (BadTime) Name() string         { return "seek" }
func (BadVolume) Name() string       { return "volume" }

func (Play) action()            {}
func (Skip) action()            {}
func (Pause) action()           {}
func (Resume) action()          {}
func (TogglePause) action()     {}
func (Stop) action()            {}
func (Loop) action()            {}
func (Shuffle) action()         {}
func (Seek) action()            {}
func (SeekBy) action()          {}
func (Volume) action()          {}
func (Leave) action()           {}
func (ShowQueue) action()       {}
func (NowPlaying) action()      {}
func (Lyrics) action()          {}
func (Help) action()            {}
func (Invite) action()          {}
func (Support) action()         {}
func (SetPrefix) action()       {}
func (SetMusicChannel) action() {}
func (AddDJ) action()           {}
func (RemoveDJ) action()        {}
func (Unknown) action()         {}
func (BadTime) action()         {}
func (BadVolume) action()       {}
