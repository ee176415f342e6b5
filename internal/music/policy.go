package music

import "harmony/internal/guildconfig"

const (
	ReasonNeedsDJ     = "requires DJ permissions"
	ReasonNeedsManage = "requires Manage Server permission"
)

// Member is the acting user as seen from one guild.
type Member struct {
	UserID   string
	Username string
	Mention  string
	RoleIDs  []string
	// ManageGuild is true for Manage Server or Administrator.
	ManageGuild    bool
	VoiceChannelID string
}

// Authorization is the verdict for one action.
type Authorization struct {
	Allowed bool
	Reason  string
}

var allowed = Authorization{Allowed: true}

// Authorize decides whether m may perform a under cfg.
func Authorize(a Action, m Member, cfg guildconfig.Config) Authorization {
	switch a.Class() {
	case ClassConfig:
		if m.ManageGuild {
			return allowed
		}
		return Authorization{Reason: ReasonNeedsManage}
	case ClassControl:
		if m.ManageGuild || cfg.HasDJRole(m.RoleIDs) {
			return allowed
		}
		// unknown DJ roles must not read as "no DJ roles"
		if len(cfg.DJRoles) == 0 && !cfg.Degraded {
			return allowed
		}
		return Authorization{Reason: ReasonNeedsDJ}
	default:
		return allowed
	}
}
