package music

// Permissions are the bot's effective permissions in the requester's voice channel
type Permissions struct {
	View    bool
	Connect bool
	Speak   bool
}

// All reports whether the bot can see, join and speak in the channel
func (p Permissions) All() bool {
	return p.View && p.Connect && p.Speak
}

// VoiceSnapshot is the voice state the gateway reports for one command.
// Empty channel IDs mean "not in a voice channel".
type VoiceSnapshot struct {
	RequesterChannelID string
	BotChannelID       string
	Permissions        Permissions
}

// VoiceAction is what the bot must do with its voice connection
type VoiceAction int

const (
	// VoiceJoin connects the bot to the requester's channel
	VoiceJoin VoiceAction = iota
	// VoiceReuse keeps the existing connection
	VoiceReuse
)

// String returns the action name
func (a VoiceAction) String() string {
	if a == VoiceReuse {
		return "reuse"
	}
	return "join"
}

// Eligibility is a passed voice check
type Eligibility struct {
	Action    VoiceAction
	ChannelID string
}

// CheckEligibility applies the voice rules to a snapshot
func CheckEligibility(s VoiceSnapshot) (Eligibility, error) {
	if s.RequesterChannelID == "" {
		return Eligibility{}, ErrUserNotInVoice
	}

	if s.BotChannelID == "" {
		if !s.Permissions.All() {
			return Eligibility{}, ErrInsufficientPermissions
		}
		return Eligibility{Action: VoiceJoin, ChannelID: s.RequesterChannelID}, nil
	}

	if s.BotChannelID != s.RequesterChannelID {
		return Eligibility{}, ErrBotInDifferentChannel
	}
	return Eligibility{Action: VoiceReuse, ChannelID: s.BotChannelID}, nil
}
