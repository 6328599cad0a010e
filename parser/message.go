// Package parser turns one chat protocol line into a Message.
//
// A line has the shape
//
//	[@<key>=<value>[;<key>=<value>...] ] [:<nick>!<user>@<host> ] <VERB> [<target>] [:<trailing>]
//
// The parser holds no state; Parse and ParseTags may be called from any goroutine.
// A Message is either fully built or Parse returns an error; there are no partial results.
package parser

// Message is one parsed protocol line.
type Message struct {
	Tags       *Tags   `json:"tags,omitempty"`
	Source     *Source `json:"source,omitempty"`
	Command    Command `json:"command"`
	Parameters *string `json:"parameters,omitempty"`
}

// Text returns the trailing parameter, or "" when the line had none.
func (m *Message) Text() string {
	if m.Parameters == nil {
		return ""
	}
	return *m.Parameters
}

// Nick returns the sender nick, or "" for server-originated and unprefixed lines.
func (m *Message) Nick() string {
	if m.Source == nil {
		return ""
	}
	return m.Source.Nick
}

// Source is the sender of a line. Server lines carry the bare hostname with an empty Nick.
type Source struct {
	Nick string `json:"nick"`
	Host string `json:"host"`
}

// Command is the verb of a line plus the token the protocol associates with it.
type Command struct {
	Kind CommandKind `json:"kind"`

	// Channel is populated from the sender nick for prefixed lines (for a PRIVMSG it is the
	// author, for a numeric it is the server's empty nick), and from the joined channel name
	// for unprefixed JOIN lines. The field name is historical; consumers that need the real
	// destination should read Target.
	Channel string `json:"channel"`

	// Target is the first middle parameter after the verb as it appeared on the wire,
	// e.g. "#chan" for PRIVMSG or "*" for CAP. Empty when the verb has no middle parameter.
	Target string `json:"target,omitempty"`
}

// Badges are the membership markers attached to a user. A nil field means the badge is not held.
type Badges struct {
	Admin       *string `json:"admin,omitempty"`
	Bits        *string `json:"bits,omitempty"`
	Broadcaster *string `json:"broadcaster,omitempty"`
	Moderator   *string `json:"moderator,omitempty"`
	Subscriber  *string `json:"subscriber,omitempty"`
	Staff       *string `json:"staff,omitempty"`
	Turbo       *string `json:"turbo,omitempty"`
}

// Emote references an inline emote by character offsets into the message text.
// Start and End are inclusive and are not checked against the text length.
type Emote struct {
	Code  string `json:"code"`
	Start uint   `json:"start"`
	End   uint   `json:"end"`
}

// Tags is the decoded tag block. Missing tags are left at their zero value.
type Tags struct {
	Badges           Badges   `json:"badges"`
	Color            string   `json:"color,omitempty"`
	DisplayName      string   `json:"display_name,omitempty"`
	EmoteOnly        bool     `json:"emote_only,omitempty"`
	Emotes           []Emote  `json:"emotes,omitempty"`
	ID               string   `json:"id,omitempty"`
	Mod              bool     `json:"mod,omitempty"`
	RoomID           string   `json:"room_id,omitempty"`
	Subscriber       bool     `json:"subscriber,omitempty"`
	Turbo            bool     `json:"turbo,omitempty"`
	TmiSentTs        uint64   `json:"tmi_sent_ts,omitempty"`
	UserID           string   `json:"user_id,omitempty"`
	UserType         string   `json:"user_type,omitempty"`
	VIP              bool     `json:"vip,omitempty"`
	ReplyParentMsgID string   `json:"reply_parent_msg_id,omitempty"`
	TargetUserID     string   `json:"target_user_id,omitempty"`
	MsgID            string   `json:"msg_id,omitempty"`
	BanDuration      uint64   `json:"ban_duration,omitempty"`
	Login            string   `json:"login,omitempty"`
	TargetMsgID      string   `json:"target_msg_id,omitempty"`
	EmoteSets        []uint64 `json:"emote_sets,omitempty"`
	FollowersOnly    bool     `json:"followers_only,omitempty"`
	R9K              bool     `json:"r9k,omitempty"`
	Slow             uint64   `json:"slow,omitempty"`
	SubsOnly         bool     `json:"subs_only,omitempty"`

	// ExtraTags keeps every unrecognized key with its raw value. Never nil after ParseTags.
	ExtraTags map[string]string `json:"extra_tags,omitempty"`
}
