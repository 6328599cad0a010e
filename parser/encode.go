package parser

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// String renders m as a wire line without the terminator. Prefixed messages are rendered in the
// canonical ":nick!nick@host VERB target :params" form, so Parse(m.String()) yields a Message
// equal to m for any m produced by Parse from a prefixed line or a PING.
func (m *Message) String() string {
	var b strings.Builder
	if m.Tags != nil {
		if block := m.Tags.Encode(); block != "" {
			b.WriteByte('@')
			b.WriteString(block)
			b.WriteByte(' ')
		}
	}
	if m.Source != nil {
		b.WriteByte(':')
		b.WriteString(m.Source.String())
		b.WriteByte(' ')
	}
	b.WriteString(m.Command.Kind.String())
	if m.Command.Target != "" {
		b.WriteByte(' ')
		b.WriteString(m.Command.Target)
	}
	if m.Parameters != nil {
		b.WriteString(" :")
		b.WriteString(*m.Parameters)
	}
	return b.String()
}

func (s Source) String() string {
	if s.Nick == "" {
		return s.Host
	}
	return s.Nick + "!" + s.Nick + "@" + s.Host
}

// Encode renders the tag block without the leading '@'. Known tags at their zero value are
// omitted; extra tags follow in key order.
func (t *Tags) Encode() string {
	var parts []string
	add := func(key, value string) { parts = append(parts, key+"="+value) }
	str := func(key, value string) {
		if value != "" {
			add(key, value)
		}
	}
	flag := func(key string, v bool) {
		if v {
			add(key, "1")
		}
	}
	count := func(key string, v uint64) {
		if v != 0 {
			add(key, strconv.FormatUint(v, 10))
		}
	}

	str("badges", t.Badges.Encode())
	str("color", t.Color)
	str("display-name", t.DisplayName)
	flag("emote-only", t.EmoteOnly)
	str("emotes", EncodeEmotes(t.Emotes))
	str("id", t.ID)
	flag("mod", t.Mod)
	str("room-id", t.RoomID)
	flag("subscriber", t.Subscriber)
	flag("turbo", t.Turbo)
	count("tmi-sent-ts", t.TmiSentTs)
	str("user-id", t.UserID)
	str("user-type", t.UserType)
	flag("vip", t.VIP)
	str("reply-parent-msg-id", t.ReplyParentMsgID)
	str("target-user-id", t.TargetUserID)
	str("msg-id", t.MsgID)
	count("ban-duration", t.BanDuration)
	str("login", t.Login)
	str("target-msg-id", t.TargetMsgID)
	if len(t.EmoteSets) > 0 {
		sets := make([]string, len(t.EmoteSets))
		for i, s := range t.EmoteSets {
			sets[i] = strconv.FormatUint(s, 10)
		}
		add("emote-sets", strings.Join(sets, ","))
	}
	flag("followers-only", t.FollowersOnly)
	flag("r9k", t.R9K)
	count("slow", t.Slow)
	flag("subs-only", t.SubsOnly)

	for _, k := range slices.Sorted(maps.Keys(t.ExtraTags)) {
		add(k, t.ExtraTags[k])
	}
	return strings.Join(parts, ";")
}

// Encode renders held badges as "name/version" pairs.
func (b Badges) Encode() string {
	var parts []string
	for _, badge := range []struct {
		name    string
		version *string
	}{
		{"admin", b.Admin},
		{"bits", b.Bits},
		{"broadcaster", b.Broadcaster},
		{"moderator", b.Moderator},
		{"subscriber", b.Subscriber},
		{"staff", b.Staff},
		{"turbo", b.Turbo},
	} {
		if badge.version != nil {
			parts = append(parts, badge.name+"/"+*badge.version)
		}
	}
	return strings.Join(parts, ",")
}

// EncodeEmotes renders emotes in server form. Consecutive emotes sharing a code are grouped so
// that ParseEmotes returns them in the same order.
func EncodeEmotes(emotes []Emote) string {
	var b strings.Builder
	for i, e := range emotes {
		switch {
		case i == 0:
		case emotes[i-1].Code == e.Code:
			b.WriteByte(',')
		default:
			b.WriteByte('/')
		}
		if i == 0 || emotes[i-1].Code != e.Code {
			b.WriteString(e.Code)
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatUint(uint64(e.Start), 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(uint64(e.End), 10))
	}
	return b.String()
}
