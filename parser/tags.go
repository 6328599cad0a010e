package parser

import (
	"strconv"
	"strings"
)

// ParseTags decodes a tag block. A leading '@' is tolerated. Entries without '=' or with an
// empty key are skipped; malformed numbers decode as 0; unknown keys land in ExtraTags with
// their raw value. ParseTags never fails.
func ParseTags(block string) Tags {
	block = strings.TrimPrefix(block, "@")
	tags := Tags{ExtraTags: make(map[string]string)}
	for _, entry := range strings.Split(block, ";") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		switch key {
		case "badges":
			tags.Badges = ParseBadges(value)
		case "color":
			tags.Color = value
		case "display-name":
			tags.DisplayName = value
		case "emote-only":
			tags.EmoteOnly = parseFlag(value)
		case "emotes":
			tags.Emotes = ParseEmotes(value)
		case "id":
			tags.ID = value
		case "mod":
			tags.Mod = parseFlag(value)
		case "room-id":
			tags.RoomID = value
		case "subscriber":
			tags.Subscriber = parseFlag(value)
		case "turbo":
			tags.Turbo = parseFlag(value)
		case "tmi-sent-ts":
			tags.TmiSentTs = parseCount(value)
		case "user-id":
			tags.UserID = value
		case "user-type":
			tags.UserType = value
		case "vip":
			tags.VIP = parseFlag(value)
		case "reply-parent-msg-id":
			tags.ReplyParentMsgID = value
		case "target-user-id":
			tags.TargetUserID = value
		case "msg-id":
			tags.MsgID = value
		case "ban-duration":
			tags.BanDuration = parseCount(value)
		case "login":
			tags.Login = value
		case "target-msg-id":
			tags.TargetMsgID = value
		case "emote-sets":
			tags.EmoteSets = ParseEmoteSets(value)
		case "followers-only":
			tags.FollowersOnly = parseFlag(value)
		case "r9k":
			tags.R9K = parseFlag(value)
		case "slow":
			tags.Slow = parseCount(value)
		case "subs-only":
			tags.SubsOnly = parseFlag(value)
		default:
			tags.ExtraTags[key] = value
		}
	}
	return tags
}

func parseFlag(v string) bool { return v == "1" }

func parseCount(v string) uint64 {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseBadges decodes "name/version,name/version". Unknown badge names and entries without a
// version are skipped.
func ParseBadges(value string) Badges {
	var b Badges
	for _, pair := range strings.Split(value, ",") {
		name, version, ok := strings.Cut(pair, "/")
		if !ok {
			continue
		}
		v := version
		switch name {
		case "admin":
			b.Admin = &v
		case "bits":
			b.Bits = &v
		case "broadcaster":
			b.Broadcaster = &v
		case "moderator":
			b.Moderator = &v
		case "subscriber":
			b.Subscriber = &v
		case "staff":
			b.Staff = &v
		case "turbo":
			b.Turbo = &v
		}
	}
	return b
}

// ParseEmotes decodes an emotes value into one Emote per offset range. Both the server form
// "25:0-4,12-16/1902:6-10" and the flat form "25:0-4,1902:6-10" are accepted: a comma-separated
// piece that carries its own "code:" starts a new emote, a bare "start-end" repeats the previous
// code. Pieces that do not parse are skipped.
func ParseEmotes(value string) []Emote {
	var emotes []Emote
	for _, group := range strings.Split(value, "/") {
		code := ""
		for _, piece := range strings.Split(group, ",") {
			if c, rest, ok := strings.Cut(piece, ":"); ok {
				code, piece = c, rest
			}
			if code == "" {
				continue
			}
			first, last, ok := strings.Cut(piece, "-")
			if !ok {
				continue
			}
			start, err := strconv.ParseUint(first, 10, 0)
			if err != nil {
				continue
			}
			end, err := strconv.ParseUint(last, 10, 0)
			if err != nil {
				continue
			}
			emotes = append(emotes, Emote{Code: code, Start: uint(start), End: uint(end)})
		}
	}
	return emotes
}

// ParseEmoteSets decodes a comma-separated list of set ids; ids that are not numbers decode as 0.
func ParseEmoteSets(value string) []uint64 {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	sets := make([]uint64, 0, len(parts))
	for _, p := range parts {
		sets = append(sets, parseCount(p))
	}
	return sets
}
