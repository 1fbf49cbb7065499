// Package chat implements the live chat pipeline: the normalized message
// model all renderer shapes converge to, the variant parser, the
// continuation-driven streamer, and the relay that fans messages out to sinks.
package chat

import (
	"fmt"
	"strings"
)

// Kind identifies the normalized message type. The set is closed: the parser
// never emits a kind outside these values.
type Kind string

const (
	KindText             Kind = "textMessage"
	KindSuperChat        Kind = "superChat"
	KindSuperSticker     Kind = "superSticker"
	KindNewSponsor       Kind = "newSponsor"
	KindViewerEngagement Kind = "viewerEngagementMessage"
)

// Emoji is a single custom or unicode emoji reference inside a message.
type Emoji struct {
	ID       string `json:"id"`
	Shortcut string `json:"shortcut"`
	ImageURL string `json:"image_url"`
}

// Run is one atomic piece of a rendered message: literal text when Emoji is
// nil, a single emoji otherwise. The parser never emits a run carrying both.
type Run struct {
	Text  string `json:"text,omitempty"`
	Emoji *Emoji `json:"emoji,omitempty"`
}

// Author is the message poster. ChannelID is derived from the avatar URL's
// path, not from a dedicated field (see parse.go); the role flags are
// independent booleans inferred from badge labels.
type Author struct {
	Name            string `json:"name"`
	ChannelID       string `json:"channel_id"`
	ChannelURL      string `json:"channel_url"`
	ImageURL        string `json:"image_url"`
	BadgeURL        string `json:"badge_url,omitempty"`
	IsVerified      bool   `json:"is_verified"`
	IsChatOwner     bool   `json:"is_chat_owner"`
	IsChatSponsor   bool   `json:"is_chat_sponsor"`
	IsChatModerator bool   `json:"is_chat_moderator"`
}

// Message is the normalized record every parsed chat item becomes.
// PlainText always equals the in-order concatenation of the text runs;
// emoji-only runs contribute nothing to it.
type Message struct {
	Kind            Kind     `json:"kind"`
	ID              string   `json:"id"`
	PlainText       string   `json:"message"`
	Runs            []Run    `json:"runs,omitempty"`
	TimestampMillis int64    `json:"timestamp"`
	Datetime        string   `json:"datetime"`
	ElapsedTime     string   `json:"elapsed_time,omitempty"` // replay only, unused live
	AmountValue     *float64 `json:"amount_value,omitempty"`
	AmountString    string   `json:"amount_string,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	BGColor         *uint32  `json:"bg_color,omitempty"`
	Author          Author   `json:"author"`
}

// LogLine renders the message in the bridge's one-line output format:
// [{datetime}] [{kind}] {author}{badges}: {text}. Badge glyphs appear only
// for set flags, in the fixed order verified, owner, sponsor, moderator.
func (m *Message) LogLine() string {
	var badges strings.Builder
	if m.Author.IsVerified {
		badges.WriteString("✔")
	}
	if m.Author.IsChatOwner {
		badges.WriteString("👑")
	}
	if m.Author.IsChatSponsor {
		badges.WriteString("💎")
	}
	if m.Author.IsChatModerator {
		badges.WriteString("🔧")
	}
	return fmt.Sprintf("[%s] [%s] %s%s: %s", m.Datetime, m.Kind, m.Author.Name, badges.String(), m.PlainText)
}

func plainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Emoji == nil {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}
