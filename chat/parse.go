package chat

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tkhrdev/livebridge/telemetry"
)

// Wire shapes. One renderer struct covers all item kinds; fields a kind does
// not carry simply stay zero. Dispatch happens on which renderer key is
// present in the item (see ParseItem).

type simpleText struct {
	SimpleText string `json:"simpleText"`
}

type thumbnailList struct {
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func (t *thumbnailList) firstURL() string {
	if t == nil || len(t.Thumbnails) == 0 {
		return ""
	}
	return t.Thumbnails[0].URL
}

type rawRun struct {
	Text  *string `json:"text"`
	Emoji *struct {
		EmojiID   string        `json:"emojiId"`
		Shortcuts []string      `json:"shortcuts"`
		Image     thumbnailList `json:"image"`
	} `json:"emoji"`
}

type rawRuns struct {
	Runs []rawRun `json:"runs"`
}

type rawBadge struct {
	Renderer *struct {
		Icon            *thumbnailList `json:"icon"`
		CustomThumbnail *thumbnailList `json:"customThumbnail"`
		Accessibility   struct {
			AccessibilityData struct {
				Label string `json:"label"`
			} `json:"accessibilityData"`
		} `json:"accessibility"`
	} `json:"liveChatAuthorBadgeRenderer"`
}

type rawRenderer struct {
	ID                    string        `json:"id"`
	TimestampUsec         string        `json:"timestampUsec"`
	AuthorName            simpleText    `json:"authorName"`
	AuthorPhoto           thumbnailList `json:"authorPhoto"`
	AuthorBadges          []rawBadge    `json:"authorBadges"`
	Message               *rawRuns      `json:"message"`
	HeaderSubtext         rawRuns       `json:"headerSubtext"`
	PurchaseAmountText    simpleText    `json:"purchaseAmountText"`
	Currency              string        `json:"currency"`
	HeaderBackgroundColor *uint64       `json:"headerBackgroundColor"`
}

type chatItem struct {
	Text        *rawRenderer    `json:"liveChatTextMessageRenderer"`
	Paid        *rawRenderer    `json:"liveChatPaidMessageRenderer"`
	Sticker     *rawRenderer    `json:"liveChatPaidStickerRenderer"`
	Membership  *rawRenderer    `json:"liveChatMembershipItemRenderer"`
	Engagement  *rawRenderer    `json:"liveChatViewerEngagementMessageRenderer"`
	Placeholder json.RawMessage `json:"liveChatPlaceholderItemRenderer"`
}

// ParseItem converts one raw chat item into zero or one normalized Message.
// Placeholders and items missing structurally required fields yield nil;
// unrecognized kinds yield nil and are counted and debug-logged for
// diagnosis. None of these are errors: a bad item never stops the stream.
func ParseItem(raw []byte) *Message {
	var item chatItem
	if err := json.Unmarshal(raw, &item); err != nil {
		telemetry.CountSkippedItem()
		slog.Debug("undecodable live chat item", slog.Any("err", err))
		return nil
	}

	var msg *Message
	switch {
	case item.Text != nil:
		msg = parseCommon(item.Text, KindText, messageRuns(item.Text))
	case item.Paid != nil:
		msg = parsePaid(item.Paid, KindSuperChat)
	case item.Sticker != nil:
		msg = parsePaid(item.Sticker, KindSuperSticker)
	case item.Membership != nil:
		msg = parseCommon(item.Membership, KindNewSponsor, parseRuns(item.Membership.HeaderSubtext.Runs))
	case item.Engagement != nil:
		msg = parseEngagement(item.Engagement)
	case len(item.Placeholder) > 0:
		// Placeholders carry no content.
		return nil
	default:
		telemetry.CountUnknownItem()
		slog.Debug("unsupported live chat item", slog.String("raw", string(raw)))
		return nil
	}

	if msg == nil {
		telemetry.CountSkippedItem()
		return nil
	}
	telemetry.CountMessage(string(msg.Kind))
	return msg
}

// parseCommon handles the kinds that are author + runs and nothing more.
func parseCommon(r *rawRenderer, kind Kind, runs []Run) *Message {
	author := parseAuthor(r)
	if author == nil {
		return nil
	}
	ts, dt, ok := parseTimestamp(r.TimestampUsec)
	if r.ID == "" || !ok {
		return nil
	}
	return &Message{
		Kind:            kind,
		ID:              r.ID,
		PlainText:       plainText(runs),
		Runs:            runs,
		TimestampMillis: ts,
		Datetime:        dt,
		Author:          *author,
	}
}

func parsePaid(r *rawRenderer, kind Kind) *Message {
	// Stickers often have no message at all; treat that as an empty run list.
	msg := parseCommon(r, kind, messageRuns(r))
	if msg == nil {
		return nil
	}
	msg.AmountString = r.PurchaseAmountText.SimpleText
	msg.AmountValue = parseAmount(msg.AmountString)
	msg.Currency = r.Currency
	if r.HeaderBackgroundColor != nil {
		bg := uint32(*r.HeaderBackgroundColor)
		msg.BGColor = &bg
	}
	return msg
}

func parseEngagement(r *rawRenderer) *Message {
	ts, dt, ok := parseTimestamp(r.TimestampUsec)
	if r.ID == "" || !ok {
		return nil
	}
	runs := messageRuns(r)
	// Platform-generated banners have no real author; use the canonical
	// empty one rather than inventing identity.
	return &Message{
		Kind:            KindViewerEngagement,
		ID:              r.ID,
		PlainText:       plainText(runs),
		Runs:            runs,
		TimestampMillis: ts,
		Datetime:        dt,
	}
}

func messageRuns(r *rawRenderer) []Run {
	if r.Message == nil {
		return nil
	}
	return parseRuns(r.Message.Runs)
}

// parseRuns keeps platform order. A run with neither a text nor an emoji key
// is dropped so every emitted run is exactly one of the two.
func parseRuns(raws []rawRun) []Run {
	var runs []Run
	for _, rr := range raws {
		switch {
		case rr.Text != nil:
			runs = append(runs, Run{Text: *rr.Text})
		case rr.Emoji != nil:
			shortcut := ""
			if len(rr.Emoji.Shortcuts) > 0 {
				shortcut = rr.Emoji.Shortcuts[0]
			}
			runs = append(runs, Run{Emoji: &Emoji{
				ID:       rr.Emoji.EmojiID,
				Shortcut: shortcut,
				ImageURL: rr.Emoji.Image.firstURL(),
			}})
		}
	}
	return runs
}

func parseTimestamp(usec string) (int64, string, bool) {
	n, err := strconv.ParseInt(usec, 10, 64)
	if err != nil {
		return 0, "", false
	}
	ms := n / 1000
	// Rendered from the same source value in UTC so repeated parses of the
	// same input always agree.
	dt := time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
	return ms, dt, true
}

var reAmount = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// parseAmount extracts a numeric value from a purchase amount string such as
// "$1,234.56". Returns nil when no numeric token survives comma-stripping;
// the verbatim string is kept on the message either way.
func parseAmount(s string) *float64 {
	token := reAmount.FindString(strings.ReplaceAll(s, ",", ""))
	if token == "" {
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return &v
}

// badgeClasses maps free-text badge labels to role flags by substring match.
// Labels are localized; keywords cover English and Japanese. New locales are
// additions to this table, not new code. The first matching class wins per
// badge; different badges can each set a different flag.
var badgeClasses = []struct {
	keywords []string
	set      func(*Author)
}{
	{[]string{"verified", "認証済み"}, func(a *Author) { a.IsVerified = true }},
	{[]string{"moderator", "モデレーター"}, func(a *Author) { a.IsChatModerator = true }},
	{[]string{"owner", "所有者"}, func(a *Author) { a.IsChatOwner = true }},
	{[]string{"member", "メンバー"}, func(a *Author) { a.IsChatSponsor = true }},
}

// parseAuthor extracts identity and role flags. Name and a resolvable avatar
// URL are required; without them the whole item is skipped.
//
// ChannelID rides in the avatar URL's path (5th "/"-separated segment), not
// in a dedicated field. This is a structural assumption about the platform's
// URL format; when it breaks, the item fails here rather than producing a
// message with fabricated identity.
func parseAuthor(r *rawRenderer) *Author {
	name := r.AuthorName.SimpleText
	avatar := r.AuthorPhoto.firstURL()
	if name == "" || avatar == "" {
		return nil
	}
	parts := strings.Split(avatar, "/")
	if len(parts) < 5 || parts[4] == "" {
		return nil
	}
	author := &Author{
		Name:       name,
		ChannelID:  parts[4],
		ChannelURL: "https://www.youtube.com/channel/" + parts[4],
		ImageURL:   avatar,
	}
	for _, b := range r.AuthorBadges {
		if b.Renderer == nil {
			continue
		}
		if u := b.Renderer.Icon.firstURL(); u != "" {
			author.BadgeURL = u
		} else if u := b.Renderer.CustomThumbnail.firstURL(); u != "" {
			author.BadgeURL = u
		}
		label := strings.ToLower(b.Renderer.Accessibility.AccessibilityData.Label)
		if label == "" {
			continue
		}
		for _, class := range badgeClasses {
			if containsAny(label, class.keywords) {
				class.set(author)
				break
			}
		}
	}
	return author
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
