package ussd

// The aggregator's wire contract: a continuation reply starts with "CON ",
// a terminal reply starts with "END ". The prefix is how the telecom network
// decides whether to keep the session open.
const (
	conPrefix = "CON "
	endPrefix = "END "
)

// MaxResponseLen caps the rendered reply body. Gateways scroll long bodies
// across handset screens, so the limit only guards against runaway output;
// it must stay well above the longest renderable menu so no option line is
// ever clipped.
const MaxResponseLen = 640

// ReplyKind distinguishes continuation from terminal replies
type ReplyKind int

const (
	// ReplyCon keeps the session open and expects more input
	ReplyCon ReplyKind = iota
	// ReplyEnd closes the session; no further input is accepted
	ReplyEnd
)

// Reply is a single USSD response before wire encoding
type Reply struct {
	Kind ReplyKind
	Text string
}

// Con builds a continuation reply
func Con(text string) Reply {
	return Reply{Kind: ReplyCon, Text: text}
}

// End builds a terminal reply
func End(text string) Reply {
	return Reply{Kind: ReplyEnd, Text: text}
}

// Terminal reports whether this reply ends the session
func (r Reply) Terminal() bool {
	return r.Kind == ReplyEnd
}

// Render encodes the reply for the wire, truncating the body if the carrier
// limit would otherwise be exceeded
func (r Reply) Render() string {
	body := r.Text
	if runes := []rune(body); len(runes) > MaxResponseLen {
		body = string(runes[:MaxResponseLen])
	}
	if r.Kind == ReplyEnd {
		return endPrefix + body
	}
	return conPrefix + body
}
