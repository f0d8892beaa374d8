package models

// ReplyKind selects the delivery channel for an outbound reply.
type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyVoice ReplyKind = "voice"
)

// Reply is the rendered result of one conversational turn. Text is always
// populated; Voice and Image are optional side-channel attachments.
type Reply struct {
	Kind ReplyKind

	// Text is the full textual reply. It is never truncated.
	Text string

	// Caption is the shortened text accompanying a voice attachment.
	Caption string

	// Voice holds synthesized speech audio when Kind is ReplyVoice.
	Voice []byte

	// Image holds a rendered diagram to send as a photo attachment.
	Image []byte
}
