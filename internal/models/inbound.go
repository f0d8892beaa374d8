package models

// Modality identifies which payload of an inbound message is populated.
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityVoice    Modality = "voice"
	ModalityPhoto    Modality = "photo"
	ModalityDocument Modality = "document"
)

// Inbound is one typed message delivered by the messaging transport.
// Exactly one modality payload is populated per message.
type Inbound struct {
	ChatID   int64
	Modality Modality

	// Text holds the raw text for text messages, or the caption for
	// photo/document messages.
	Text string

	// Media holds the downloaded payload for voice/photo/document messages.
	Media []byte

	// FileName and MimeType describe document payloads.
	FileName string
	MimeType string
}
