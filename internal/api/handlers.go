package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pathsetu/internal/history"
	"pathsetu/internal/models"
	"pathsetu/internal/persona"
	"pathsetu/internal/telegram"
	"pathsetu/internal/worker"
)

const (
	modeCallbackPrefix = "mode_"
	turnTimeout        = 3 * time.Minute

	msgBusy          = "⚠️ I'm handling a lot of messages right now. Please try again in a moment."
	msgModeSwitched  = "✅ Mode set to *%s*. Previous conversation cleared, let's start fresh!"
	msgUnknownUpdate = "I can work with text, voice notes, photos, and documents. Send me one of those!"
)

// TurnRunner executes one conversational turn end to end.
type TurnRunner interface {
	HandleTurn(ctx context.Context, in *models.Inbound) *models.Reply
}

// Messenger is the outbound bot surface the handler talks to.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard [][]telegram.InlineButton) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
	SendVoice(ctx context.Context, chatID int64, voice []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// JobSubmitter admits turn jobs for ordered per-chat execution.
type JobSubmitter interface {
	Submit(worker.Job) error
}

// Handler wires the webhook route to the turn pipeline and manages the
// command surface (/start, /mode) that runs outside the pipeline.
type Handler struct {
	pipeline TurnRunner
	tg       Messenger
	store    history.Store
	jobs     JobSubmitter
}

func NewHandler(pipeline TurnRunner, tg Messenger, store history.Store, jobs JobSubmitter) *Handler {
	return &Handler{
		pipeline: pipeline,
		tg:       tg,
		store:    store,
		jobs:     jobs,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook", h.handleWebhook)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// handleWebhook always answers 200: Telegram retries non-2xx responses
// and a retried update would double-process the turn. Failures are
// reported to the user in chat instead.
func (h *Handler) handleWebhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(c.Request.Context(), update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(c.Request.Context(), update.Message)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	if chatID == 0 {
		return
	}

	if cmd := commandOf(msg.Text); cmd != "" {
		h.handleCommand(ctx, chatID, cmd)
		return
	}

	job := worker.Job{
		ChatID: chatID,
		Run: func() {
			h.runTurn(msg)
		},
	}
	if err := h.jobs.Submit(job); err != nil {
		if errors.Is(err, worker.ErrDispatcherBusy) {
			h.send(ctx, chatID, msgBusy)
			return
		}
		log.Printf("submit turn for chat %d: %v", chatID, err)
		h.send(ctx, chatID, msgBusy)
	}
}

// runTurn executes inside a worker: fetch media, run the pipeline, and
// deliver whatever comes back.
func (h *Handler) runTurn(msg *telegram.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	chatID := msg.Chat.ID
	in, err := h.buildInbound(ctx, msg)
	if err != nil {
		log.Printf("build inbound for chat %d: %v", chatID, err)
		h.send(ctx, chatID, "⚠️ I couldn't fetch that file. Please try again.")
		return
	}
	if in == nil {
		h.send(ctx, chatID, msgUnknownUpdate)
		return
	}

	action := "typing"
	if in.Modality == models.ModalityVoice {
		action = "record_voice"
	}
	if err := h.tg.SendChatAction(ctx, chatID, action); err != nil {
		log.Printf("chat action for chat %d: %v", chatID, err)
	}

	reply := h.pipeline.HandleTurn(ctx, in)
	h.deliver(ctx, chatID, reply)
}

// buildInbound maps an update message onto the canonical inbound form,
// downloading whatever media it references. A nil inbound with nil
// error means the message carried nothing the bot understands.
func (h *Handler) buildInbound(ctx context.Context, msg *telegram.Message) (*models.Inbound, error) {
	chatID := msg.Chat.ID

	switch {
	case msg.Voice != nil || msg.Audio != nil:
		fileID, mime := "", ""
		if msg.Voice != nil {
			fileID, mime = msg.Voice.FileID, msg.Voice.MimeType
		} else {
			fileID, mime = msg.Audio.FileID, msg.Audio.MimeType
		}
		if mime == "" {
			mime = "audio/ogg"
		}
		data, err := h.tg.DownloadFile(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("download voice: %w", err)
		}
		return &models.Inbound{ChatID: chatID, Modality: models.ModalityVoice, Media: data, MimeType: mime}, nil

	case len(msg.Photo) > 0:
		best := msg.LargestPhoto()
		data, err := h.tg.DownloadFile(ctx, best.FileID)
		if err != nil {
			return nil, fmt.Errorf("download photo: %w", err)
		}
		return &models.Inbound{ChatID: chatID, Modality: models.ModalityPhoto, Text: msg.Caption, Media: data, MimeType: "image/jpeg"}, nil

	case msg.Document != nil:
		data, err := h.tg.DownloadFile(ctx, msg.Document.FileID)
		if err != nil {
			return nil, fmt.Errorf("download document: %w", err)
		}
		return &models.Inbound{
			ChatID:   chatID,
			Modality: models.ModalityDocument,
			Text:     msg.Caption,
			Media:    data,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
		}, nil

	case strings.TrimSpace(msg.Text) != "":
		return &models.Inbound{ChatID: chatID, Modality: models.ModalityText, Text: msg.Text}, nil
	}
	return nil, nil
}

func (h *Handler) deliver(ctx context.Context, chatID int64, reply *models.Reply) {
	if reply == nil {
		return
	}
	switch reply.Kind {
	case models.ReplyVoice:
		if err := h.tg.SendVoice(ctx, chatID, reply.Voice, reply.Caption); err != nil {
			log.Printf("send voice to chat %d: %v", chatID, err)
			h.send(ctx, chatID, reply.Caption)
		}
	default:
		h.send(ctx, chatID, reply.Text)
	}
	if len(reply.Image) > 0 {
		if err := h.tg.SendPhoto(ctx, chatID, reply.Image, ""); err != nil {
			log.Printf("send diagram to chat %d: %v", chatID, err)
		}
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, cmd string) {
	switch cmd {
	case "start":
		if err := h.store.Clear(ctx, chatID); err != nil {
			log.Printf("clear history for chat %d: %v", chatID, err)
		}
		h.send(ctx, chatID, greeting())
	case "mode":
		if err := h.tg.SendMessageWithKeyboard(ctx, chatID, "Choose how I should talk to you:", modeKeyboard()); err != nil {
			log.Printf("send mode keyboard to chat %d: %v", chatID, err)
		}
	default:
		h.send(ctx, chatID, "I know /start and /mode. Anything else, just say it!")
	}
}

// handleCallback applies an inline mode selection. Switching modes
// clears the history so the new persona starts without the old one's
// conversational residue.
func (h *Handler) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if err := h.tg.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Printf("answer callback %s: %v", cb.ID, err)
	}
	if cb.Message == nil || !strings.HasPrefix(cb.Data, modeCallbackPrefix) {
		return
	}
	chatID := cb.Message.Chat.ID
	mode := strings.TrimPrefix(cb.Data, modeCallbackPrefix)
	if !persona.Valid(mode) {
		h.send(ctx, chatID, "I don't know that mode. Try /mode again.")
		return
	}
	if err := h.store.SetMode(ctx, chatID, mode); err != nil {
		log.Printf("set mode for chat %d: %v", chatID, err)
		h.send(ctx, chatID, "⚠️ Couldn't switch modes. Please try again.")
		return
	}
	if err := h.store.Clear(ctx, chatID); err != nil {
		log.Printf("clear history for chat %d: %v", chatID, err)
	}
	h.send(ctx, chatID, fmt.Sprintf(msgModeSwitched, mode))
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := h.tg.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("send message to chat %d: %v", chatID, err)
	}
}

// commandOf extracts the bare command name from "/cmd" or "/cmd@botname".
func commandOf(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

func modeKeyboard() [][]telegram.InlineButton {
	modes := persona.Modes()
	keyboard := make([][]telegram.InlineButton, 0, (len(modes)+1)/2)
	for i := 0; i < len(modes); i += 2 {
		row := []telegram.InlineButton{{Text: titleCase(modes[i]), CallbackData: modeCallbackPrefix + modes[i]}}
		if i+1 < len(modes) {
			row = append(row, telegram.InlineButton{Text: titleCase(modes[i+1]), CallbackData: modeCallbackPrefix + modes[i+1]})
		}
		keyboard = append(keyboard, row)
	}
	return keyboard
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func greeting() string {
	var b strings.Builder
	b.WriteString("👋 Hi! I'm your study companion. Send me text, a voice note, a photo, or a document and I'll help you make sense of it.\n\n")
	b.WriteString("Use /mode to pick how I talk to you: ")
	b.WriteString(strings.Join(persona.Modes(), ", "))
	b.WriteString(".")
	return b.String()
}
