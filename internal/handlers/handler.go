package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/session"
	"monghwa-dream-gateway/internal/styles"
	"monghwa-dream-gateway/internal/telegram"
	"monghwa-dream-gateway/internal/textgroup"
)

type Messenger interface {
	SendText(chatID int64, text string) error
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	SendTyping(chatID int64)
	SendUploadingPhoto(chatID int64)
}

type Dreamer interface {
	InterpretResult(ctx context.Context, dreamText string) gemini.Result
	GenerateImageResult(ctx context.Context, dreamText, style string) gemini.Result
	Dream(ctx context.Context, dreamText, style string) (gemini.Result, gemini.Result)
}

type TextCollector interface {
	Add(item textgroup.Item)
}

type Options struct {
	Messenger Messenger
	Dreamer   Dreamer
	Sessions  *session.Store
	Logger    *slog.Logger
}

type Handler struct {
	tg       Messenger
	dreamer  Dreamer
	sessions *session.Store
	texts    TextCollector
	logger   *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Messenger,
		dreamer:  opts.Dreamer,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

// SetTextGroupAggregator routes plain text through a collector so split
// messages reach HandleTextGroup as one dream.
func (h *Handler) SetTextGroupAggregator(c TextCollector) {
	h.texts = c
}

func (h *Handler) HandleTextGroup(ctx context.Context, group textgroup.Group) error {
	text := group.Text()
	if text == "" {
		return nil
	}
	return h.interpret(ctx, group.ChatID, group.UserID, group.Username, text)
}

const helpText = "🌙 몽화 꿈 해몽\n\n" +
	"꿈 내용을 보내주시면 해몽해 드려요.\n\n" +
	"명령어:\n" +
	"/dream <꿈 내용> - 꿈 해몽\n" +
	"/image <꿈 내용> - 꿈 그림 (내용이 없으면 마지막 꿈)\n" +
	"/full <꿈 내용> - 해몽과 그림 함께\n" +
	"/style <화풍> - 그림 화풍 설정\n" +
	"/styles - 화풍 목록\n" +
	"/clear - 설정 초기화"

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	var userID int64
	var username string
	if msg.From != nil {
		userID = msg.From.ID
		username = msg.From.UserName
	} else {
		userID = msg.Chat.ID
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, username, msg)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if h.texts != nil {
		h.texts.Add(textgroup.Item{ChatID: chatID, UserID: userID, Username: username, Text: text})
		return nil
	}
	return h.interpret(ctx, chatID, userID, username, text)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, userID int64, username string, msg *telegram.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "dream":
		if args == "" {
			return h.tg.SendText(chatID, "❌ 꿈 내용을 입력해 주세요.\n예: /dream 돼지가 집에 들어왔어요")
		}
		return h.interpret(ctx, chatID, userID, username, args)
	case "image":
		dream := args
		if dream == "" {
			dream = h.sessions.Snapshot(userID, username).LastDream
		}
		if dream == "" {
			return h.tg.SendText(chatID, "❌ 그릴 꿈 내용을 입력해 주세요.\n예: /image 하늘을 나는 고래")
		}
		return h.illustrate(ctx, chatID, userID, username, dream)
	case "full":
		if args == "" {
			return h.tg.SendText(chatID, "❌ 꿈 내용을 입력해 주세요.\n예: /full 용이 승천하는 꿈")
		}
		return h.full(ctx, chatID, userID, username, args)
	case "style":
		if args == "" {
			current := h.sessions.Snapshot(userID, username).Style
			return h.tg.SendText(chatID, fmt.Sprintf("현재 화풍: %s\n\n%s", displayStyle(current), styleList()))
		}
		style := styles.Resolve(args)
		h.sessions.SetStyle(userID, username, style)
		return h.tg.SendText(chatID, fmt.Sprintf("✅ 화풍이 %q(으)로 설정되었어요.", style))
	case "styles":
		return h.tg.SendText(chatID, styleList())
	case "clear":
		h.sessions.Clear(userID)
		return h.tg.SendText(chatID, "✅ 설정이 초기화되었어요.")
	default:
		return h.tg.SendText(chatID, "❌ 알 수 없는 명령어예요. /help 를 확인해 주세요.")
	}
}

func (h *Handler) interpret(ctx context.Context, chatID int64, userID int64, username, dream string) error {
	h.tg.SendTyping(chatID)
	h.sessions.RememberDream(userID, username, dream)

	res := h.dreamer.InterpretResult(ctx, dream)
	h.logResult(res, chatID)
	return h.tg.SendText(chatID, res.String())
}

func (h *Handler) illustrate(ctx context.Context, chatID int64, userID int64, username, dream string) error {
	h.tg.SendUploadingPhoto(chatID)
	style := h.sessions.Snapshot(userID, username).Style

	res := h.dreamer.GenerateImageResult(ctx, dream, style)
	h.logResult(res, chatID)
	return h.sendImage(chatID, res, imageCaption(style))
}

func (h *Handler) full(ctx context.Context, chatID int64, userID int64, username, dream string) error {
	h.tg.SendTyping(chatID)
	h.sessions.RememberDream(userID, username, dream)
	style := h.sessions.Snapshot(userID, username).Style

	interpretation, image := h.dreamer.Dream(ctx, dream, style)
	h.logResult(interpretation, chatID)
	h.logResult(image, chatID)

	if err := h.tg.SendText(chatID, interpretation.String()); err != nil {
		return err
	}
	return h.sendImage(chatID, image, imageCaption(style))
}

func (h *Handler) sendImage(chatID int64, res gemini.Result, caption string) error {
	if res.Kind != gemini.KindImage {
		return h.tg.SendText(chatID, res.String())
	}
	if err := h.tg.SendPhotoDataURL(chatID, res.String(), caption); err != nil {
		h.logger.Error("send photo failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ 그림을 보내는 중 오류가 발생했어요. 다시 시도해 주세요.")
	}
	return nil
}

func (h *Handler) logResult(res gemini.Result, chatID int64) {
	if res.Kind != gemini.KindError {
		return
	}
	h.logger.Warn("dream pipeline failed",
		"chat_id", chatID,
		"pipeline", string(res.Pipeline),
		"cause", res.Failure.Cause.String(),
	)
}

func imageCaption(style string) string {
	if style == "" {
		return "🎨 꿈 그림"
	}
	return "🎨 " + style + " 꿈 그림"
}

func displayStyle(style string) string {
	if style == "" {
		return "(기본)"
	}
	return style
}

func styleList() string {
	var b strings.Builder
	b.WriteString("🎨 화풍 목록 (/style <키> 또는 자유 입력)\n")
	for _, s := range styles.All() {
		fmt.Fprintf(&b, "\n%s - %s", s.Key, s.Name)
	}
	return b.String()
}
