package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/session"
	"monghwa-dream-gateway/internal/textgroup"
)

type sentPhoto struct {
	dataURL string
	caption string
}

type fakeMessenger struct {
	mu       sync.Mutex
	texts    []string
	photos   []sentPhoto
	photoErr error
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendPhotoDataURL(chatID int64, dataURL string, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return f.photoErr
	}
	f.photos = append(f.photos, sentPhoto{dataURL: dataURL, caption: caption})
	return nil
}

func (f *fakeMessenger) SendTyping(chatID int64) {}

func (f *fakeMessenger) SendUploadingPhoto(chatID int64) {}

type imageCall struct {
	dream string
	style string
}

type fakeDreamer struct {
	mu          sync.Mutex
	interpreted []string
	images      []imageCall
	imageResult gemini.Result
}

func (f *fakeDreamer) InterpretResult(ctx context.Context, dreamText string) gemini.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interpreted = append(f.interpreted, dreamText)
	return gemini.Result{Pipeline: gemini.PipelineInterpretation, Kind: gemini.KindText, Value: "해몽:" + dreamText}
}

func (f *fakeDreamer) GenerateImageResult(ctx context.Context, dreamText, style string) gemini.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, imageCall{dream: dreamText, style: style})
	if f.imageResult.Pipeline != "" {
		return f.imageResult
	}
	return gemini.Result{Pipeline: gemini.PipelineImage, Kind: gemini.KindImage, Value: "QUJD"}
}

func (f *fakeDreamer) Dream(ctx context.Context, dreamText, style string) (gemini.Result, gemini.Result) {
	return f.InterpretResult(ctx, dreamText), f.GenerateImageResult(ctx, dreamText, style)
}

func newTestHandler() (*Handler, *fakeMessenger, *fakeDreamer) {
	tg := &fakeMessenger{}
	dreamer := &fakeDreamer{}
	h := New(Options{
		Messenger: tg,
		Dreamer:   dreamer,
		Sessions:  session.NewStore(session.Options{DefaultStyle: "수채화"}),
	})
	return h, tg, dreamer
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 100},
		From: &tgbotapi.User{ID: 42, UserName: "dreamer"},
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestPlainTextIsInterpreted(t *testing.T) {
	h, tg, dreamer := newTestHandler()

	if err := h.HandleUpdate(context.Background(), textUpdate("돼지가 집에 들어왔어요")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(dreamer.interpreted) != 1 || dreamer.interpreted[0] != "돼지가 집에 들어왔어요" {
		t.Fatalf("interpret calls mismatch: %#v", dreamer.interpreted)
	}
	if len(tg.texts) != 1 || tg.texts[0] != "🌙 해몽:돼지가 집에 들어왔어요" {
		t.Fatalf("sent texts mismatch: %#v", tg.texts)
	}
}

func TestImageUsesSessionStyleAndLastDream(t *testing.T) {
	h, tg, dreamer := newTestHandler()
	ctx := context.Background()

	for _, text := range []string{"/style anime", "/dream 바다 위를 걷는 꿈", "/image"} {
		if err := h.HandleUpdate(ctx, textUpdate(text)); err != nil {
			t.Fatalf("HandleUpdate(%q) failed: %v", text, err)
		}
	}

	if len(dreamer.images) != 1 {
		t.Fatalf("expected one image call, got %#v", dreamer.images)
	}
	if got := dreamer.images[0]; got.dream != "바다 위를 걷는 꿈" || got.style != "애니" {
		t.Fatalf("image call mismatch: %#v", got)
	}
	if len(tg.photos) != 1 || tg.photos[0].dataURL != "data:image/png;base64,QUJD" {
		t.Fatalf("photos mismatch: %#v", tg.photos)
	}
	if tg.photos[0].caption != "🎨 애니 꿈 그림" {
		t.Fatalf("caption mismatch: %q", tg.photos[0].caption)
	}
}

func TestImageWithoutDreamAsksForText(t *testing.T) {
	h, tg, dreamer := newTestHandler()

	if err := h.HandleUpdate(context.Background(), textUpdate("/image")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(dreamer.images) != 0 {
		t.Fatalf("no image call expected")
	}
	if len(tg.texts) != 1 || !strings.HasPrefix(tg.texts[0], "❌") {
		t.Fatalf("texts mismatch: %#v", tg.texts)
	}
}

func TestImageErrorIsSentAsText(t *testing.T) {
	h, tg, dreamer := newTestHandler()
	dreamer.imageResult = gemini.Result{
		Pipeline: gemini.PipelineImage,
		Kind:     gemini.KindError,
		Failure:  &gemini.Failure{Cause: gemini.CauseProviderError, StatusCode: 403, Body: `{"error":"forbidden"}`},
	}

	if err := h.HandleUpdate(context.Background(), textUpdate("/image 고래")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(tg.photos) != 0 {
		t.Fatalf("no photo expected")
	}
	if len(tg.texts) != 1 || tg.texts[0] != `🎨 오류 (403): {"error":"forbidden"}` {
		t.Fatalf("texts mismatch: %#v", tg.texts)
	}
}

func TestPhotoSendFailureFallsBackToText(t *testing.T) {
	h, tg, _ := newTestHandler()
	tg.photoErr = errors.New("upload failed")

	if err := h.HandleUpdate(context.Background(), textUpdate("/image 고래")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(tg.texts) != 1 || !strings.HasPrefix(tg.texts[0], "❌") {
		t.Fatalf("texts mismatch: %#v", tg.texts)
	}
}

func TestFullSendsBoth(t *testing.T) {
	h, tg, dreamer := newTestHandler()

	if err := h.HandleUpdate(context.Background(), textUpdate("/full 용꿈")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(dreamer.interpreted) != 1 || len(dreamer.images) != 1 {
		t.Fatalf("both pipelines should run: %#v %#v", dreamer.interpreted, dreamer.images)
	}
	if dreamer.images[0].style != "수채화" {
		t.Fatalf("default style mismatch: %q", dreamer.images[0].style)
	}
	if len(tg.texts) != 1 || len(tg.photos) != 1 {
		t.Fatalf("sent mismatch: %#v %#v", tg.texts, tg.photos)
	}
}

func TestStyleCommands(t *testing.T) {
	h, tg, _ := newTestHandler()
	ctx := context.Background()

	for _, text := range []string{"/style", "/style 네온 느와르", "/styles", "/clear", "/style"} {
		if err := h.HandleUpdate(ctx, textUpdate(text)); err != nil {
			t.Fatalf("HandleUpdate(%q) failed: %v", text, err)
		}
	}

	if len(tg.texts) != 5 {
		t.Fatalf("expected 5 replies, got %#v", tg.texts)
	}
	if !strings.HasPrefix(tg.texts[0], "현재 화풍: 수채화") {
		t.Fatalf("current style reply mismatch: %q", tg.texts[0])
	}
	if !strings.Contains(tg.texts[1], "네온 느와르") {
		t.Fatalf("set style reply mismatch: %q", tg.texts[1])
	}
	if !strings.Contains(tg.texts[2], "watercolor - 수채화") {
		t.Fatalf("styles list mismatch: %q", tg.texts[2])
	}
	if !strings.HasPrefix(tg.texts[4], "현재 화풍: 수채화") {
		t.Fatalf("clear should restore the default style: %q", tg.texts[4])
	}
}

func TestUnknownCommandAndEmptyUpdates(t *testing.T) {
	h, tg, _ := newTestHandler()
	ctx := context.Background()

	if err := h.HandleUpdate(ctx, tgbotapi.Update{}); err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	if err := h.HandleUpdate(ctx, textUpdate("/nope")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(tg.texts) != 1 || !strings.Contains(tg.texts[0], "/help") {
		t.Fatalf("texts mismatch: %#v", tg.texts)
	}
}

type collectorFunc func(textgroup.Item)

func (f collectorFunc) Add(item textgroup.Item) { f(item) }

func TestPlainTextGoesThroughCollector(t *testing.T) {
	h, tg, dreamer := newTestHandler()
	var items []textgroup.Item
	h.SetTextGroupAggregator(collectorFunc(func(item textgroup.Item) {
		items = append(items, item)
	}))

	for _, text := range []string{"어젯밤 꿈에", "/help"} {
		if err := h.HandleUpdate(context.Background(), textUpdate(text)); err != nil {
			t.Fatalf("HandleUpdate(%q) failed: %v", text, err)
		}
	}
	if len(items) != 1 || items[0].Text != "어젯밤 꿈에" || items[0].UserID != 42 || items[0].ChatID != 100 {
		t.Fatalf("collected items mismatch: %#v", items)
	}
	if len(dreamer.interpreted) != 0 {
		t.Fatalf("plain text should wait for the group flush")
	}
	if len(tg.texts) != 1 {
		t.Fatalf("commands should bypass the collector: %#v", tg.texts)
	}

	group := textgroup.Group{ChatID: 100, UserID: 42, Username: "dreamer", Parts: []string{"어젯밤 꿈에", "뱀이 나왔어요"}}
	if err := h.HandleTextGroup(context.Background(), group); err != nil {
		t.Fatalf("HandleTextGroup failed: %v", err)
	}
	if len(dreamer.interpreted) != 1 || dreamer.interpreted[0] != "어젯밤 꿈에\n뱀이 나왔어요" {
		t.Fatalf("interpret calls mismatch: %#v", dreamer.interpreted)
	}
	if got := h.sessions.Snapshot(42, "dreamer").LastDream; got != "어젯밤 꿈에\n뱀이 나왔어요" {
		t.Fatalf("last dream mismatch: %q", got)
	}
}
