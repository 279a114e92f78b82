// Package chat runs the team channels and the AI assistant that answers in
// them. A channel serves one send at a time; the lock lives in the channel
// row so every process sharing the database sees it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vontta/internal/domain"
)

var (
	ErrChannelLocked = errors.New("channel is busy with another message")
	ErrNotConfigured = errors.New("assistant not configured: missing API key")
)

// DefaultChannel is created on first run.
const DefaultChannel = "Geral"

const (
	assistantName       = "Gemini AI"
	defaultHistoryLimit = 15
	// Fixed width keeps created_at ordering lexical.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Store persists channels and messages. repo.Repo satisfies it.
type Store interface {
	InsertChannel(ctx context.Context, c domain.ChatChannel) error
	GetChannel(ctx context.Context, id string) (domain.ChatChannel, error)
	ListChannels(ctx context.Context) ([]domain.ChatChannel, error)
	DeleteChannel(ctx context.Context, id string) error
	LockChannel(ctx context.Context, id, userID string) (bool, error)
	UnlockChannel(ctx context.Context, id string) error
	InsertMessage(ctx context.Context, m domain.ChatMessage) error
	ListMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error)
}

// Settings are read on every send so live config changes apply.
type Settings struct {
	HistoryLimit      int
	SystemInstruction string
}

type Service struct {
	Store    Store
	Provider Provider // nil disables the assistant
	Settings func() Settings
	// UserName resolves message authors for the prompt.
	UserName func(id string) string
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s Service) now() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format(timeLayout)
}

func (s Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s Service) settings() Settings {
	var out Settings
	if s.Settings != nil {
		out = s.Settings()
	}
	if out.HistoryLimit <= 0 {
		out.HistoryLimit = defaultHistoryLimit
	}
	return out
}

// Configured reports whether sends can reach the assistant.
func (s Service) Configured() bool {
	return s.Provider != nil
}

func (s Service) CreateChannel(ctx context.Context, name string) (domain.ChatChannel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ChatChannel{}, domain.ValidationError{Field: "name", Message: "is required"}
	}
	c := domain.ChatChannel{ID: uuid.NewString(), Name: name, CreatedAt: s.now()}
	if err := s.Store.InsertChannel(ctx, c); err != nil {
		return domain.ChatChannel{}, fmt.Errorf("create channel: %w", err)
	}
	return c, nil
}

// EnsureDefaultChannel creates DefaultChannel when no channel exists.
func (s Service) EnsureDefaultChannel(ctx context.Context) error {
	channels, err := s.Store.ListChannels(ctx)
	if err != nil {
		return err
	}
	if len(channels) > 0 {
		return nil
	}
	_, err = s.CreateChannel(ctx, DefaultChannel)
	return err
}

func (s Service) Channels(ctx context.Context) ([]domain.ChatChannel, error) {
	return s.Store.ListChannels(ctx)
}

func (s Service) DeleteChannel(ctx context.Context, id string) error {
	return s.Store.DeleteChannel(ctx, id)
}

func (s Service) Messages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	if _, err := s.Store.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}
	return s.Store.ListMessages(ctx, channelID, limit)
}

// Send stores the user's message and the assistant's reply. While the reply
// is pending the channel is locked; a concurrent Send gets ErrChannelLocked.
// Assistant failures do not fail the send: the failure text is stored as the
// model's reply and returned as such.
func (s Service) Send(ctx context.Context, channelID, userID, content string) (domain.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, domain.ValidationError{Field: "content", Message: "is required"}
	}
	if s.Provider == nil {
		return domain.ChatMessage{}, ErrNotConfigured
	}
	channel, err := s.Store.GetChannel(ctx, channelID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	locked, err := s.Store.LockChannel(ctx, channelID, userID)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("lock channel: %w", err)
	}
	if !locked {
		return domain.ChatMessage{}, ErrChannelLocked
	}
	log := s.logger().With("channel_id", channelID, "user_id", userID)
	defer func() {
		// The unlock must happen even when the request context is gone.
		if err := s.Store.UnlockChannel(context.WithoutCancel(ctx), channelID); err != nil {
			log.Error("unlock channel failed", "error", err)
		}
	}()

	uid := userID
	if err := s.Store.InsertMessage(ctx, domain.ChatMessage{
		ID: uuid.NewString(), ChannelID: channelID, UserID: &uid,
		Role: domain.ChatRoleUser, Content: content, CreatedAt: s.now(),
	}); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("store message: %w", err)
	}

	set := s.settings()
	history, err := s.Store.ListMessages(ctx, channelID, set.HistoryLimit)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("load history: %w", err)
	}
	req := CompletionRequest{
		Prompt: s.prompt(history, userID, content),
		System: systemInstruction(set.SystemInstruction, channel.Name),
	}

	text := ""
	resp, err := s.Provider.Complete(ctx, req)
	if err != nil {
		log.Warn("assistant reply failed", "provider", s.Provider.ID(), "error", err)
		text = FailureReply(err)
	} else {
		text = resp.Text
		log.Debug("assistant replied", "model", resp.Model, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	}

	reply := domain.ChatMessage{
		ID: uuid.NewString(), ChannelID: channelID,
		Role: domain.ChatRoleModel, Content: text, CreatedAt: s.now(),
	}
	if err := s.Store.InsertMessage(context.WithoutCancel(ctx), reply); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("store reply: %w", err)
	}
	return reply, nil
}

func (s Service) name(id string) string {
	if s.UserName != nil {
		if n := s.UserName(id); n != "" {
			return n
		}
	}
	return id
}

func (s Service) prompt(history []domain.ChatMessage, userID, content string) string {
	var b strings.Builder
	b.WriteString("Histórico do canal:\n")
	for _, m := range history {
		author := assistantName
		if m.UserID != nil {
			author = s.name(*m.UserID)
		}
		fmt.Fprintf(&b, "%s: %s\n", author, m.Content)
	}
	fmt.Fprintf(&b, "\nO usuário %s disse: %s", s.name(userID), content)
	return b.String()
}

func systemInstruction(base, channel string) string {
	base = strings.TrimSpace(base)
	line := fmt.Sprintf("Você está no canal de chat %q.", channel)
	if base == "" {
		return line
	}
	return base + "\n" + line
}

// FailureReply is the text stored in place of an assistant answer.
func FailureReply(err error) string {
	msg := "Erro na IA."
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 404:
			msg += " (Modelo não encontrado)"
		case 401, 403:
			msg += " (Chave inválida)"
		}
	}
	return msg
}
