package engine

import (
	"context"
	"io"

	"vontta/internal/archive"
	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/report"
)

// CloseWeek archives the live week and clears it. Admin only.
func (e Engine) CloseWeek(ctx context.Context, actorID string) (archive.CloseResult, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return archive.CloseResult{}, err
	}
	return e.archiver().CloseWeek(ctx, actor.ID)
}

// archiver picks up the clock and the period settings current at call time.
func (e Engine) archiver() archive.Archiver {
	a := e.Archive
	cfg := e.cfg()
	a.Now = e.now
	if a.Audit != nil {
		a.Audit = e.audit()
	}
	a.Location = cfg.Location()
	a.PeriodStart = cfg.Week.PeriodStart
	return a
}

func (e Engine) RenameHistory(ctx context.Context, actorID, id, title string) (domain.WeeklyHistory, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return domain.WeeklyHistory{}, err
	}
	return e.archiver().RenameHistory(ctx, actor.ID, id, title)
}

func (e Engine) ListHistory(ctx context.Context) ([]domain.WeeklyHistory, error) {
	return e.Repo.ListHistory(ctx)
}

func (e Engine) GetHistory(ctx context.Context, id string) (domain.WeeklyHistory, error) {
	return e.Repo.GetHistory(ctx, id)
}

// Report derives the report rows of one history record, resolving names
// through the cache.
func (e Engine) Report(ctx context.Context, id string) (archive.Report, error) {
	h, err := e.Repo.GetHistory(ctx, id)
	if err != nil {
		return archive.Report{}, err
	}
	return archive.DeriveReport(h, archive.ProjectNames(e.Cache), archive.UserNames(e.Cache)), nil
}

// ExportHistory writes the report of one history record as xlsx.
func (e Engine) ExportHistory(ctx context.Context, id string, w io.Writer) error {
	h, err := e.Repo.GetHistory(ctx, id)
	if err != nil {
		return err
	}
	rep := archive.DeriveReport(h, archive.ProjectNames(e.Cache), archive.UserNames(e.Cache))
	return report.WriteXLSX(w, rep, domain.FormatDateBR(h.CreatedAt, e.cfg().Location()))
}

// Activity returns the latest audit entries, newest first.
func (e Engine) Activity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = cache.DefaultActivityLimit
	}
	return e.Repo.LatestActivity(ctx, limit)
}

func (e Engine) ChatChannels(ctx context.Context) ([]domain.ChatChannel, error) {
	return e.Chat.Channels(ctx)
}

func (e Engine) CreateChatChannel(ctx context.Context, actorID, name string) (domain.ChatChannel, error) {
	if _, err := e.actor(ctx, actorID); err != nil {
		return domain.ChatChannel{}, err
	}
	c, err := e.Chat.CreateChannel(ctx, name)
	if err != nil {
		return domain.ChatChannel{}, err
	}
	e.Cache.Announce(cache.TableChatChannels)
	return c, nil
}

func (e Engine) DeleteChatChannel(ctx context.Context, actorID, id string) error {
	if _, err := e.admin(ctx, actorID); err != nil {
		return err
	}
	if err := e.Chat.DeleteChannel(ctx, id); err != nil {
		return err
	}
	e.Cache.Announce(cache.TableChatChannels)
	return nil
}

func (e Engine) ChatMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	return e.Chat.Messages(ctx, channelID, limit)
}

// SendChat posts a message and returns the assistant's reply.
func (e Engine) SendChat(ctx context.Context, actorID, channelID, content string) (domain.ChatMessage, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	reply, err := e.Chat.Send(ctx, channelID, actor.ID, content)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	e.Cache.Announce(cache.TableChatMessages)
	return reply, nil
}
