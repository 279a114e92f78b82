package repo

import (
	"context"
	"database/sql"

	"vontta/internal/domain"
)

func (r Repo) InsertChannel(ctx context.Context, c domain.ChatChannel) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO chat_channels(id,name,is_locked,locked_by,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.Name, c.IsLocked, nullable(c.LockedBy), c.CreatedAt)
	return err
}

func (r Repo) GetChannel(ctx context.Context, id string) (domain.ChatChannel, error) {
	var c domain.ChatChannel
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,is_locked,COALESCE(locked_by,''),created_at FROM chat_channels WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.IsLocked, &c.LockedBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListChannels(ctx context.Context) ([]domain.ChatChannel, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,is_locked,COALESCE(locked_by,''),created_at FROM chat_channels ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ChatChannel{}
	for rows.Next() {
		var c domain.ChatChannel
		if err := rows.Scan(&c.ID, &c.Name, &c.IsLocked, &c.LockedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteChannel(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM chat_channels WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// LockChannel marks the channel busy for userID. It reports false when the
// channel was already locked.
func (r Repo) LockChannel(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE chat_channels SET is_locked=1, locked_by=? WHERE id=? AND is_locked=0`, nullable(userID), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetChannel(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r Repo) UnlockChannel(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE chat_channels SET is_locked=0, locked_by=NULL WHERE id=?`, id)
	return err
}

func (r Repo) InsertMessage(ctx context.Context, m domain.ChatMessage) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO chat_messages(id,channel_id,user_id,role,content,created_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.ChannelID, nullableStringPtr(m.UserID), m.Role, m.Content, m.CreatedAt)
	return err
}

// ListMessages returns the channel's messages in chronological order. With a
// positive limit only the most recent limit messages are returned.
func (r Repo) ListMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	query := `SELECT id,channel_id,user_id,role,content,created_at FROM chat_messages WHERE channel_id=? ORDER BY created_at DESC, rowid DESC`
	args := []any{channelID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var userID sql.NullString
		if err := rows.Scan(&m.ID, &m.ChannelID, &userID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			m.UserID = &userID.String
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}
