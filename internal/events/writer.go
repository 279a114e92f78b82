package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"vontta/internal/domain"
)

// Writer appends audit entries to activity_logs.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append records one entry. When tx is nil the entry is written outside any
// transaction.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, action, userID, description string) error {
	switch action {
	case domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete:
	default:
		return fmt.Errorf("unknown activity action %q", action)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("activity description required")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	const q = `INSERT INTO activity_logs(user_id,action,description,ts) VALUES (?,?,?,?)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, q, nullable(userID), action, description, ts)
	} else {
		_, err = w.DB.ExecContext(ctx, q, nullable(userID), action, description, ts)
	}
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
