package tabula

import (
	"context"
	"fmt"

	"github.com/aretw0/tabula/pkg/domain"
)

// Persist stores the table snapshot under sessionID.
func (t *Table) Persist(ctx context.Context, sessionID string) error {
	snap, err := t.current()
	if err != nil {
		return err
	}
	if t.client.sessions == nil {
		return ErrNoStore
	}
	return t.client.sessions.Save(ctx, sessionID, domain.StoredSnapshot{Kind: domain.KindTable, Data: snap})
}

// Persist stores the dashboard snapshot under sessionID.
func (d *Dashboard) Persist(ctx context.Context, sessionID string) error {
	if d.client.sessions == nil {
		return ErrNoStore
	}
	return d.client.sessions.Save(ctx, sessionID, domain.StoredSnapshot{
		Kind:  domain.KindDashboard,
		Data:  d.snap,
		Title: d.title,
	})
}

func (c *Client) resume(ctx context.Context, sessionID string, kind domain.SnapshotKind) (domain.StoredSnapshot, error) {
	if c.sessions == nil {
		return domain.StoredSnapshot{}, ErrNoStore
	}
	stored, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return domain.StoredSnapshot{}, err
	}
	if stored.Kind != kind {
		return domain.StoredSnapshot{}, fmt.Errorf("session %q holds a %s, not a %s", sessionID, stored.Kind, kind)
	}
	return stored, nil
}

// Resume returns a table handle on a stored table session.
func (c *Client) Resume(ctx context.Context, sessionID string) (*Table, error) {
	stored, err := c.resume(ctx, sessionID, domain.KindTable)
	if err != nil {
		return nil, err
	}
	return &Table{client: c, snap: stored.Data}, nil
}

// ResumeDashboard returns a dashboard handle on a stored dashboard session.
func (c *Client) ResumeDashboard(ctx context.Context, sessionID string) (*Dashboard, error) {
	stored, err := c.resume(ctx, sessionID, domain.KindDashboard)
	if err != nil {
		return nil, err
	}
	return &Dashboard{client: c, snap: stored.Data, title: stored.Title}, nil
}

// UpdateTable runs fn on the stored table under the session lock and stores
// the result. When fn fails the stored snapshot is left as it was.
func (c *Client) UpdateTable(ctx context.Context, sessionID string, fn func(ctx context.Context, t *Table) error) (*Table, error) {
	if c.sessions == nil {
		return nil, ErrNoStore
	}
	var table *Table
	_, err := c.sessions.Update(ctx, sessionID, func(ctx context.Context, current domain.StoredSnapshot, found bool) (domain.StoredSnapshot, error) {
		if !found {
			return domain.StoredSnapshot{}, fmt.Errorf("session %q: %w", sessionID, ErrSnapshotNotFound)
		}
		if current.Kind != domain.KindTable {
			return domain.StoredSnapshot{}, fmt.Errorf("session %q holds a %s, not a table", sessionID, current.Kind)
		}
		table = &Table{client: c, snap: current.Data}
		if err := fn(ctx, table); err != nil {
			return domain.StoredSnapshot{}, err
		}
		return domain.StoredSnapshot{Kind: domain.KindTable, Data: table.snap}, nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}
