package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
)

type auditRow struct {
	ID         string      `db:"id"`
	Actor      string      `db:"actor"`
	Action     string      `db:"action"`
	EntityType null.String `db:"entity_type"`
	EntityID   null.String `db:"entity_id"`
	Detail     null.String `db:"detail"`
	CreatedAt  time.Time   `db:"created_at"`
}

type auditRepository struct {
	repository
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db core.DBExecutor) *auditRepository {
	return &auditRepository{repository{db: db}}
}

func (repo *auditRepository) CreateEvent(ctx context.Context, evt audit.Event, exec ...core.DBExecutor) (audit.Event, error) {
	if evt.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return audit.Event{}, errors.Wrap(err, "generating event id")
		}
		evt.ID = id.String()
	}

	row := auditRow{
		ID:         evt.ID,
		Actor:      evt.Actor,
		Action:     evt.Action,
		EntityType: null.NewString(evt.EntityType, evt.EntityType != ""),
		EntityID:   null.NewString(evt.EntityID, evt.EntityID != ""),
		Detail:     null.NewString(evt.Detail, evt.Detail != ""),
		CreatedAt:  evt.CreatedAt,
	}
	q := "INSERT INTO audit_events (id, actor, action, entity_type, entity_id, detail, created_at) " +
		"VALUES (:id, :actor, :action, :entity_type, :entity_id, :detail, :created_at)"
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return audit.Event{}, errors.Wrap(err, "inserting audit event")
	}
	return evt, nil
}

// QueryEvents expects ordering fields to be whitelisted by the caller.
func (repo *auditRepository) QueryEvents(ctx context.Context, filter audit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]audit.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Actor != "" {
		conds = append(conds, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}

	q := "SELECT id, actor, action, entity_type, entity_id, detail, created_at FROM audit_events"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		ords := make([]string, 0, len(ordering)+1)
		for _, ord := range ordering {
			ords = append(ords, ord.String())
		}
		// ids are time ordered
		ords = append(ords, core.DBOrdering{Field: "id", Ascending: ordering[0].Ascending}.String())
		q += " ORDER BY " + strings.Join(ords, ", ")
	}
	q += " LIMIT ?"
	args = append(args, filter.Limit)

	var rows []auditRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting audit events")
	}

	events := make([]audit.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, audit.Event{
			ID:         row.ID,
			Actor:      row.Actor,
			Action:     row.Action,
			EntityType: row.EntityType.String,
			EntityID:   row.EntityID.String,
			Detail:     row.Detail.String,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return events, nil
}
