package audit

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var orderingFields = map[string]bool{"created_at": true, "actor": true, "action": true}

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		QueryEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record stores evt and never fails: the audit trail must not affect the outcome of the operation being audited.
// Call it after the operation's transaction has committed.
func (svc *Service) Record(ctx context.Context, evt Event) {
	evt.CreatedAt = core.Now()
	if _, err := svc.repo.CreateEvent(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("failed to record audit event %s", evt.Action), errors.Wrap(err, "recording audit event"))
	}
}

// QueryRecent returns the latest events, newest first unless ordering says otherwise.
// Unknown ordering fields are ignored.
func (svc *Service) QueryRecent(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	} else if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	filter.Actor = core.CleanString(filter.Actor)
	filter.Action = core.CleanString(filter.Action)

	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if orderingFields[ord.Field] {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = append(ords, core.DBOrdering{Field: "created_at"})
	}

	events, err := svc.repo.QueryEvents(ctx, filter, ords)
	return events, errors.Wrap(err, "querying audit events")
}
