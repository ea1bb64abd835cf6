package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/group"
)

var (
	// errors
	ErrNotFound       = errors.New("message not found")
	ErrReactionExists = errors.New("reaction already exists")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message, exec ...core.DBExecutor) (Message, error)
		GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns the group's `limit` most recent live messages, oldest first.
		QueryMessages(ctx context.Context, groupID string, limit int, exec ...core.DBExecutor) ([]Message, error)
		// PurgeExcess permanently deletes the group's oldest live messages beyond the `keep` most recent ones.
		PurgeExcess(ctx context.Context, groupID string, keep int, exec ...core.DBExecutor) (int, error)
		// UpdateState moves the message to `to` if its current state is one of `from`.
		UpdateState(ctx context.Context, id string, from []State, to State, exec ...core.DBExecutor) (bool, error)
		// QueryReactions returns the reactions of the given messages in reaction order.
		QueryReactions(ctx context.Context, messageIDs []string, exec ...core.DBExecutor) ([]Reaction, error)
		CreateReaction(ctx context.Context, r Reaction, exec ...core.DBExecutor) error
		DeleteReaction(ctx context.Context, r Reaction, exec ...core.DBExecutor) (bool, error)
		// QueryReported returns reported messages created after `since`, newest first.
		QueryReported(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]ReportedMessage, error)
		GetLastActivity(ctx context.Context, author string, exec ...core.DBExecutor) (LastActivity, error)
	}

	Service struct {
		db           core.DB
		repo         Repository
		groupRepo    group.Repository
		auditSvc     *audit.Service
		notifier     core.Notifier
		reportWindow time.Duration
	}
)

func NewService(
	db core.DB,
	repo Repository,
	groupRepo group.Repository,
	auditSvc *audit.Service,
	notifier core.Notifier,
	conf *core.Config,
) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		groupRepo:    groupRepo,
		auditSvc:     auditSvc,
		notifier:     notifier,
		reportWindow: conf.Moderation.ReportWindow,
	}
}

// Add posts a message from a group member, then purges the oldest live messages beyond RetentionLimit.
// Two concurrent posts may briefly leave RetentionLimit+1 live messages; the next post trims them.
func (svc *Service) Add(ctx context.Context, groupID, author string, nm NewMessage) (Message, error) {
	var msg Message
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		isMember, err := svc.groupRepo.IsMember(ctx, groupID, author, tx)
		if err != nil {
			return errors.Wrap(err, "checking membership")
		}
		if !isMember {
			return core.ErrNotMember
		}

		text := Sanitize(nm.Text)
		if text == "" {
			return core.ErrEmptyMessage
		}

		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "generating message id")
		}
		msg, err = svc.repo.CreateMessage(ctx, Message{
			ID:        id.String(),
			GroupID:   groupID,
			Author:    author,
			Text:      text,
			State:     StateActive,
			CreatedAt: core.Now(),
			Reactions: Reactions{},
		}, tx)
		if err != nil {
			return errors.Wrap(err, "creating message")
		}

		_, err = svc.repo.PurgeExcess(ctx, groupID, RetentionLimit, tx)
		return errors.Wrap(err, "purging old messages")
	})
	if err != nil {
		return Message{}, err
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      author,
		Action:     audit.ActionMessagePosted,
		EntityType: audit.EntityMessage,
		EntityID:   msg.ID,
		Detail:     "Group: " + groupID,
	})
	svc.notify(core.Event{Type: core.EventMessageCreated, GroupID: groupID, Data: msg})
	return msg, nil
}

// Query returns the group's live messages, oldest first, with their reactions.
func (svc *Service) Query(ctx context.Context, groupID string) ([]Message, error) {
	if _, err := svc.groupRepo.GetGroup(ctx, group.GetFilter{ID: groupID}); err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return nil, core.ErrGroupNotFound
		}
		return nil, errors.Wrap(err, "finding group")
	}

	msgs, err := svc.repo.QueryMessages(ctx, groupID, RetentionLimit)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	if len(msgs) == 0 {
		return []Message{}, nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	reactions, err := svc.repo.QueryReactions(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying reactions")
	}

	byMsg := make(map[string]Reactions, len(msgs))
	for _, r := range reactions {
		if byMsg[r.MessageID] == nil {
			byMsg[r.MessageID] = make(Reactions)
		}
		byMsg[r.MessageID][r.Emoji] = append(byMsg[r.MessageID][r.Emoji], r.UserName)
	}
	for i := range msgs {
		if rs, ok := byMsg[msgs[i].ID]; ok {
			msgs[i].Reactions = rs
		} else {
			msgs[i].Reactions = Reactions{}
		}
	}
	return msgs, nil
}

// getGroupMessage returns the message if it belongs to groupID. An empty groupID matches any group.
func (svc *Service) getGroupMessage(ctx context.Context, groupID, messageID string, exec ...core.DBExecutor) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Message{}, core.ErrMessageNotFound
		}
		return Message{}, errors.Wrap(err, "finding message")
	}
	if groupID != "" && msg.GroupID != groupID {
		return Message{}, core.ErrMessageNotFound
	}
	return msg, nil
}

// Report flags a message for moderation. Reporting an already reported message succeeds without change.
func (svc *Service) Report(ctx context.Context, groupID, messageID, reporter string) error {
	msg, err := svc.getGroupMessage(ctx, groupID, messageID)
	if err != nil {
		return err
	}

	switch msg.State {
	case StateDeleted:
		return core.ErrMessageDeleted
	case StateActive:
		updated, err := svc.repo.UpdateState(ctx, msg.ID, Sources(StateReported), StateReported)
		if err != nil {
			return errors.Wrap(err, "reporting message")
		}
		if !updated {
			// deleted or reported in the meantime
			if msg, err = svc.getGroupMessage(ctx, groupID, messageID); err != nil {
				return err
			}
			if msg.State == StateDeleted {
				return core.ErrMessageDeleted
			}
		}
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      reporter,
		Action:     audit.ActionMessageReported,
		EntityType: audit.EntityMessage,
		EntityID:   msg.ID,
		Detail:     "Group: " + msg.GroupID,
	})
	return nil
}

// Resolve clears the report flag of a message. Admins only.
func (svc *Service) Resolve(ctx context.Context, messageID string, actor Actor) error {
	if !actor.IsAdmin {
		return core.ErrNotOwner
	}
	msg, err := svc.getGroupMessage(ctx, "", messageID)
	if err != nil {
		return err
	}
	if msg.State == StateDeleted {
		return core.ErrMessageDeleted
	}

	if _, err = svc.repo.UpdateState(ctx, msg.ID, Sources(StateActive), StateActive); err != nil {
		return errors.Wrap(err, "resolving message")
	}
	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      actor.Name,
		Action:     audit.ActionMessageResolved,
		EntityType: audit.EntityMessage,
		EntityID:   msg.ID,
		Detail:     "Group: " + msg.GroupID,
	})
	return nil
}

// Delete soft-deletes a message. Admins may delete any message, otherwise only the group owner may.
// groupID may be empty for admins.
func (svc *Service) Delete(ctx context.Context, groupID, messageID string, actor Actor) error {
	if !actor.IsAdmin {
		grp, err := svc.groupRepo.GetGroup(ctx, group.GetFilter{ID: groupID})
		if err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return core.ErrGroupNotFound
			}
			return errors.Wrap(err, "finding group")
		}
		if grp.CreatorName != actor.Name {
			return core.ErrNotOwner
		}
	}

	msg, err := svc.getGroupMessage(ctx, groupID, messageID)
	if err != nil {
		return err
	}
	if msg.State == StateDeleted {
		return nil
	}

	if _, err = svc.repo.UpdateState(ctx, msg.ID, Sources(StateDeleted), StateDeleted); err != nil {
		return errors.Wrap(err, "deleting message")
	}

	detail := "Group: " + msg.GroupID
	if actor.IsAdmin {
		detail += " (admin)"
	}
	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      actor.Name,
		Action:     audit.ActionMessageDeleted,
		EntityType: audit.EntityMessage,
		EntityID:   msg.ID,
		Detail:     detail,
	})
	svc.notify(core.Event{Type: core.EventMessageDeleted, GroupID: msg.GroupID, Data: map[string]interface{}{"id": msg.ID}})
	return nil
}

// ToggleReaction adds the user's reaction to a live message, or removes it if present.
func (svc *Service) ToggleReaction(ctx context.Context, messageID, userName, emoji string) (ReactionAction, error) {
	if !IsAllowedEmoji(emoji) {
		return "", core.ErrInvalidEmoji
	}

	var (
		msg    Message
		action ReactionAction
	)
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if msg, err = svc.getGroupMessage(ctx, "", messageID, tx); err != nil {
			return err
		}
		if !msg.State.IsLive() {
			return core.ErrMessageNotFound
		}

		r := Reaction{MessageID: msg.ID, UserName: userName, Emoji: emoji, CreatedAt: core.Now()}
		removed, err := svc.repo.DeleteReaction(ctx, r, tx)
		if err != nil {
			return errors.Wrap(err, "removing reaction")
		}
		if removed {
			action = ReactionRemoved
			return nil
		}
		action = ReactionAdded
		return errors.Wrap(svc.repo.CreateReaction(ctx, r, tx), "adding reaction")
	})
	if err != nil {
		return "", err
	}

	auditAction := audit.ActionReactionAdded
	if action == ReactionRemoved {
		auditAction = audit.ActionReactionRemoved
	}
	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      userName,
		Action:     auditAction,
		EntityType: audit.EntityMessage,
		EntityID:   msg.ID,
		Detail:     "Emoji: " + emoji,
	})
	svc.notify(core.Event{
		Type:    core.EventReactionToggled,
		GroupID: msg.GroupID,
		Data:    map[string]interface{}{"messageId": msg.ID, "userName": userName, "emoji": emoji, "action": action},
	})
	return action, nil
}

// QueryReported lists the reported, non-deleted messages of the moderation window, newest first.
func (svc *Service) QueryReported(ctx context.Context) ([]ReportedMessage, error) {
	msgs, err := svc.repo.QueryReported(ctx, core.Now().Add(-svc.reportWindow))
	return msgs, errors.Wrap(err, "querying reported messages")
}

// LastActivity returns the user's latest live message, or nil if they never posted.
func (svc *Service) LastActivity(ctx context.Context, userName string) (*LastActivity, error) {
	act, err := svc.repo.GetLastActivity(ctx, userName)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding last activity")
	}
	return &act, nil
}

func (svc *Service) notify(evt core.Event) {
	if svc.notifier != nil {
		svc.notifier.Notify(evt)
	}
}

