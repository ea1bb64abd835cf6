package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/storage/database"
)

const messageColumns = "id, group_id, author, text, state, created_at"

type messageRow struct {
	ID        string    `db:"id"`
	GroupID   string    `db:"group_id"`
	Author    string    `db:"author"`
	Text      string    `db:"text"`
	State     string    `db:"state"`
	CreatedAt time.Time `db:"created_at"`
}

func (row messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:        row.ID,
		GroupID:   row.GroupID,
		Author:    row.Author,
		Text:      row.Text,
		State:     chat.State(row.State),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type reactionRow struct {
	MessageID string    `db:"message_id"`
	UserName  string    `db:"user_name"`
	Emoji     string    `db:"emoji"`
	CreatedAt time.Time `db:"created_at"`
}

type messageRepository struct {
	repository
}

var _ chat.Repository = (*messageRepository)(nil)

func NewMessageRepository(db core.DBExecutor) *messageRepository {
	return &messageRepository{repository{db: db}}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg chat.Message, exec ...core.DBExecutor) (chat.Message, error) {
	row := messageRow{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		Author:    msg.Author,
		Text:      msg.Text,
		State:     string(msg.State),
		CreatedAt: msg.CreatedAt,
	}
	q := "INSERT INTO messages (" + messageColumns + ") VALUES (:id, :group_id, :author, :text, :state, :created_at)"
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (chat.Message, error) {
	var row messageRow
	err := getContext(ctx, repo.getExec(exec), &row, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	if err != nil {
		if isNoRows(err) {
			return chat.Message{}, chat.ErrNotFound
		}
		return chat.Message{}, errors.Wrap(err, "selecting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, groupID string, limit int, exec ...core.DBExecutor) ([]chat.Message, error) {
	var rows []messageRow
	q := "SELECT " + messageColumns + " FROM messages WHERE group_id = ? AND state <> ? " +
		"ORDER BY created_at DESC, id DESC LIMIT ?"
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, groupID, string(chat.StateDeleted), limit); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}

	msgs := make([]chat.Message, len(rows))
	for i, row := range rows {
		msgs[len(rows)-1-i] = row.toMessage()
	}
	return msgs, nil
}

func (repo *messageRepository) PurgeExcess(ctx context.Context, groupID string, keep int, exec ...core.DBExecutor) (int, error) {
	e := repo.getExec(exec)

	var ids []string
	q := "SELECT id FROM messages WHERE group_id = ? AND state <> ? ORDER BY created_at DESC, id DESC"
	if err := selectContext(ctx, e, &ids, q, groupID, string(chat.StateDeleted)); err != nil {
		return 0, errors.Wrap(err, "selecting live messages")
	}
	if len(ids) <= keep {
		return 0, nil
	}

	n, err := execIn(ctx, e, "DELETE FROM messages WHERE id IN (?)", ids[keep:])
	if err != nil {
		return 0, errors.Wrap(err, "deleting old messages")
	}
	return int(n), nil
}

func (repo *messageRepository) UpdateState(ctx context.Context, id string, from []chat.State, to chat.State, exec ...core.DBExecutor) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	states := make([]string, 0, len(from))
	for _, st := range from {
		states = append(states, string(st))
	}

	n, err := execIn(ctx, repo.getExec(exec),
		"UPDATE messages SET state = ? WHERE id = ? AND state IN (?)", string(to), id, states)
	if err != nil {
		return false, errors.Wrap(err, "updating message state")
	}
	return n > 0, nil
}

func (repo *messageRepository) QueryReactions(ctx context.Context, messageIDs []string, exec ...core.DBExecutor) ([]chat.Reaction, error) {
	if len(messageIDs) == 0 {
		return []chat.Reaction{}, nil
	}

	var rows []reactionRow
	q := "SELECT message_id, user_name, emoji, created_at FROM reactions WHERE message_id IN (?) " +
		"ORDER BY created_at, user_name"
	if err := selectIn(ctx, repo.getExec(exec), &rows, q, messageIDs); err != nil {
		return nil, errors.Wrap(err, "selecting reactions")
	}

	reactions := make([]chat.Reaction, 0, len(rows))
	for _, row := range rows {
		reactions = append(reactions, chat.Reaction{
			MessageID: row.MessageID,
			UserName:  row.UserName,
			Emoji:     row.Emoji,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return reactions, nil
}

func (repo *messageRepository) CreateReaction(ctx context.Context, r chat.Reaction, exec ...core.DBExecutor) error {
	_, err := execAffected(ctx, repo.getExec(exec),
		"INSERT INTO reactions (message_id, user_name, emoji, created_at) VALUES (?, ?, ?, ?)",
		r.MessageID, r.UserName, r.Emoji, r.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return chat.ErrReactionExists
		}
		return errors.Wrap(err, "inserting reaction")
	}
	return nil
}

func (repo *messageRepository) DeleteReaction(ctx context.Context, r chat.Reaction, exec ...core.DBExecutor) (bool, error) {
	n, err := execAffected(ctx, repo.getExec(exec),
		"DELETE FROM reactions WHERE message_id = ? AND user_name = ? AND emoji = ?", r.MessageID, r.UserName, r.Emoji)
	if err != nil {
		return false, errors.Wrap(err, "deleting reaction")
	}
	return n > 0, nil
}

func (repo *messageRepository) QueryReported(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]chat.ReportedMessage, error) {
	var rows []struct {
		ID          string    `db:"id"`
		Text        string    `db:"text"`
		Author      string    `db:"author"`
		CreatedAt   time.Time `db:"created_at"`
		CourseCode  string    `db:"course_code"`
		CourseTitle string    `db:"course_title"`
		GroupID     string    `db:"group_id"`
		GroupName   string    `db:"group_name"`
	}
	q := `SELECT m.id, m.text, m.author, m.created_at, g.course_code, c.title AS course_title,
			g.id AS group_id, g.name AS group_name
		FROM messages m
		JOIN study_groups g ON g.id = m.group_id
		JOIN courses c ON c.code = g.course_code
		WHERE m.state = ? AND m.created_at >= ?
		ORDER BY m.created_at DESC, m.id DESC`
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, string(chat.StateReported), since); err != nil {
		return nil, errors.Wrap(err, "selecting reported messages")
	}

	msgs := make([]chat.ReportedMessage, 0, len(rows))
	for _, row := range rows {
		row.CreatedAt = row.CreatedAt.UTC()
		msgs = append(msgs, chat.ReportedMessage(row))
	}
	return msgs, nil
}

func (repo *messageRepository) GetLastActivity(ctx context.Context, author string, exec ...core.DBExecutor) (chat.LastActivity, error) {
	var row struct {
		MessageID  string    `db:"message_id"`
		CreatedAt  time.Time `db:"created_at"`
		GroupID    string    `db:"group_id"`
		GroupName  string    `db:"group_name"`
		CourseCode string    `db:"course_code"`
	}
	q := `SELECT m.id AS message_id, m.created_at, g.id AS group_id, g.name AS group_name, g.course_code
		FROM messages m
		JOIN study_groups g ON g.id = m.group_id
		WHERE m.author = ? AND m.state <> ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`
	if err := getContext(ctx, repo.getExec(exec), &row, q, author, string(chat.StateDeleted)); err != nil {
		if isNoRows(err) {
			return chat.LastActivity{}, chat.ErrNotFound
		}
		return chat.LastActivity{}, errors.Wrap(err, "selecting last activity")
	}
	row.CreatedAt = row.CreatedAt.UTC()
	return chat.LastActivity(row), nil
}
