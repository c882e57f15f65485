package postgres

import (
	"context"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/turfbook/chat-service/internal/config"
	"github.com/turfbook/chat-service/internal/model"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultMessagesLimit = 500
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		chat_id     TEXT NOT NULL,
		sender_id   TEXT NOT NULL,
		sender_role TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		is_read     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_chat_created_idx ON messages (chat_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_id)`,
}

type Repository struct {
	connection  *sqlx.DB
	placeholder sq.PlaceholderFormat
}

func New(cfg *config.Config) *Repository {
	driver, conStr := DriverPostgres, fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.Host, cfg.Postgres.Port)
	if cfg.Postgres.Driver == DriverSQLite {
		driver, conStr = DriverSQLite, cfg.Postgres.SQLitePath
	}

	conn, err := sqlx.Connect(driver, conStr)
	if err != nil {
		log.Fatal("error connect: ", err)
	}

	return NewWithDB(conn, driver)
}

func NewWithDB(conn *sqlx.DB, driver string) *Repository {
	placeholder := sq.PlaceholderFormat(sq.Dollar)
	if driver == DriverSQLite {
		placeholder = sq.Question
		// a single connection keeps sqlite writes serialized
		conn.SetMaxOpenConns(1)
	}

	return &Repository{
		connection:  conn,
		placeholder: placeholder,
	}
}

func (r *Repository) Close() {
	_ = r.connection.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.connection.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %v", err)
		}
	}
	return nil
}

func (r *Repository) SaveMessage(ctx context.Context, message *model.Message) error {
	query := sq.Insert("messages").
		Columns("id", "chat_id", "sender_id", "sender_role", "content", "is_read", "created_at").
		Values(message.ID, message.ChatID, message.SenderID, message.SenderRole, message.Content, message.Read, message.CreatedAt).
		PlaceholderFormat(r.placeholder)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	return nil
}

func (r *Repository) GetChatMessages(ctx context.Context, chatID string, limit uint64) (model.MessageList, error) {
	if limit == 0 {
		limit = defaultMessagesLimit
	}

	// newest page first, then flipped so the client sees arrival order
	inner := sq.Select("id", "chat_id", "sender_id", "sender_role", "content", "is_read", "created_at").
		From("messages").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit)

	query, args, err := sq.Select("*").
		FromSelect(inner, "recent").
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	messages := model.MessageList{}
	err = r.connection.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %v", err)
	}

	return messages, nil
}

// MarkRead flags every message in the chat that was not sent by readerID.
func (r *Repository) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	query, args, err := sq.Update("messages").
		Set("is_read", true).
		Where(sq.And{
			sq.Eq{"chat_id": chatID},
			sq.NotEq{"sender_id": readerID},
			sq.Eq{"is_read": false},
		}).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %v", err)
	}

	res, err := r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated messages: %v", err)
	}

	return affected, nil
}

// GetUserConversations lists the chats userID has written in, each with its
// latest message, most recent first.
func (r *Repository) GetUserConversations(ctx context.Context, userID string) ([]model.ConversationPreview, error) {
	query, args, err := sq.Select(
		"m.chat_id",
		"m.content as last_message_content",
		"m.created_at as last_message_timestamp",
	).
		From("messages m").
		Where(sq.Expr("m.chat_id IN (SELECT chat_id FROM messages WHERE sender_id = ?)", userID)).
		Where("NOT EXISTS (SELECT 1 FROM messages n WHERE n.chat_id = m.chat_id " +
			"AND (n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id)))").
		OrderBy("m.created_at DESC").
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	previews := []model.ConversationPreview{}
	err = r.connection.SelectContext(ctx, &previews, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversations: %v", err)
	}

	return previews, nil
}
