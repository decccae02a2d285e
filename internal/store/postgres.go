package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateAttachment is returned when an insert trips the case-insensitive
// uniqueness of attachment URLs per card.
var ErrDuplicateAttachment = errors.New("duplicate attachment")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND (verification_expires_at IS NULL OR verification_expires_at > NOW())
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	return nil
}

// ---- refresh sessions (Postgres fallback when Redis is not configured) ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// ---- boards ----

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, title, description, owner_id) VALUES ($1, $2, $3, $4)
	`, board.ID, board.Title, board.Description, board.OwnerID)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, owner_id, created_at, updated_at
		FROM boards WHERE id=$1
	`, boardID).Scan(&board.ID, &board.Title, &board.Description, &board.OwnerID, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	members, err := s.ListBoardMembers(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	board.Members = members
	return board, nil
}

func (s *PostgresStore) ListBoardsForUser(ctx context.Context, userID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT b.id, b.title, b.description, b.owner_id, b.created_at, b.updated_at
		FROM boards b
		LEFT JOIN board_members bm ON bm.board_id = b.id
		WHERE b.owner_id = $1 OR bm.user_id = $1
		ORDER BY b.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var board Board
		if err := rows.Scan(&board.ID, &board.Title, &board.Description, &board.OwnerID, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, boardID, title, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE boards SET title=$2, description=$3, updated_at=NOW() WHERE id=$1
	`, boardID, title, description)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) AddBoardMember(ctx context.Context, boardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_members (board_id, user_id) VALUES ($1, $2)
		ON CONFLICT (board_id, user_id) DO NOTHING
	`, boardID, userID)
	if err != nil {
		return fmt.Errorf("add board member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveBoardMember(ctx context.Context, boardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM board_members WHERE board_id=$1 AND user_id=$2`, boardID, userID)
	if err != nil {
		return fmt.Errorf("remove board member: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBoardMembers(ctx context.Context, boardID string) ([]BoardMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bm.user_id, u.display_name, u.email, bm.joined_at
		FROM board_members bm
		JOIN users u ON u.id = bm.user_id
		WHERE bm.board_id = $1
		ORDER BY bm.joined_at
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	defer rows.Close()

	members := make([]BoardMember, 0)
	for rows.Next() {
		var member BoardMember
		if err := rows.Scan(&member.UserID, &member.DisplayName, &member.Email, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan board member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board members: %w", err)
	}
	return members, nil
}

// ---- lists ----

func (s *PostgresStore) InsertList(ctx context.Context, list List) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, board_id, title, position) VALUES ($1, $2, $3, $4)
	`, list.ID, list.BoardID, list.Title, list.Position)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID string) (List, error) {
	var list List
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, title, position, created_at, updated_at FROM lists WHERE id=$1
	`, listID).Scan(&list.ID, &list.BoardID, &list.Title, &list.Position, &list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		return List{}, err
	}
	return list, nil
}

func (s *PostgresStore) ListsByBoard(ctx context.Context, boardID string) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, title, position, created_at, updated_at
		FROM lists WHERE board_id=$1 ORDER BY position
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("lists by board: %w", err)
	}
	defer rows.Close()

	items := make([]List, 0)
	for rows.Next() {
		var list List
		if err := rows.Scan(&list.ID, &list.BoardID, &list.Title, &list.Position, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		items = append(items, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateList(ctx context.Context, listID string, title *string, position *float64) error {
	set := []string{"updated_at=NOW()"}
	args := []any{listID}
	argN := 2
	if title != nil {
		set = append(set, fmt.Sprintf("title=$%d", argN))
		args = append(args, *title)
		argN++
	}
	if position != nil {
		set = append(set, fmt.Sprintf("position=$%d", argN))
		args = append(args, *position)
		argN++
	}
	res, err := s.db.ExecContext(ctx, `UPDATE lists SET `+strings.Join(set, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, listID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, listID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---- cards ----

func (s *PostgresStore) InsertCard(ctx context.Context, card Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, list_id, title, description, position)
		VALUES ($1, $2, $3, $4, $5)
	`, card.ID, card.ListID, card.Title, card.Description, card.Position)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func scanCard(row interface{ Scan(...any) error }) (Card, error) {
	var card Card
	err := row.Scan(
		&card.ID, &card.ListID, &card.Title, &card.Description, &card.Position,
		&card.IsCompleted, &card.StartDate, &card.DueDate,
		&card.IsRecurring, &card.RecurringType, &card.ReminderType,
		&card.AssignedTo, &card.CreatedAt, &card.UpdatedAt,
	)
	return card, err
}

const cardColumns = `id, list_id, title, description, position, is_completed,
	start_date, due_date, is_recurring, recurring_type, reminder_type,
	assigned_to, created_at, updated_at`

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, cardID))
	if err != nil {
		return Card{}, err
	}
	return card, nil
}

// GetCardContext resolves a card together with its list and board, including
// the board's members. A card whose list or board is missing surfaces as
// sql.ErrNoRows just like a missing card.
func (s *PostgresStore) GetCardContext(ctx context.Context, cardID string) (CardContext, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return CardContext{}, err
	}
	list, err := s.GetList(ctx, card.ListID)
	if err != nil {
		return CardContext{}, err
	}
	board, err := s.GetBoard(ctx, list.BoardID)
	if err != nil {
		return CardContext{}, err
	}
	return CardContext{Card: card, List: list, Board: board}, nil
}

func (s *PostgresStore) CardsByList(ctx context.Context, listID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE list_id=$1 ORDER BY position`, listID)
	if err != nil {
		return nil, fmt.Errorf("cards by list: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

// ApplyCardChanges updates exactly the given columns. Column names come from
// the resolver's fixed whitelist, never from request input.
func (s *PostgresStore) ApplyCardChanges(ctx context.Context, cardID string, changes map[string]any) (Card, error) {
	set := []string{"updated_at=NOW()"}
	args := []any{cardID}
	argN := 2
	for _, column := range cardChangeColumns {
		value, ok := changes[column]
		if !ok {
			continue
		}
		set = append(set, fmt.Sprintf("%s=$%d", column, argN))
		args = append(args, value)
		argN++
	}
	query := `UPDATE cards SET ` + strings.Join(set, ", ") + ` WHERE id=$1 RETURNING ` + cardColumns
	card, err := scanCard(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Card{}, err
		}
		return Card{}, fmt.Errorf("apply card changes: %w", err)
	}
	return card, nil
}

// cardChangeColumns fixes the set and order of patchable columns.
var cardChangeColumns = []string{
	"title", "description", "position", "list_id", "is_completed",
	"start_date", "due_date", "is_recurring", "recurring_type", "reminder_type",
}

func (s *PostgresStore) AssignCard(ctx context.Context, cardID string, userID *string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cards SET assigned_to=$2, updated_at=NOW() WHERE id=$1`, cardID, userID)
	if err != nil {
		return fmt.Errorf("assign card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteCard(ctx context.Context, cardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---- labels ----

func (s *PostgresStore) InsertLabel(ctx context.Context, label Label) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, board_id, name, color) VALUES ($1, $2, $3, $4)
	`, label.ID, label.BoardID, label.Name, label.Color)
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBoardLabels(ctx context.Context, boardID string) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, name, color, created_at FROM labels WHERE board_id=$1 ORDER BY created_at
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	items := make([]Label, 0)
	for rows.Next() {
		var label Label
		if err := rows.Scan(&label.ID, &label.BoardID, &label.Name, &label.Color, &label.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		items = append(items, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) AttachLabel(ctx context.Context, cardID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_labels (card_id, label_id) VALUES ($1, $2)
		ON CONFLICT (card_id, label_id) DO NOTHING
	`, cardID, labelID)
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	return nil
}

func (s *PostgresStore) DetachLabel(ctx context.Context, cardID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_labels WHERE card_id=$1 AND label_id=$2`, cardID, labelID)
	if err != nil {
		return fmt.Errorf("detach label: %w", err)
	}
	return nil
}

func (s *PostgresStore) CardLabels(ctx context.Context, cardID string) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.board_id, l.name, l.color, l.created_at
		FROM card_labels cl
		JOIN labels l ON l.id = cl.label_id
		WHERE cl.card_id = $1
		ORDER BY l.created_at
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("card labels: %w", err)
	}
	defer rows.Close()

	items := make([]Label, 0)
	for rows.Next() {
		var label Label
		if err := rows.Scan(&label.ID, &label.BoardID, &label.Name, &label.Color, &label.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card label: %w", err)
		}
		items = append(items, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card labels: %w", err)
	}
	return items, nil
}

// ---- checklists ----

func (s *PostgresStore) InsertChecklist(ctx context.Context, checklist Checklist) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checklists (id, card_id, title, position) VALUES ($1, $2, $3, $4)
	`, checklist.ID, checklist.CardID, checklist.Title, checklist.Position)
	if err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertChecklistItem(ctx context.Context, item ChecklistItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checklist_items (id, checklist_id, text, position) VALUES ($1, $2, $3, $4)
	`, item.ID, item.ChecklistID, item.Text, item.Position)
	if err != nil {
		return fmt.Errorf("insert checklist item: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateChecklistItem(ctx context.Context, itemID string, text *string, isCompleted *bool) error {
	set := []string{}
	args := []any{itemID}
	argN := 2
	if text != nil {
		set = append(set, fmt.Sprintf("text=$%d", argN))
		args = append(args, *text)
		argN++
	}
	if isCompleted != nil {
		set = append(set, fmt.Sprintf("is_completed=$%d", argN))
		args = append(args, *isCompleted)
		argN++
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE checklist_items SET `+strings.Join(set, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) GetChecklistCard(ctx context.Context, checklistID string) (string, error) {
	var cardID string
	err := s.db.QueryRowContext(ctx, `SELECT card_id FROM checklists WHERE id=$1`, checklistID).Scan(&cardID)
	if err != nil {
		return "", err
	}
	return cardID, nil
}

func (s *PostgresStore) GetChecklistItemCard(ctx context.Context, itemID string) (string, error) {
	var cardID string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.card_id FROM checklist_items ci JOIN checklists c ON c.id = ci.checklist_id WHERE ci.id=$1
	`, itemID).Scan(&cardID)
	if err != nil {
		return "", err
	}
	return cardID, nil
}

func (s *PostgresStore) ChecklistsByCard(ctx context.Context, cardID string) ([]Checklist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, title, position, created_at FROM checklists WHERE card_id=$1 ORDER BY position
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("checklists by card: %w", err)
	}
	defer rows.Close()

	items := make([]Checklist, 0)
	for rows.Next() {
		var checklist Checklist
		if err := rows.Scan(&checklist.ID, &checklist.CardID, &checklist.Title, &checklist.Position, &checklist.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		items = append(items, checklist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklists: %w", err)
	}

	for i := range items {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT id, checklist_id, text, is_completed, position, created_at
			FROM checklist_items WHERE checklist_id=$1 ORDER BY position
		`, items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("checklist items: %w", err)
		}
		for itemRows.Next() {
			var item ChecklistItem
			if err := itemRows.Scan(&item.ID, &item.ChecklistID, &item.Text, &item.IsCompleted, &item.Position, &item.CreatedAt); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan checklist item: %w", err)
			}
			items[i].Items = append(items[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("iterate checklist items: %w", err)
		}
		itemRows.Close()
	}
	return items, nil
}

// ---- comments ----

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, card_id, user_id, body) VALUES ($1, $2, $3, $4)
	`, comment.ID, comment.CardID, comment.UserID, comment.Body)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.card_id, c.user_id, u.display_name, c.body, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id=$1
	`, commentID).Scan(&comment.ID, &comment.CardID, &comment.UserID, &comment.AuthorName, &comment.Body, &comment.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) CommentsByCard(ctx context.Context, cardID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.card_id, c.user_id, u.display_name, c.body, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.card_id=$1 ORDER BY c.created_at
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("comments by card: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(&comment.ID, &comment.CardID, &comment.UserID, &comment.AuthorName, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// ---- attachments ----

func (s *PostgresStore) InsertAttachment(ctx context.Context, attachment Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, card_id, url, type, filename) VALUES ($1, $2, $3, $4, $5)
	`, attachment.ID, attachment.CardID, attachment.URL, attachment.Type, attachment.Filename)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAttachment
		}
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (Attachment, error) {
	var attachment Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, url, type, filename, created_at FROM attachments WHERE id=$1
	`, attachmentID).Scan(&attachment.ID, &attachment.CardID, &attachment.URL, &attachment.Type, &attachment.Filename, &attachment.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return attachment, nil
}

func (s *PostgresStore) ListCardAttachments(ctx context.Context, cardID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, url, type, filename, created_at
		FROM attachments WHERE card_id=$1 ORDER BY created_at
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var attachment Attachment
		if err := rows.Scan(&attachment.ID, &attachment.CardID, &attachment.URL, &attachment.Type, &attachment.Filename, &attachment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---- activities ----

func (s *PostgresStore) InsertActivity(ctx context.Context, activity Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, type, message, board_id, card_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, activity.ID, activity.Type, activity.Message, activity.BoardID, activity.CardID, activity.UserID)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBoardActivities(ctx context.Context, boardID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.type, a.message, a.board_id, a.card_id, a.user_id, u.display_name, a.created_at
		FROM activities a JOIN users u ON u.id = a.user_id
		WHERE a.board_id=$1 ORDER BY a.created_at DESC LIMIT $2
	`, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var activity Activity
		if err := rows.Scan(&activity.ID, &activity.Type, &activity.Message, &activity.BoardID, &activity.CardID, &activity.UserID, &activity.ActorName, &activity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return items, nil
}
