package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across boards, cards, and comments
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	if q.BoardIDs != nil && len(q.BoardIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	// Board scope shared by all sub-queries; $N placeholders are appended in
	// the same order for each branch.
	boardCond := func(col string) string {
		var conds []string
		if q.FilterBoardID != "" {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, argN))
			args = append(args, q.FilterBoardID)
			argN++
		}
		if len(q.BoardIDs) > 0 {
			conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, argN))
			args = append(args, q.BoardIDs)
			argN++
		}
		if len(conds) == 0 {
			return ""
		}
		return " AND " + strings.Join(conds, " AND ")
	}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultBoard {
		where := "b.fts @@ " + tsQuery + boardCond("b.id")
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'board'::text AS type, b.id, b.title,
				ts_headline('english', coalesce(b.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS card_id, b.id AS board_id,
				ts_rank(b.fts, %s) AS rank
			FROM boards b
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultCard {
		where := "c.fts @@ " + tsQuery + boardCond("l.board_id")
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'card'::text AS type, c.id, c.title,
				ts_headline('english', coalesce(c.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.id AS card_id, l.board_id,
				ts_rank(c.fts, %s) AS rank
			FROM cards c
			JOIN lists l ON l.id = c.list_id
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultComment {
		where := "cm.fts @@ " + tsQuery + boardCond("l.board_id")
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'comment'::text AS type, cm.id, u.display_name AS title,
				ts_headline('english', coalesce(cm.body, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				cm.card_id, l.board_id,
				ts_rank(cm.fts, %s) AS rank
			FROM comments cm
			JOIN cards c ON c.id = cm.card_id
			JOIN lists l ON l.id = c.list_id
			JOIN users u ON u.id = cm.user_id
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, card_id, board_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.CardID, &r.BoardID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]BoardRecord, []CardRecord, []CommentRecord, error) {
	boardRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description
		FROM boards
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load boards: %w", err)
	}
	defer boardRows.Close()

	boards := make([]BoardRecord, 0)
	for boardRows.Next() {
		var b BoardRecord
		if err := boardRows.Scan(&b.ID, &b.Title, &b.Description); err != nil {
			return nil, nil, nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := boardRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate boards: %w", err)
	}

	cardRows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.title, coalesce(c.description, ''), c.list_id, l.board_id, c.is_completed
		FROM cards c
		JOIN lists l ON l.id = c.list_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load cards: %w", err)
	}
	defer cardRows.Close()

	cards := make([]CardRecord, 0)
	for cardRows.Next() {
		var c CardRecord
		if err := cardRows.Scan(&c.ID, &c.Title, &c.Description, &c.ListID, &c.BoardID, &c.IsCompleted); err != nil {
			return nil, nil, nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := cardRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate cards: %w", err)
	}

	commentRows, err := p.db.QueryContext(ctx, `
		SELECT cm.id, cm.body, u.display_name, cm.card_id, l.board_id
		FROM comments cm
		JOIN cards c ON c.id = cm.card_id
		JOIN lists l ON l.id = c.list_id
		JOIN users u ON u.id = cm.user_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load comments: %w", err)
	}
	defer commentRows.Close()

	comments := make([]CommentRecord, 0)
	for commentRows.Next() {
		var c CommentRecord
		if err := commentRows.Scan(&c.ID, &c.Body, &c.AuthorName, &c.CardID, &c.BoardID); err != nil {
			return nil, nil, nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := commentRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate comments: %w", err)
	}

	return boards, cards, comments, nil
}
