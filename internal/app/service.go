package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/authpw"
	"taskboard/api/internal/blob"
	"taskboard/api/internal/config"
	"taskboard/api/internal/email"
	"taskboard/api/internal/search"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

// Session is an authenticated caller resolved from an access token.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the persistence surface the service needs. PostgresStore
// implements it; tests substitute a fake.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)

	InsertBoard(ctx context.Context, board store.Board) error
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error)
	UpdateBoard(ctx context.Context, boardID, title, description string) error
	DeleteBoard(ctx context.Context, boardID string) error
	AddBoardMember(ctx context.Context, boardID, userID string) error
	RemoveBoardMember(ctx context.Context, boardID, userID string) error
	ListBoardMembers(ctx context.Context, boardID string) ([]store.BoardMember, error)

	InsertList(ctx context.Context, list store.List) error
	GetList(ctx context.Context, listID string) (store.List, error)
	ListsByBoard(ctx context.Context, boardID string) ([]store.List, error)
	UpdateList(ctx context.Context, listID string, title *string, position *float64) error
	DeleteList(ctx context.Context, listID string) error

	InsertCard(ctx context.Context, card store.Card) error
	GetCard(ctx context.Context, cardID string) (store.Card, error)
	GetCardContext(ctx context.Context, cardID string) (store.CardContext, error)
	CardsByList(ctx context.Context, listID string) ([]store.Card, error)
	ApplyCardChanges(ctx context.Context, cardID string, changes map[string]any) (store.Card, error)
	AssignCard(ctx context.Context, cardID string, userID *string) error
	DeleteCard(ctx context.Context, cardID string) error

	InsertLabel(ctx context.Context, label store.Label) error
	ListBoardLabels(ctx context.Context, boardID string) ([]store.Label, error)
	AttachLabel(ctx context.Context, cardID, labelID string) error
	DetachLabel(ctx context.Context, cardID, labelID string) error
	CardLabels(ctx context.Context, cardID string) ([]store.Label, error)

	InsertChecklist(ctx context.Context, checklist store.Checklist) error
	InsertChecklistItem(ctx context.Context, item store.ChecklistItem) error
	UpdateChecklistItem(ctx context.Context, itemID string, text *string, isCompleted *bool) error
	GetChecklistCard(ctx context.Context, checklistID string) (string, error)
	GetChecklistItemCard(ctx context.Context, itemID string) (string, error)
	ChecklistsByCard(ctx context.Context, cardID string) ([]store.Checklist, error)

	InsertComment(ctx context.Context, comment store.Comment) error
	GetComment(ctx context.Context, commentID string) (store.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	CommentsByCard(ctx context.Context, cardID string) ([]store.Comment, error)

	InsertAttachment(ctx context.Context, attachment store.Attachment) error
	GetAttachment(ctx context.Context, attachmentID string) (store.Attachment, error)
	ListCardAttachments(ctx context.Context, cardID string) ([]store.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error

	InsertActivity(ctx context.Context, activity store.Activity) error
	ListBoardActivities(ctx context.Context, boardID string, limit int) ([]store.Activity, error)
}

// SessionStore holds refresh tokens. Redis when configured, Postgres otherwise.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions SessionStore
	search   *search.Service
	email    *email.Service
	blob     *blob.Store
	authpw   *authpw.Service
}

// New wires the service. searchSvc, emailSvc, and blobStore may be nil when
// the corresponding backend is not configured.
func New(cfg config.Config, dataStore *store.PostgresStore, sessions SessionStore, searchSvc *search.Service, emailSvc *email.Service, blobStore *blob.Store) *Service {
	if sessions == nil {
		sessions = dataStore
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		search:   searchSvc,
		email:    emailSvc,
		blob:     blobStore,
		authpw:   authpw.NewService(dataStore),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AuthPasswordService exposes the email/password auth flows to the HTTP layer.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerificationEmail delivers the signup verification link. Detached;
// signup never waits on SMTP.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.CORSOrigin + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			log.Printf("email: verification to %s: %v", to, err)
		}
	}()
}

// SendPasswordResetEmail delivers the reset link. Detached like verification.
func (s *Service) SendPasswordResetEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.CORSOrigin + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, userName, url); err != nil {
			log.Printf("email: password reset to %s: %v", to, err)
		}
	}()
}

// Sessions

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// Session stores may carry only the user ID; reload the full record.
	user, err := s.store.GetUserByID(ctx, found.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// Access guards

// guardBoard authorizes the session against a board: the owner and members
// may proceed, anyone else gets a 403. A missing board surfaces as
// sql.ErrNoRows for the HTTP layer to map to 404.
func (s *Service) guardBoard(ctx context.Context, session Session, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, err
	}
	if !boardAllows(board, session.UserID) {
		return store.Board{}, domainError(http.StatusForbidden, "FORBIDDEN", "You are not a member of this board", nil)
	}
	return board, nil
}

// guardCard resolves a card with its list and board and authorizes the
// session. A card whose list or board is unlinked reads as not found.
func (s *Service) guardCard(ctx context.Context, session Session, cardID string) (store.CardContext, error) {
	cc, err := s.store.GetCardContext(ctx, cardID)
	if err != nil {
		return store.CardContext{}, err
	}
	if !boardAllows(cc.Board, session.UserID) {
		return store.CardContext{}, domainError(http.StatusForbidden, "FORBIDDEN", "You are not a member of this board", nil)
	}
	return cc, nil
}

func boardAllows(board store.Board, userID string) bool {
	if userID == "" {
		return false
	}
	if board.OwnerID == userID {
		return true
	}
	for _, member := range board.Members {
		if member.UserID == userID {
			return true
		}
	}
	return false
}

// Boards

func (s *Service) CreateBoard(ctx context.Context, session Session, title, description string) (map[string]any, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	board := store.Board{
		ID:          util.NewID("brd"),
		Title:       title,
		Description: description,
		OwnerID:     session.UserID,
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return nil, err
	}
	if err := s.store.AddBoardMember(ctx, board.ID, session.UserID); err != nil {
		return nil, err
	}

	s.emitActivity(session, board, nil, cardChange{
		Type:    store.ActivityCreatedBoard,
		Message: "created the board " + quoted(title),
	})
	if s.search != nil {
		s.search.IndexBoard(search.BoardRecord{ID: board.ID, Title: board.Title, Description: board.Description})
	}

	return boardJSON(board), nil
}

func (s *Service) ListBoards(ctx context.Context, session Session) ([]map[string]any, error) {
	boards, err := s.store.ListBoardsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		items = append(items, boardJSON(board))
	}
	return items, nil
}

func (s *Service) GetBoard(ctx context.Context, session Session, boardID string) (map[string]any, error) {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return nil, err
	}

	lists, err := s.store.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	listItems := make([]map[string]any, 0, len(lists))
	for _, list := range lists {
		cards, err := s.store.CardsByList(ctx, list.ID)
		if err != nil {
			return nil, err
		}
		cardItems := make([]map[string]any, 0, len(cards))
		for _, card := range cards {
			labels, err := s.store.CardLabels(ctx, card.ID)
			if err != nil {
				return nil, err
			}
			card.Labels = labels
			cardItems = append(cardItems, cardJSON(card))
		}
		item := listJSON(list)
		item["cards"] = cardItems
		listItems = append(listItems, item)
	}

	payload := boardJSON(board)
	payload["lists"] = listItems
	return payload, nil
}

func (s *Service) UpdateBoard(ctx context.Context, session Session, boardID, title, description string) (map[string]any, error) {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = board.Title
	}
	if err := s.store.UpdateBoard(ctx, boardID, title, description); err != nil {
		return nil, err
	}
	board.Title = title
	board.Description = description
	if s.search != nil {
		s.search.IndexBoard(search.BoardRecord{ID: board.ID, Title: title, Description: description})
	}
	return boardJSON(board), nil
}

func (s *Service) DeleteBoard(ctx context.Context, session Session, boardID string) error {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the board owner can delete a board", nil)
	}
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteBoard(boardID)
	}
	return nil
}

func (s *Service) AddBoardMember(ctx context.Context, session Session, boardID, memberEmail string) (map[string]any, error) {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the board owner can manage members", nil)
	}
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(memberEmail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No user with that email", nil)
		}
		return nil, err
	}
	if err := s.store.AddBoardMember(ctx, boardID, user.ID); err != nil {
		return nil, err
	}
	return map[string]any{
		"userId":      user.ID,
		"displayName": user.DisplayName,
		"email":       user.Email,
	}, nil
}

func (s *Service) RemoveBoardMember(ctx context.Context, session Session, boardID, userID string) error {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the board owner can manage members", nil)
	}
	if userID == board.OwnerID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The owner cannot be removed from the board", nil)
	}
	return s.store.RemoveBoardMember(ctx, boardID, userID)
}

func (s *Service) BoardActivities(ctx context.Context, session Session, boardID string, limit int) ([]map[string]any, error) {
	if _, err := s.guardBoard(ctx, session, boardID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	activities, err := s.store.ListBoardActivities(ctx, boardID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(activities))
	for _, activity := range activities {
		items = append(items, activityJSON(activity))
	}
	return items, nil
}

// Lists

func (s *Service) CreateList(ctx context.Context, session Session, boardID, title string, position float64) (map[string]any, error) {
	board, err := s.guardBoard(ctx, session, boardID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	list := store.List{
		ID:       util.NewID("lst"),
		BoardID:  boardID,
		Title:    title,
		Position: position,
	}
	if err := s.store.InsertList(ctx, list); err != nil {
		return nil, err
	}
	s.emitActivity(session, board, nil, cardChange{
		Type:    store.ActivityCreatedList,
		Message: "added the list " + quoted(title),
	})
	return listJSON(list), nil
}

func (s *Service) BoardLists(ctx context.Context, session Session, boardID string) ([]map[string]any, error) {
	if _, err := s.guardBoard(ctx, session, boardID); err != nil {
		return nil, err
	}
	lists, err := s.store.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(lists))
	for _, list := range lists {
		items = append(items, listJSON(list))
	}
	return items, nil
}

func (s *Service) guardList(ctx context.Context, session Session, listID string) (store.List, store.Board, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, store.Board{}, err
	}
	board, err := s.guardBoard(ctx, session, list.BoardID)
	if err != nil {
		return store.List{}, store.Board{}, err
	}
	return list, board, nil
}

func (s *Service) UpdateList(ctx context.Context, session Session, listID string, title *string, position *float64) (map[string]any, error) {
	list, _, err := s.guardList(ctx, session, listID)
	if err != nil {
		return nil, err
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		title = nil
	}
	if err := s.store.UpdateList(ctx, listID, title, position); err != nil {
		return nil, err
	}
	if title != nil {
		list.Title = *title
	}
	if position != nil {
		list.Position = *position
	}
	return listJSON(list), nil
}

func (s *Service) DeleteList(ctx context.Context, session Session, listID string) error {
	if _, _, err := s.guardList(ctx, session, listID); err != nil {
		return err
	}
	return s.store.DeleteList(ctx, listID)
}

// Cards (creation and reads; updates and deletes live in card_update.go)

func (s *Service) CreateCard(ctx context.Context, session Session, listID, title, description string, position float64) (map[string]any, error) {
	list, board, err := s.guardList(ctx, session, listID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	card := store.Card{
		ID:       util.NewID("crd"),
		ListID:   listID,
		Title:    title,
		Position: position,
	}
	if description != "" {
		card.Description = &description
	}
	if err := s.store.InsertCard(ctx, card); err != nil {
		return nil, err
	}

	s.emitActivity(session, board, &card.ID, cardChange{
		Type:    store.ActivityCreatedCard,
		Message: "added the card " + quoted(title) + " to " + quoted(list.Title),
	})
	s.indexCard(card, board.ID)

	return cardJSON(card), nil
}

func (s *Service) ListCards(ctx context.Context, session Session, listID string) ([]map[string]any, error) {
	if _, _, err := s.guardList(ctx, session, listID); err != nil {
		return nil, err
	}
	cards, err := s.store.CardsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(cards))
	for _, card := range cards {
		labels, err := s.store.CardLabels(ctx, card.ID)
		if err != nil {
			return nil, err
		}
		card.Labels = labels
		items = append(items, cardJSON(card))
	}
	return items, nil
}

func (s *Service) GetCard(ctx context.Context, session Session, cardID string) (map[string]any, error) {
	cc, err := s.guardCard(ctx, session, cardID)
	if err != nil {
		return nil, err
	}
	card := cc.Card

	if card.Labels, err = s.store.CardLabels(ctx, cardID); err != nil {
		return nil, err
	}
	if card.Comments, err = s.store.CommentsByCard(ctx, cardID); err != nil {
		return nil, err
	}
	checklists, err := s.store.ChecklistsByCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.ListCardAttachments(ctx, cardID)
	if err != nil {
		return nil, err
	}

	payload := cardJSON(card)
	checklistItems := make([]map[string]any, 0, len(checklists))
	for _, checklist := range checklists {
		checklistItems = append(checklistItems, checklistJSON(checklist))
	}
	payload["checklists"] = checklistItems
	attachmentItems := make([]map[string]any, 0, len(attachments))
	for _, attachment := range attachments {
		attachmentItems = append(attachmentItems, attachmentJSON(attachment))
	}
	payload["attachments"] = attachmentItems
	return payload, nil
}

func (s *Service) AssignCard(ctx context.Context, session Session, cardID string, assigneeID *string) (map[string]any, error) {
	cc, err := s.guardCard(ctx, session, cardID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil && !boardAllows(cc.Board, *assigneeID) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Assignee must be a board member", nil)
	}
	if err := s.store.AssignCard(ctx, cardID, assigneeID); err != nil {
		return nil, err
	}
	cc.Card.AssignedTo = assigneeID
	return cardJSON(cc.Card), nil
}

// Labels

func (s *Service) CreateLabel(ctx context.Context, session Session, boardID, name, color string) (map[string]any, error) {
	if _, err := s.guardBoard(ctx, session, boardID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	label := store.Label{
		ID:      util.NewID("lbl"),
		BoardID: boardID,
		Name:    name,
		Color:   color,
	}
	if err := s.store.InsertLabel(ctx, label); err != nil {
		return nil, err
	}
	return labelJSON(label), nil
}

func (s *Service) BoardLabels(ctx context.Context, session Session, boardID string) ([]map[string]any, error) {
	if _, err := s.guardBoard(ctx, session, boardID); err != nil {
		return nil, err
	}
	labels, err := s.store.ListBoardLabels(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(labels))
	for _, label := range labels {
		items = append(items, labelJSON(label))
	}
	return items, nil
}

func (s *Service) AttachLabel(ctx context.Context, session Session, cardID, labelID string) error {
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return err
	}
	return s.store.AttachLabel(ctx, cardID, labelID)
}

func (s *Service) DetachLabel(ctx context.Context, session Session, cardID, labelID string) error {
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return err
	}
	return s.store.DetachLabel(ctx, cardID, labelID)
}

// Checklists

func (s *Service) CreateChecklist(ctx context.Context, session Session, cardID, title string, position float64) (map[string]any, error) {
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	checklist := store.Checklist{
		ID:       util.NewID("chk"),
		CardID:   cardID,
		Title:    title,
		Position: position,
	}
	if err := s.store.InsertChecklist(ctx, checklist); err != nil {
		return nil, err
	}
	return checklistJSON(checklist), nil
}

func (s *Service) AddChecklistItem(ctx context.Context, session Session, checklistID, text string, position float64) (map[string]any, error) {
	cardID, err := s.store.GetChecklistCard(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}
	item := store.ChecklistItem{
		ID:          util.NewID("cki"),
		ChecklistID: checklistID,
		Text:        text,
		Position:    position,
	}
	if err := s.store.InsertChecklistItem(ctx, item); err != nil {
		return nil, err
	}
	return checklistItemJSON(item), nil
}

func (s *Service) UpdateChecklistItem(ctx context.Context, session Session, itemID string, text *string, isCompleted *bool) error {
	cardID, err := s.store.GetChecklistItemCard(ctx, itemID)
	if err != nil {
		return err
	}
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return err
	}
	return s.store.UpdateChecklistItem(ctx, itemID, text, isCompleted)
}

// Comments

func (s *Service) AddComment(ctx context.Context, session Session, cardID, body string) (map[string]any, error) {
	cc, err := s.guardCard(ctx, session, cardID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body is required", nil)
	}
	comment := store.Comment{
		ID:         util.NewID("cmt"),
		CardID:     cardID,
		UserID:     session.UserID,
		AuthorName: session.UserName,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}

	s.emitActivity(session, cc.Board, &cardID, cardChange{
		Type:    store.ActivityAddedComment,
		Message: "commented on " + quoted(cc.Card.Title),
	})
	if s.search != nil {
		s.search.IndexComment(search.CommentRecord{
			ID:         comment.ID,
			Body:       comment.Body,
			AuthorName: session.UserName,
			CardID:     cardID,
			BoardID:    cc.Board.ID,
		})
	}
	return commentJSON(comment), nil
}

func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	cc, err := s.guardCard(ctx, session, comment.CardID)
	if err != nil {
		return err
	}
	if comment.UserID != session.UserID && cc.Board.OwnerID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author or board owner can delete a comment", nil)
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteComment(commentID)
	}
	return nil
}

// Attachments

func (s *Service) AddLinkAttachment(ctx context.Context, session Session, cardID, url, filename string) (map[string]any, error) {
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "url is required", nil)
	}
	attachment := store.Attachment{
		ID:       util.NewID("att"),
		CardID:   cardID,
		URL:      url,
		Type:     "url",
		Filename: filename,
	}
	if err := s.store.InsertAttachment(ctx, attachment); err != nil {
		if errors.Is(err, store.ErrDuplicateAttachment) {
			return nil, domainError(http.StatusConflict, "DUPLICATE_ATTACHMENT", "This URL is already attached to the card", nil)
		}
		return nil, err
	}
	return attachmentJSON(attachment), nil
}

func (s *Service) UploadAttachment(ctx context.Context, session Session, cardID, filename, contentType string, r io.Reader, size int64) (map[string]any, error) {
	if _, err := s.guardCard(ctx, session, cardID); err != nil {
		return nil, err
	}
	if s.blob == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "File storage is not configured", nil)
	}

	objectName := cardID + "/" + util.NewID("obj") + "-" + filename
	url, err := s.blob.Upload(ctx, objectName, r, size, contentType)
	if err != nil {
		return nil, err
	}

	attachment := store.Attachment{
		ID:       util.NewID("att"),
		CardID:   cardID,
		URL:      url,
		Type:     attachmentTypeFor(contentType),
		Filename: filename,
	}
	if err := s.store.InsertAttachment(ctx, attachment); err != nil {
		// The object is orphaned if this fails; remove it best-effort.
		_ = s.blob.Delete(ctx, objectName)
		if errors.Is(err, store.ErrDuplicateAttachment) {
			return nil, domainError(http.StatusConflict, "DUPLICATE_ATTACHMENT", "This file is already attached to the card", nil)
		}
		return nil, err
	}
	return attachmentJSON(attachment), nil
}

func (s *Service) DeleteAttachment(ctx context.Context, session Session, attachmentID string) error {
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	if _, err := s.guardCard(ctx, session, attachment.CardID); err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	if s.blob != nil {
		if objectName := s.blob.ObjectNameFromURL(attachment.URL); objectName != "" {
			_ = s.blob.Delete(ctx, objectName)
		}
	}
	return nil
}

func attachmentTypeFor(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return "file"
}

// Search

func (s *Service) Search(ctx context.Context, session Session, q, filterType, boardID string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}, nil
	}
	boards, err := s.store.ListBoardsForUser(ctx, session.UserID)
	if err != nil {
		return search.Response{}, err
	}
	boardIDs := make([]string, 0, len(boards))
	for _, board := range boards {
		boardIDs = append(boardIDs, board.ID)
	}
	return s.search.Search(search.Query{
		Text:          q,
		FilterType:    search.ResultType(filterType),
		FilterBoardID: boardID,
		BoardIDs:      boardIDs,
		Limit:         limit,
		Offset:        offset,
	}), nil
}

func (s *Service) indexCard(card store.Card, boardID string) {
	if s.search == nil {
		return
	}
	description := ""
	if card.Description != nil {
		description = *card.Description
	}
	s.search.IndexCard(search.CardRecord{
		ID:          card.ID,
		Title:       card.Title,
		Description: description,
		ListID:      card.ListID,
		BoardID:     boardID,
		IsCompleted: card.IsCompleted,
	})
}
