package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"taskboard/api/internal/config"
	"taskboard/api/internal/store"
)

// fakeStore is an in-memory dataStore and sessionStore for service tests.
// Error fields inject failures per method.
type fakeStore struct {
	users       map[string]store.User
	boards      map[string]store.Board
	lists       map[string]store.List
	cards       map[string]store.Card
	labels      map[string]store.Label
	cardLabels  map[string][]string
	checklists  map[string]store.Checklist
	checkItems  map[string]store.ChecklistItem
	comments    map[string]store.Comment
	attachments map[string]store.Attachment
	activities  []store.Activity
	refresh     map[string]refreshEntry

	applyCardCalls    int
	deleteCardCalls   int
	insertActivityErr error
	insertAttachErr   error
}

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]store.User),
		boards:      make(map[string]store.Board),
		lists:       make(map[string]store.List),
		cards:       make(map[string]store.Card),
		labels:      make(map[string]store.Label),
		cardLabels:  make(map[string][]string),
		checklists:  make(map[string]store.Checklist),
		checkItems:  make(map[string]store.ChecklistItem),
		comments:    make(map[string]store.Comment),
		attachments: make(map[string]store.Attachment),
		refresh:     make(map[string]refreshEntry),
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) InsertBoard(ctx context.Context, board store.Board) error {
	f.boards[board.ID] = board
	return nil
}

func (f *fakeStore) GetBoard(ctx context.Context, boardID string) (store.Board, error) {
	board, ok := f.boards[boardID]
	if !ok {
		return store.Board{}, sql.ErrNoRows
	}
	return board, nil
}

func (f *fakeStore) ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error) {
	var out []store.Board
	for _, board := range f.boards {
		if boardAllows(board, userID) {
			out = append(out, board)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBoard(ctx context.Context, boardID, title, description string) error {
	board, ok := f.boards[boardID]
	if !ok {
		return sql.ErrNoRows
	}
	board.Title = title
	board.Description = description
	f.boards[boardID] = board
	return nil
}

func (f *fakeStore) DeleteBoard(ctx context.Context, boardID string) error {
	delete(f.boards, boardID)
	return nil
}

func (f *fakeStore) AddBoardMember(ctx context.Context, boardID, userID string) error {
	board, ok := f.boards[boardID]
	if !ok {
		return sql.ErrNoRows
	}
	user := f.users[userID]
	board.Members = append(board.Members, store.BoardMember{
		UserID:      userID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	})
	f.boards[boardID] = board
	return nil
}

func (f *fakeStore) RemoveBoardMember(ctx context.Context, boardID, userID string) error {
	board, ok := f.boards[boardID]
	if !ok {
		return sql.ErrNoRows
	}
	kept := board.Members[:0]
	for _, member := range board.Members {
		if member.UserID != userID {
			kept = append(kept, member)
		}
	}
	board.Members = kept
	f.boards[boardID] = board
	return nil
}

func (f *fakeStore) ListBoardMembers(ctx context.Context, boardID string) ([]store.BoardMember, error) {
	board, ok := f.boards[boardID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return board.Members, nil
}

func (f *fakeStore) InsertList(ctx context.Context, list store.List) error {
	f.lists[list.ID] = list
	return nil
}

func (f *fakeStore) GetList(ctx context.Context, listID string) (store.List, error) {
	list, ok := f.lists[listID]
	if !ok {
		return store.List{}, sql.ErrNoRows
	}
	return list, nil
}

func (f *fakeStore) ListsByBoard(ctx context.Context, boardID string) ([]store.List, error) {
	var out []store.List
	for _, list := range f.lists {
		if list.BoardID == boardID {
			out = append(out, list)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateList(ctx context.Context, listID string, title *string, position *float64) error {
	list, ok := f.lists[listID]
	if !ok {
		return sql.ErrNoRows
	}
	if title != nil {
		list.Title = *title
	}
	if position != nil {
		list.Position = *position
	}
	f.lists[listID] = list
	return nil
}

func (f *fakeStore) DeleteList(ctx context.Context, listID string) error {
	delete(f.lists, listID)
	return nil
}

func (f *fakeStore) InsertCard(ctx context.Context, card store.Card) error {
	f.cards[card.ID] = card
	return nil
}

func (f *fakeStore) GetCard(ctx context.Context, cardID string) (store.Card, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return store.Card{}, sql.ErrNoRows
	}
	return card, nil
}

func (f *fakeStore) GetCardContext(ctx context.Context, cardID string) (store.CardContext, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return store.CardContext{}, sql.ErrNoRows
	}
	list, ok := f.lists[card.ListID]
	if !ok {
		return store.CardContext{}, sql.ErrNoRows
	}
	board, ok := f.boards[list.BoardID]
	if !ok {
		return store.CardContext{}, sql.ErrNoRows
	}
	return store.CardContext{Card: card, List: list, Board: board}, nil
}

func (f *fakeStore) CardsByList(ctx context.Context, listID string) ([]store.Card, error) {
	var out []store.Card
	for _, card := range f.cards {
		if card.ListID == listID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyCardChanges(ctx context.Context, cardID string, changes map[string]any) (store.Card, error) {
	f.applyCardCalls++
	card, ok := f.cards[cardID]
	if !ok {
		return store.Card{}, sql.ErrNoRows
	}
	for key, value := range changes {
		switch key {
		case "title":
			card.Title = value.(string)
		case "description":
			desc := value.(string)
			card.Description = &desc
		case "position":
			card.Position = value.(float64)
		case "list_id":
			card.ListID = value.(string)
		case "is_completed":
			card.IsCompleted = value.(bool)
		case "start_date":
			card.StartDate = value.(*time.Time)
		case "due_date":
			card.DueDate = value.(*time.Time)
		case "is_recurring":
			card.IsRecurring = value.(bool)
		case "recurring_type":
			card.RecurringType = value.(*string)
		case "reminder_type":
			card.ReminderType = value.(*string)
		}
	}
	card.UpdatedAt = time.Now()
	f.cards[cardID] = card
	return card, nil
}

func (f *fakeStore) AssignCard(ctx context.Context, cardID string, userID *string) error {
	card, ok := f.cards[cardID]
	if !ok {
		return sql.ErrNoRows
	}
	card.AssignedTo = userID
	f.cards[cardID] = card
	return nil
}

func (f *fakeStore) DeleteCard(ctx context.Context, cardID string) error {
	f.deleteCardCalls++
	delete(f.cards, cardID)
	return nil
}

func (f *fakeStore) InsertLabel(ctx context.Context, label store.Label) error {
	f.labels[label.ID] = label
	return nil
}

func (f *fakeStore) ListBoardLabels(ctx context.Context, boardID string) ([]store.Label, error) {
	var out []store.Label
	for _, label := range f.labels {
		if label.BoardID == boardID {
			out = append(out, label)
		}
	}
	return out, nil
}

func (f *fakeStore) AttachLabel(ctx context.Context, cardID, labelID string) error {
	f.cardLabels[cardID] = append(f.cardLabels[cardID], labelID)
	return nil
}

func (f *fakeStore) DetachLabel(ctx context.Context, cardID, labelID string) error {
	kept := f.cardLabels[cardID][:0]
	for _, id := range f.cardLabels[cardID] {
		if id != labelID {
			kept = append(kept, id)
		}
	}
	f.cardLabels[cardID] = kept
	return nil
}

func (f *fakeStore) CardLabels(ctx context.Context, cardID string) ([]store.Label, error) {
	var out []store.Label
	for _, id := range f.cardLabels[cardID] {
		if label, ok := f.labels[id]; ok {
			out = append(out, label)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertChecklist(ctx context.Context, checklist store.Checklist) error {
	f.checklists[checklist.ID] = checklist
	return nil
}

func (f *fakeStore) InsertChecklistItem(ctx context.Context, item store.ChecklistItem) error {
	f.checkItems[item.ID] = item
	return nil
}

func (f *fakeStore) UpdateChecklistItem(ctx context.Context, itemID string, text *string, isCompleted *bool) error {
	item, ok := f.checkItems[itemID]
	if !ok {
		return sql.ErrNoRows
	}
	if text != nil {
		item.Text = *text
	}
	if isCompleted != nil {
		item.IsCompleted = *isCompleted
	}
	f.checkItems[itemID] = item
	return nil
}

func (f *fakeStore) GetChecklistCard(ctx context.Context, checklistID string) (string, error) {
	checklist, ok := f.checklists[checklistID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return checklist.CardID, nil
}

func (f *fakeStore) GetChecklistItemCard(ctx context.Context, itemID string) (string, error) {
	item, ok := f.checkItems[itemID]
	if !ok {
		return "", sql.ErrNoRows
	}
	checklist, ok := f.checklists[item.ChecklistID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return checklist.CardID, nil
}

func (f *fakeStore) ChecklistsByCard(ctx context.Context, cardID string) ([]store.Checklist, error) {
	var out []store.Checklist
	for _, checklist := range f.checklists {
		if checklist.CardID == cardID {
			out = append(out, checklist)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertComment(ctx context.Context, comment store.Comment) error {
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeStore) GetComment(ctx context.Context, commentID string) (store.Comment, error) {
	comment, ok := f.comments[commentID]
	if !ok {
		return store.Comment{}, sql.ErrNoRows
	}
	return comment, nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, commentID string) error {
	delete(f.comments, commentID)
	return nil
}

func (f *fakeStore) CommentsByCard(ctx context.Context, cardID string) ([]store.Comment, error) {
	var out []store.Comment
	for _, comment := range f.comments {
		if comment.CardID == cardID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAttachment(ctx context.Context, attachment store.Attachment) error {
	if f.insertAttachErr != nil {
		return f.insertAttachErr
	}
	for _, existing := range f.attachments {
		if existing.CardID == attachment.CardID && strings.EqualFold(existing.URL, attachment.URL) {
			return store.ErrDuplicateAttachment
		}
	}
	f.attachments[attachment.ID] = attachment
	return nil
}

func (f *fakeStore) GetAttachment(ctx context.Context, attachmentID string) (store.Attachment, error) {
	attachment, ok := f.attachments[attachmentID]
	if !ok {
		return store.Attachment{}, sql.ErrNoRows
	}
	return attachment, nil
}

func (f *fakeStore) ListCardAttachments(ctx context.Context, cardID string) ([]store.Attachment, error) {
	var out []store.Attachment
	for _, attachment := range f.attachments {
		if attachment.CardID == cardID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	delete(f.attachments, attachmentID)
	return nil
}

func (f *fakeStore) InsertActivity(ctx context.Context, activity store.Activity) error {
	if f.insertActivityErr != nil {
		return f.insertActivityErr
	}
	f.activities = append(f.activities, activity)
	return nil
}

func (f *fakeStore) ListBoardActivities(ctx context.Context, boardID string, limit int) ([]store.Activity, error) {
	var out []store.Activity
	for _, activity := range f.activities {
		if activity.BoardID == boardID {
			out = append(out, activity)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	f.refresh[tokenHash] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	entry, ok := f.refresh[tokenHash]
	if !ok || time.Now().After(entry.expiresAt) {
		return store.User{}, sql.ErrNoRows
	}
	return store.User{ID: entry.userID}, nil
}

func (f *fakeStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	delete(f.refresh, tokenHash)
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			TokenSecret: "test-secret",
			AccessTTL:   15 * time.Minute,
			RefreshTTL:  24 * time.Hour,
			CORSOrigin:  "*",
		},
		store:    fs,
		sessions: fs,
	}
}

// seedCard builds a user-owned board with one list and one card and returns
// the owning session plus the card ID.
func seedCard(fs *fakeStore) (Session, string) {
	fs.users["usr_owner"] = store.User{ID: "usr_owner", DisplayName: "Owner", Email: "owner@example.com"}
	fs.users["usr_other"] = store.User{ID: "usr_other", DisplayName: "Other", Email: "other@example.com"}
	fs.boards["brd_1"] = store.Board{
		ID:      "brd_1",
		Title:   "Roadmap",
		OwnerID: "usr_owner",
		Members: []store.BoardMember{
			{UserID: "usr_owner", DisplayName: "Owner", Email: "owner@example.com"},
		},
	}
	fs.lists["lst_1"] = store.List{ID: "lst_1", BoardID: "brd_1", Title: "Doing", Position: 1}
	desc := "Write the launch plan"
	fs.cards["crd_1"] = store.Card{
		ID:          "crd_1",
		ListID:      "lst_1",
		Title:       "Launch",
		Description: &desc,
		Position:    1,
	}
	return Session{UserID: "usr_owner", UserName: "Owner", Email: "owner@example.com"}, "crd_1"
}

func mustPatch(t *testing.T, body string) CardPatch {
	t.Helper()
	patch, err := DecodeCardPatch([]byte(body))
	if err != nil {
		t.Fatalf("DecodeCardPatch: %v", err)
	}
	return patch
}

func TestUpdateCardNoOpSkipsWriteAndActivity(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	svc := newTestService(fs)

	// Every value matches the stored card.
	patch := mustPatch(t, `{"title":"Launch","description":"Write the launch plan","position":1,"isCompleted":false}`)
	payload, err := svc.UpdateCard(context.Background(), session, cardID, patch)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if payload["title"] != "Launch" {
		t.Errorf("title = %v, want Launch", payload["title"])
	}
	if fs.applyCardCalls != 0 {
		t.Errorf("applyCardCalls = %d, want 0", fs.applyCardCalls)
	}
	if len(fs.activities) != 0 {
		t.Errorf("activities = %d, want 0", len(fs.activities))
	}
}

func TestUpdateCardForbiddenForNonMember(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	svc := newTestService(fs)

	outsider := Session{UserID: "usr_other", UserName: "Other"}
	patch := mustPatch(t, `{"title":"Hijacked"}`)
	_, err := svc.UpdateCard(context.Background(), outsider, cardID, patch)

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("err = %v, want 403 DomainError", err)
	}
	if fs.cards[cardID].Title != "Launch" {
		t.Errorf("card title = %q, want unchanged", fs.cards[cardID].Title)
	}
	if fs.applyCardCalls != 0 || len(fs.activities) != 0 {
		t.Errorf("mutation leaked: applies=%d activities=%d", fs.applyCardCalls, len(fs.activities))
	}
}

func TestUpdateCardMissingCardIsNotFound(t *testing.T) {
	fs := newFakeStore()
	session, _ := seedCard(fs)
	svc := newTestService(fs)

	patch := mustPatch(t, `{"title":"x"}`)
	_, err := svc.UpdateCard(context.Background(), session, "crd_missing", patch)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateCardOrphanedListIsNotFound(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	delete(fs.lists, "lst_1")
	svc := newTestService(fs)

	patch := mustPatch(t, `{"title":"x"}`)
	_, err := svc.UpdateCard(context.Background(), session, cardID, patch)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateCardUnparsableDueDateClears(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	due := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	card := fs.cards[cardID]
	card.DueDate = &due
	fs.cards[cardID] = card
	svc := newTestService(fs)

	patch := mustPatch(t, `{"dueDate":"not-a-date"}`)
	if _, err := svc.UpdateCard(context.Background(), session, cardID, patch); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if fs.cards[cardID].DueDate != nil {
		t.Errorf("dueDate = %v, want cleared", fs.cards[cardID].DueDate)
	}
	if len(fs.activities) != 1 || fs.activities[0].Type != store.ActivityUpdatedCard {
		t.Errorf("activities = %+v, want one updated_card", fs.activities)
	}
}

func TestUpdateCardRenameBeatsCompletion(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	svc := newTestService(fs)

	patch := mustPatch(t, `{"title":"Launch v2","isCompleted":true}`)
	if _, err := svc.UpdateCard(context.Background(), session, cardID, patch); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}

	card := fs.cards[cardID]
	if card.Title != "Launch v2" || !card.IsCompleted {
		t.Errorf("card = %+v, want both fields persisted", card)
	}
	if len(fs.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(fs.activities))
	}
	if fs.activities[0].Type != store.ActivityRenamedCard {
		t.Errorf("activity type = %s, want renamed_card", fs.activities[0].Type)
	}
}

func TestUpdateCardDuplicateImageAdvisory(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	fs.attachments["att_1"] = store.Attachment{
		ID: "att_1", CardID: cardID, URL: "https://cdn.example.com/Chart.PNG", Type: "image",
	}
	svc := newTestService(fs)

	patch := mustPatch(t, `{"description":"<p><img src=\"https://cdn.example.com/chart.png\"><img src=\"https://cdn.example.com/new.png\"></p>"}`)
	payload, err := svc.UpdateCard(context.Background(), session, cardID, patch)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}

	duplicates, _ := payload["duplicateImages"].([]string)
	if len(duplicates) != 1 || duplicates[0] != "https://cdn.example.com/chart.png" {
		t.Errorf("duplicateImages = %v, want the case-insensitive duplicate", duplicates)
	}
	attachments, _ := fs.ListCardAttachments(context.Background(), cardID)
	if len(attachments) != 2 {
		t.Errorf("attachments = %d, want 2 (original plus new.png)", len(attachments))
	}
}

func TestUpdateCardDataURIAttachmentType(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	svc := newTestService(fs)

	patch := mustPatch(t, `{"description":"<img src='data:image/webp;base64,UklGRg=='>"}`)
	if _, err := svc.UpdateCard(context.Background(), session, cardID, patch); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}

	attachments, _ := fs.ListCardAttachments(context.Background(), cardID)
	if len(attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(attachments))
	}
	if attachments[0].Type != "image/webp" {
		t.Errorf("type = %q, want image/webp", attachments[0].Type)
	}
}

func TestUpdateCardSurvivesActivityFailure(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	fs.insertActivityErr = errors.New("activity table on fire")
	svc := newTestService(fs)

	patch := mustPatch(t, `{"title":"Still works"}`)
	payload, err := svc.UpdateCard(context.Background(), session, cardID, patch)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if payload["title"] != "Still works" {
		t.Errorf("title = %v, want Still works", payload["title"])
	}
	if fs.cards[cardID].Title != "Still works" {
		t.Errorf("card title = %q, want persisted", fs.cards[cardID].Title)
	}
}

func TestDeleteCardForbiddenForNonMember(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	svc := newTestService(fs)

	outsider := Session{UserID: "usr_other"}
	err := svc.DeleteCard(context.Background(), outsider, cardID)

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("err = %v, want 403 DomainError", err)
	}
	if _, ok := fs.cards[cardID]; !ok {
		t.Error("card deleted despite failed guard")
	}
	if fs.deleteCardCalls != 0 {
		t.Errorf("deleteCardCalls = %d, want 0", fs.deleteCardCalls)
	}
}

func TestDeleteCardEmitsActivity(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	svc := newTestService(fs)

	if err := svc.DeleteCard(context.Background(), session, cardID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, ok := fs.cards[cardID]; ok {
		t.Error("card still present after delete")
	}
	if len(fs.activities) != 1 || fs.activities[0].Type != store.ActivityDeletedCard {
		t.Errorf("activities = %+v, want one deleted_card", fs.activities)
	}
}

func TestSessionIssueParseAndRefresh(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	svc := newTestService(fs)

	session, err := svc.CreateSession(context.Background(), "usr_owner")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("session missing tokens")
	}

	parsed, err := svc.SessionFromToken(session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != "usr_owner" || parsed.UserName != "Owner" {
		t.Errorf("parsed = %+v", parsed)
	}

	rotated, err := svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); err == nil {
		t.Error("stale refresh token still accepted")
	}
}

func TestDeleteBoardOwnerOnly(t *testing.T) {
	fs := newFakeStore()
	seedCard(fs)
	fs.boards["brd_1"] = store.Board{
		ID:      "brd_1",
		Title:   "Roadmap",
		OwnerID: "usr_owner",
		Members: []store.BoardMember{
			{UserID: "usr_owner"},
			{UserID: "usr_other"},
		},
	}
	svc := newTestService(fs)

	member := Session{UserID: "usr_other"}
	err := svc.DeleteBoard(context.Background(), member, "brd_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("err = %v, want 403 DomainError", err)
	}

	owner := Session{UserID: "usr_owner"}
	if err := svc.DeleteBoard(context.Background(), owner, "brd_1"); err != nil {
		t.Fatalf("DeleteBoard as owner: %v", err)
	}
}

func TestAssignCardRequiresBoardMember(t *testing.T) {
	fs := newFakeStore()
	session, cardID := seedCard(fs)
	svc := newTestService(fs)

	stranger := "usr_other"
	_, err := svc.AssignCard(context.Background(), session, cardID, &stranger)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("err = %v, want 422 DomainError", err)
	}

	owner := "usr_owner"
	payload, err := svc.AssignCard(context.Background(), session, cardID, &owner)
	if err != nil {
		t.Fatalf("AssignCard: %v", err)
	}
	if assigned, _ := payload["assignedTo"].(*string); assigned == nil || *assigned != owner {
		t.Errorf("assignedTo = %v, want usr_owner", payload["assignedTo"])
	}
}
