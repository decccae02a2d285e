package app

import (
	"context"
	"log"
	"time"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

// Side effects get a short leash so a slow insert or SMTP handshake can
// never hold up the HTTP response.
const sideEffectTimeout = 3 * time.Second

// emitActivity records an activity and fans out notifications to board
// members. All failures, panics included, are logged and swallowed; the
// primary mutation has already succeeded by the time this runs.
func (s *Service) emitActivity(session Session, board store.Board, cardID *string, change cardChange) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("activity: recovered from panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	activity := store.Activity{
		ID:        util.NewID("act"),
		Type:      change.Type,
		Message:   change.Message,
		BoardID:   board.ID,
		CardID:    cardID,
		UserID:    session.UserID,
		CreatedAt: time.Now(),
	}
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		log.Printf("activity: insert %s for board %s: %v", change.Type, board.ID, err)
	}

	s.notifyBoardMembers(board, session, change.Message)
}

// notifyBoardMembers emails every board member except the actor. Delivery
// runs detached; the caller never waits on SMTP.
func (s *Service) notifyBoardMembers(board store.Board, actor Session, message string) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	members, err := s.store.ListBoardMembers(ctx, board.ID)
	if err != nil {
		log.Printf("notify: list members for board %s: %v", board.ID, err)
		return
	}

	for _, member := range members {
		if member.UserID == actor.UserID || member.Email == "" {
			continue
		}
		member := member
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notify: recovered from panic: %v", r)
				}
			}()
			if err := s.email.SendBoardActivityEmail(member.Email, member.DisplayName, actor.UserName, message, board.Title, s.boardURL(board.ID)); err != nil {
				log.Printf("notify: email %s about board %s: %v", member.UserID, board.ID, err)
			}
		}()
	}
}

func (s *Service) boardURL(boardID string) string {
	if s.cfg.CORSOrigin == "" || s.cfg.CORSOrigin == "*" {
		return ""
	}
	return s.cfg.CORSOrigin + "/boards/" + boardID
}
