package app

import (
	"context"

	"taskboard/api/internal/store"
)

// UpdateCard runs the card update pipeline: guard, resolve the sparse patch,
// persist the change set, classify the diff, extract embedded media, and emit
// the side effects. Only the guard and the persist step can fail the request;
// everything after the write is best-effort.
func (s *Service) UpdateCard(ctx context.Context, session Session, cardID string, patch CardPatch) (map[string]any, error) {
	cc, err := s.guardCard(ctx, session, cardID)
	if err != nil {
		return nil, err
	}
	prior := cc.Card

	changes := patch.Resolve(prior)
	if len(changes) == 0 {
		// Nothing to write. Return the current card without touching
		// storage or emitting any activity.
		return s.cardResponse(ctx, prior, nil)
	}

	card, err := s.store.ApplyCardChanges(ctx, cardID, changes)
	if err != nil {
		return nil, err
	}

	change := classifyCardChange(prior, changes)

	var duplicates []string
	if newDesc, ok := changes["description"].(string); ok && newDesc != "" {
		duplicates = s.extractEmbeddedImages(ctx, cardID, newDesc)
	}

	s.emitActivity(session, cc.Board, &cardID, change)
	s.indexCard(card, cc.Board.ID)

	return s.cardResponse(ctx, card, duplicates)
}

// DeleteCard removes a card after the access guard. Dependent comments,
// attachments, and checklists cascade at the storage layer. The deleted_card
// activity is best-effort; emitter failure never undoes the delete.
func (s *Service) DeleteCard(ctx context.Context, session Session, cardID string) error {
	cc, err := s.guardCard(ctx, session, cardID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCard(ctx, cardID); err != nil {
		return err
	}

	s.emitActivity(session, cc.Board, &cardID, cardChange{
		Type:    store.ActivityDeletedCard,
		Message: "deleted the card " + quoted(cc.Card.Title),
	})
	if s.search != nil {
		s.search.DeleteCard(cardID)
	}
	return nil
}

// cardResponse assembles the update response: the card joined with labels
// and comments, plus the advisory duplicate list when media extraction
// skipped anything.
func (s *Service) cardResponse(ctx context.Context, card store.Card, duplicates []string) (map[string]any, error) {
	var err error
	if card.Labels, err = s.store.CardLabels(ctx, card.ID); err != nil {
		return nil, err
	}
	if card.Comments, err = s.store.CommentsByCard(ctx, card.ID); err != nil {
		return nil, err
	}
	payload := cardJSON(card)
	if len(duplicates) > 0 {
		payload["duplicateImages"] = duplicates
	}
	return payload, nil
}
