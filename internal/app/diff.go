package app

import (
	"fmt"

	"taskboard/api/internal/store"
)

// cardChange is the classified outcome of a card update.
type cardChange struct {
	Type    string
	Message string
}

// classifyCardChange maps a prior card plus its resolved change set to one
// activity descriptor. First matching rule wins: rename beats description,
// description beats completion, anything else is a generic update. A patch
// that renames and completes in one call is recorded as a rename only.
func classifyCardChange(prior store.Card, changes map[string]any) cardChange {
	if next, ok := changes["title"].(string); ok && next != prior.Title {
		return cardChange{
			Type:    store.ActivityRenamedCard,
			Message: fmt.Sprintf("renamed the card %q to %q", prior.Title, next),
		}
	}

	title := prior.Title
	if next, ok := changes["title"].(string); ok {
		title = next
	}

	if next, ok := changes["description"].(string); ok {
		priorDesc := ""
		if prior.Description != nil {
			priorDesc = *prior.Description
		}
		if next != priorDesc {
			switch {
			case priorDesc == "" && next != "":
				return cardChange{
					Type:    store.ActivityAddedDescription,
					Message: fmt.Sprintf("added a description to %q", title),
				}
			case priorDesc != "" && next == "":
				return cardChange{
					Type:    store.ActivityRemovedDescription,
					Message: fmt.Sprintf("removed the description from %q", title),
				}
			default:
				return cardChange{
					Type:    store.ActivityUpdatedDescription,
					Message: fmt.Sprintf("updated the description of %q", title),
				}
			}
		}
	}

	if completed, ok := changes["is_completed"].(bool); ok && completed != prior.IsCompleted {
		if completed {
			return cardChange{
				Type:    store.ActivityCompletedCard,
				Message: fmt.Sprintf("marked %q as complete", title),
			}
		}
		return cardChange{
			Type:    store.ActivityUncompletedCard,
			Message: fmt.Sprintf("marked %q as incomplete", title),
		}
	}

	return cardChange{
		Type:    store.ActivityUpdatedCard,
		Message: fmt.Sprintf("updated the card %q", title),
	}
}
