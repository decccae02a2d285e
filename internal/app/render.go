package app

import (
	"fmt"
	"time"

	"taskboard/api/internal/store"
)

// JSON payload builders. Responses are assembled as maps so joined data can
// be merged in per endpoint, matching the shapes the web client expects.

func boardJSON(board store.Board) map[string]any {
	members := make([]map[string]any, 0, len(board.Members))
	for _, member := range board.Members {
		members = append(members, map[string]any{
			"userId":      member.UserID,
			"displayName": member.DisplayName,
			"email":       member.Email,
		})
	}
	return map[string]any{
		"id":          board.ID,
		"title":       board.Title,
		"description": board.Description,
		"ownerId":     board.OwnerID,
		"members":     members,
		"createdAt":   timestamp(board.CreatedAt),
		"updatedAt":   timestamp(board.UpdatedAt),
	}
}

func listJSON(list store.List) map[string]any {
	return map[string]any{
		"id":       list.ID,
		"boardId":  list.BoardID,
		"title":    list.Title,
		"position": list.Position,
	}
}

func cardJSON(card store.Card) map[string]any {
	labels := make([]map[string]any, 0, len(card.Labels))
	for _, label := range card.Labels {
		labels = append(labels, labelJSON(label))
	}
	comments := make([]map[string]any, 0, len(card.Comments))
	for _, comment := range card.Comments {
		comments = append(comments, commentJSON(comment))
	}
	return map[string]any{
		"id":            card.ID,
		"listId":        card.ListID,
		"title":         card.Title,
		"description":   card.Description,
		"position":      card.Position,
		"isCompleted":   card.IsCompleted,
		"startDate":     timestampPtr(card.StartDate),
		"dueDate":       timestampPtr(card.DueDate),
		"isRecurring":   card.IsRecurring,
		"recurringType": card.RecurringType,
		"reminderType":  card.ReminderType,
		"assignedTo":    card.AssignedTo,
		"labels":        labels,
		"comments":      comments,
	}
}

func labelJSON(label store.Label) map[string]any {
	return map[string]any{
		"id":      label.ID,
		"boardId": label.BoardID,
		"name":    label.Name,
		"color":   label.Color,
	}
}

func checklistJSON(checklist store.Checklist) map[string]any {
	items := make([]map[string]any, 0, len(checklist.Items))
	for _, item := range checklist.Items {
		items = append(items, checklistItemJSON(item))
	}
	return map[string]any{
		"id":       checklist.ID,
		"cardId":   checklist.CardID,
		"title":    checklist.Title,
		"position": checklist.Position,
		"items":    items,
	}
}

func checklistItemJSON(item store.ChecklistItem) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"checklistId": item.ChecklistID,
		"text":        item.Text,
		"isCompleted": item.IsCompleted,
		"position":    item.Position,
	}
}

func commentJSON(comment store.Comment) map[string]any {
	return map[string]any{
		"id":         comment.ID,
		"cardId":     comment.CardID,
		"userId":     comment.UserID,
		"authorName": comment.AuthorName,
		"body":       comment.Body,
		"createdAt":  timestamp(comment.CreatedAt),
	}
}

func attachmentJSON(attachment store.Attachment) map[string]any {
	return map[string]any{
		"id":        attachment.ID,
		"cardId":    attachment.CardID,
		"url":       attachment.URL,
		"type":      attachment.Type,
		"filename":  attachment.Filename,
		"createdAt": timestamp(attachment.CreatedAt),
	}
}

func activityJSON(activity store.Activity) map[string]any {
	return map[string]any{
		"id":        activity.ID,
		"type":      activity.Type,
		"message":   activity.Message,
		"boardId":   activity.BoardID,
		"cardId":    activity.CardID,
		"userId":    activity.UserID,
		"actorName": activity.ActorName,
		"createdAt": timestamp(activity.CreatedAt),
	}
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func timestampPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}
