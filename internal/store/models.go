package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Board struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Joined for API responses
	Members []BoardMember
}

type BoardMember struct {
	UserID      string
	DisplayName string
	Email       string
	JoinedAt    time.Time
}

type List struct {
	ID        string
	BoardID   string
	Title     string
	Position  float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Card struct {
	ID            string
	ListID        string
	Title         string
	Description   *string
	Position      float64
	IsCompleted   bool
	StartDate     *time.Time
	DueDate       *time.Time
	IsRecurring   bool
	RecurringType *string
	ReminderType  *string
	AssignedTo    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// Joined for API responses
	Labels   []Label
	Comments []Comment
}

// CardContext is a card resolved together with its list and board, as the
// access guard needs them in one piece.
type CardContext struct {
	Card  Card
	List  List
	Board Board
}

type Label struct {
	ID        string
	BoardID   string
	Name      string
	Color     string
	CreatedAt time.Time
}

type Checklist struct {
	ID        string
	CardID    string
	Title     string
	Position  float64
	CreatedAt time.Time
	// Joined for API responses
	Items []ChecklistItem
}

type ChecklistItem struct {
	ID          string
	ChecklistID string
	Text        string
	IsCompleted bool
	Position    float64
	CreatedAt   time.Time
}

type Comment struct {
	ID         string
	CardID     string
	UserID     string
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

type Attachment struct {
	ID        string
	CardID    string
	URL       string
	Type      string
	Filename  string
	CreatedAt time.Time
}

// Activity is an append-only record of a semantically meaningful change.
// Activities are never updated or deleted by normal flows.
type Activity struct {
	ID        string
	Type      string
	Message   string
	BoardID   string
	CardID    *string
	UserID    string
	ActorName string
	CreatedAt time.Time
}

// Activity type tags. Exactly one is recorded per successful card update.
const (
	ActivityRenamedCard        = "renamed_card"
	ActivityAddedDescription   = "added_description"
	ActivityRemovedDescription = "removed_description"
	ActivityUpdatedDescription = "updated_description"
	ActivityCompletedCard      = "completed_card"
	ActivityUncompletedCard    = "uncompleted_card"
	ActivityUpdatedCard        = "updated_card"
	ActivityDeletedCard        = "deleted_card"
	ActivityCreatedCard        = "created_card"
	ActivityMovedCard          = "moved_card"
	ActivityAddedComment       = "added_comment"
	ActivityCreatedBoard       = "created_board"
	ActivityCreatedList        = "created_list"
)
