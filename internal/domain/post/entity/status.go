package entity

// PostStatus represents the workflow state of a post
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusPending    PostStatus = "pending"
	PostStatusApproved   PostStatus = "approved"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusRejected   PostStatus = "rejected"
)

// transitions is the single source of allowed status changes.
var transitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusPending},
	PostStatusPending:    {PostStatusApproved, PostStatusRejected, PostStatusDraft},
	PostStatusApproved:   {PostStatusScheduled, PostStatusPublishing, PostStatusPending, PostStatusDraft, PostStatusFailed},
	PostStatusScheduled:  {PostStatusApproved, PostStatusScheduled, PostStatusPublishing, PostStatusFailed},
	PostStatusPublishing: {PostStatusPublished, PostStatusFailed},
	PostStatusFailed:     {PostStatusDraft, PostStatusPending},
	PostStatusRejected:   {PostStatusDraft, PostStatusPending},
	PostStatusPublished:  nil,
}

// CanTransition reports whether a post may move from one status to another
func CanTransition(from, to PostStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsValid returns true for known statuses
func (s PostStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true if no further transitions are possible
func (s PostStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsPublishable returns true if a publish attempt may start from this status
func (s PostStatus) IsPublishable() bool {
	return s == PostStatusApproved || s == PostStatusScheduled
}

// Label returns a human readable status name
func (s PostStatus) Label() string {
	switch s {
	case PostStatusDraft:
		return "📝 Черновик"
	case PostStatusPending:
		return "⏳ На модерации"
	case PostStatusApproved:
		return "✅ Одобрен"
	case PostStatusScheduled:
		return "📅 Запланирован"
	case PostStatusPublishing:
		return "🔄 Публикуется"
	case PostStatusPublished:
		return "✔️ Опубликован"
	case PostStatusFailed:
		return "❌ Ошибка"
	case PostStatusRejected:
		return "🚫 Отклонён"
	default:
		return string(s)
	}
}

// ParsePostStatus converts a string into a PostStatus
func ParsePostStatus(s string) (PostStatus, error) {
	st := PostStatus(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// AllPostStatuses lists statuses in workflow order
func AllPostStatuses() []PostStatus {
	return []PostStatus{
		PostStatusDraft,
		PostStatusPending,
		PostStatusApproved,
		PostStatusScheduled,
		PostStatusPublishing,
		PostStatusPublished,
		PostStatusFailed,
		PostStatusRejected,
	}
}

// Delivery describes how completely a published post reached its platforms
type Delivery string

const (
	DeliveryNone    Delivery = ""
	DeliveryFull    Delivery = "full"
	DeliveryPartial Delivery = "partial"
)
