package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bioassist/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a conversation does not exist or is owned by
// another user. Callers must not be able to tell the two cases apart.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists conversations and their messages. Every
// operation is scoped by (conversation id, user id).
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// CreateConversation describes a new conversation.
type CreateConversation struct {
	Title      string
	Model      string
	ExpertID   string
	ExpertName string
}

// ConversationPatch updates a subset of conversation fields. Nil fields are
// left untouched.
type ConversationPatch struct {
	Title      *string
	Model      *string
	IsArchived *bool
	IsFavorite *bool
	Tags       *[]string
}

// ListOptions filters and paginates conversation listings.
type ListOptions struct {
	IncludeArchived bool
	FavoriteOnly    bool
	ExpertID        string
	Keyword         string
	Page            int
	PageSize        int
}

// ConversationPage is one page of a user's conversations, newest-activity
// first.
type ConversationPage struct {
	Items    []models.Conversation `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	HasMore  bool                  `json:"has_more"`
}

func (s *ConversationStore) Create(userID string, in CreateConversation) (*models.Conversation, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = models.PlaceholderTitle
	}
	now := time.Now()
	conv := &models.Conversation{
		ID:         models.NewConversationID(),
		UserID:     userID,
		Title:      title,
		Model:      in.Model,
		ExpertID:   in.ExpertID,
		ExpertName: in.ExpertName,
		CreatedAt:  now,
		UpdatedAt:  now,
		Tags:       models.StringList{},
	}
	if err := s.db.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) Get(id, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) List(userID string, opts ListOptions) (*ConversationPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}

	q := s.db.Model(&models.Conversation{}).Where("user_id = ?", userID)
	if !opts.IncludeArchived {
		q = q.Where("is_archived = ?", false)
	}
	if opts.FavoriteOnly {
		q = q.Where("is_favorite = ?", true)
	}
	if opts.ExpertID != "" {
		q = q.Where("expert_id = ?", opts.ExpertID)
	}
	if kw := strings.TrimSpace(opts.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("title LIKE ? OR expert_name LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (opts.Page - 1) * opts.PageSize
	var items []models.Conversation
	if err := q.Order("updated_at DESC").Offset(offset).Limit(opts.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &ConversationPage{
		Items:    items,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		HasMore:  int64(offset+len(items)) < total,
	}, nil
}

func (s *ConversationStore) Update(id, userID string, patch ConversationPatch) (*models.Conversation, error) {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Model != nil {
		updates["model"] = *patch.Model
	}
	if patch.IsArchived != nil {
		updates["is_archived"] = *patch.IsArchived
	}
	if patch.IsFavorite != nil {
		updates["is_favorite"] = *patch.IsFavorite
	}
	if patch.Tags != nil {
		updates["tags"] = models.StringList(*patch.Tags)
	}
	if len(updates) == 0 {
		return s.Get(id, userID)
	}
	updates["updated_at"] = time.Now()

	res := s.db.Model(&models.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(id, userID)
}

// AddTag appends a tag if not already present.
func (s *ConversationStore) AddTag(id, userID, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.New("empty tag")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		for _, t := range conv.Tags {
			if t == tag {
				return nil
			}
		}
		tags := append(conv.Tags, tag)
		return tx.Model(&models.Conversation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]any{"tags": tags, "updated_at": time.Now()}).Error
	})
}

// RemoveTag removes a tag; removing an absent tag is a no-op.
func (s *ConversationStore) RemoveTag(id, userID, tag string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		tags := make(models.StringList, 0, len(conv.Tags))
		for _, t := range conv.Tags {
			if t != tag {
				tags = append(tags, t)
			}
		}
		if len(tags) == len(conv.Tags) {
			return nil
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]any{"tags": tags, "updated_at": time.Now()}).Error
	})
}

// Delete removes a conversation and all of its messages in one transaction so
// no orphan messages survive. Returns false when the conversation is absent
// or not owned.
func (s *ConversationStore) Delete(id, userID string) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error
	})
	return deleted, err
}

// AppendMessage persists one message and, in the same transaction, bumps the
// owning conversation's message_count and refreshes updated_at. It fails with
// ErrNotFound when the conversation is absent or owned by someone else.
func (s *ConversationStore) AppendMessage(conversationID, userID, role, content string, metadata *models.MessageMetadata) (*models.Message, error) {
	msg := &models.Message{
		ID:             models.NewMessageID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		Timestamp:      time.Now(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Conversation{}).
			Where("id = ? AND user_id = ?", conversationID, userID).
			Updates(map[string]any{
				"message_count": gorm.Expr("message_count + 1"),
				"updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns a conversation's messages in ascending timestamp order.
// limit <= 0 means no limit.
func (s *ConversationStore) Messages(conversationID, userID string, limit int) ([]models.Message, error) {
	if _, err := s.Get(conversationID, userID); err != nil {
		return nil, err
	}
	q := s.db.Where("conversation_id = ?", conversationID).Order("timestamp ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentMessages returns the last n messages in ascending timestamp order,
// for transcript replay when building generation context.
func (s *ConversationStore) RecentMessages(conversationID, userID string, n int) ([]models.Message, error) {
	if _, err := s.Get(conversationID, userID); err != nil {
		return nil, err
	}
	var msgs []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").Limit(n).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// reverse back to chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
