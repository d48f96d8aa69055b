package store

import (
	"errors"
	"path/filepath"
	"testing"

	"bioassist/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}, &models.ProviderConfig{}, &models.Agent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateAndGet(t *testing.T) {
	s := NewConversationStore(newTestDB(t))

	conv, err := s.Create("u1", CreateConversation{Title: "Protein folding", Model: "gpt-4o", ExpertID: "exp-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.ID == "" || conv.Title != "Protein folding" || conv.MessageCount != 0 {
		t.Errorf("unexpected conversation: %+v", conv)
	}

	got, err := s.Get(conv.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Model != "gpt-4o" || got.ExpertID != "exp-1" {
		t.Errorf("unexpected fields: %+v", got)
	}
}

func TestCreateDefaultsPlaceholderTitle(t *testing.T) {
	s := NewConversationStore(newTestDB(t))

	conv, err := s.Create("u1", CreateConversation{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.Title != models.PlaceholderTitle {
		t.Errorf("expected placeholder title, got %q", conv.Title)
	}
}

func TestGetCrossUserIsolation(t *testing.T) {
	s := NewConversationStore(newTestDB(t))

	conv, _ := s.Create("user-b", CreateConversation{Title: "private"})

	if _, err := s.Get(conv.ID, "user-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestAppendMessageCountInvariant(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	conv, _ := s.Create("u1", CreateConversation{})

	for i := 0; i < 5; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if _, err := s.AppendMessage(conv.ID, "u1", role, "m", nil); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, _ := s.Get(conv.ID, "u1")
	if got.MessageCount != 5 {
		t.Errorf("message_count = %d, want 5", got.MessageCount)
	}
	msgs, err := s.Messages(conv.ID, "u1", 0)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != got.MessageCount {
		t.Errorf("stored %d messages but count says %d", len(msgs), got.MessageCount)
	}
	if !got.UpdatedAt.After(conv.UpdatedAt) {
		t.Errorf("updated_at should be refreshed by appends")
	}
}

func TestAppendMessageUnownedFails(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	conv, _ := s.Create("owner", CreateConversation{})

	if _, err := s.AppendMessage(conv.ID, "intruder", models.RoleUser, "hi", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AppendMessage("conv-missing", "owner", models.RoleUser, "hi", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
	}

	// failed appends must not disturb the count
	got, _ := s.Get(conv.ID, "owner")
	if got.MessageCount != 0 {
		t.Errorf("message_count = %d, want 0", got.MessageCount)
	}
}

func TestMessagesOrdering(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	conv, _ := s.Create("u1", CreateConversation{})

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		if _, err := s.AppendMessage(conv.ID, "u1", models.RoleUser, c, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, _ := s.Messages(conv.ID, "u1", 0)
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Fatalf("position %d = %q, want %q", i, m.Content, contents[i])
		}
	}

	recent, err := s.RecentMessages(conv.ID, "u1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "three" || recent[1].Content != "four" {
		t.Fatalf("recent = %+v, want last two in chronological order", recent)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	s := NewConversationStore(db)
	conv, _ := s.Create("u1", CreateConversation{})
	other, _ := s.Create("u1", CreateConversation{})

	s.AppendMessage(conv.ID, "u1", models.RoleUser, "hello", nil)
	s.AppendMessage(conv.ID, "u1", models.RoleAssistant, "hi", nil)
	s.AppendMessage(other.ID, "u1", models.RoleUser, "keep me", nil)

	deleted, err := s.Delete(conv.ID, "u1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}

	var orphans int64
	db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("expected zero orphan messages, got %d", orphans)
	}
	var kept int64
	db.Model(&models.Message{}).Where("conversation_id = ?", other.ID).Count(&kept)
	if kept != 1 {
		t.Errorf("sibling conversation lost messages: %d", kept)
	}

	if deleted, _ := s.Delete(conv.ID, "u1"); deleted {
		t.Error("second delete should report false")
	}
	if deleted, _ := s.Delete(other.ID, "someone-else"); deleted {
		t.Error("unowned delete should report false")
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	s := NewConversationStore(newTestDB(t))

	for i := 0; i < 3; i++ {
		s.Create("u1", CreateConversation{Title: "mine"})
	}
	s.Create("u2", CreateConversation{Title: "theirs"})

	archived, _ := s.Create("u1", CreateConversation{Title: "old stuff"})
	v := true
	if _, err := s.Update(archived.ID, "u1", ConversationPatch{IsArchived: &v}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	page, err := s.List("u1", ListOptions{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3 (archived excluded)", page.Total)
	}
	if len(page.Items) != 2 || !page.HasMore {
		t.Errorf("page = %d items hasMore=%v, want 2 items hasMore=true", len(page.Items), page.HasMore)
	}

	all, _ := s.List("u1", ListOptions{IncludeArchived: true, Page: 1, PageSize: 10})
	if all.Total != 4 {
		t.Errorf("total with archived = %d, want 4", all.Total)
	}

	kw, _ := s.List("u1", ListOptions{IncludeArchived: true, Keyword: "old", Page: 1, PageSize: 10})
	if kw.Total != 1 {
		t.Errorf("keyword total = %d, want 1", kw.Total)
	}
}

func TestListOrderedByActivity(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	first, _ := s.Create("u1", CreateConversation{Title: "first"})
	second, _ := s.Create("u1", CreateConversation{Title: "second"})

	// touching the older conversation moves it to the top
	if _, err := s.AppendMessage(first.ID, "u1", models.RoleUser, "bump", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	page, _ := s.List("u1", ListOptions{Page: 1, PageSize: 10})
	if len(page.Items) != 2 || page.Items[0].ID != first.ID || page.Items[1].ID != second.ID {
		t.Fatalf("expected most recently active first, got %+v", page.Items)
	}
}

func TestUpdatePatch(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	conv, _ := s.Create("u1", CreateConversation{Title: "before"})

	title := "after"
	fav := true
	got, err := s.Update(conv.ID, "u1", ConversationPatch{Title: &title, IsFavorite: &fav})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "after" || !got.IsFavorite {
		t.Errorf("patch not applied: %+v", got)
	}

	if _, err := s.Update(conv.ID, "u2", ConversationPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
}

func TestTags(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	conv, _ := s.Create("u1", CreateConversation{})

	if err := s.AddTag(conv.ID, "u1", "oncology"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	// duplicate add is a no-op
	if err := s.AddTag(conv.ID, "u1", "oncology"); err != nil {
		t.Fatalf("re-add tag: %v", err)
	}
	s.AddTag(conv.ID, "u1", "trials")

	got, _ := s.Get(conv.ID, "u1")
	if len(got.Tags) != 2 {
		t.Fatalf("tags = %v, want 2 entries", got.Tags)
	}

	if err := s.RemoveTag(conv.ID, "u1", "oncology"); err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	got, _ = s.Get(conv.ID, "u1")
	if len(got.Tags) != 1 || got.Tags[0] != "trials" {
		t.Fatalf("tags after remove = %v", got.Tags)
	}
}
