package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"bioassist/middleware"
	"bioassist/models"
	"bioassist/store"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newConversationRouter(t *testing.T, userID string) (*gin.Engine, *store.ConversationStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cs := store.NewConversationStore(db)

	r := gin.New()
	r.Use(func(gc *gin.Context) { gc.Set(middleware.ContextUserIDKey, userID) })
	r.POST("/api/chat/conversations", CreateConversation(cs))
	r.GET("/api/chat/conversations", ListConversations(cs))
	r.GET("/api/chat/conversations/:conversation_id", GetConversation(cs))
	r.GET("/api/chat/conversations/:conversation_id/messages", GetConversationMessages(cs))
	r.PUT("/api/chat/conversations/:conversation_id", UpdateConversation(cs))
	r.DELETE("/api/chat/conversations/:conversation_id", DeleteConversation(cs))
	r.POST("/api/chat/conversations/:conversation_id/archive", ArchiveConversation(cs))
	r.POST("/api/chat/conversations/:conversation_id/tags", AddConversationTag(cs))
	return r, cs
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConversationCRUD(t *testing.T) {
	r, _ := newConversationRouter(t, "u1")

	w := do(r, http.MethodPost, "/api/chat/conversations", `{"title":"Trial design"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	var conv models.Conversation
	json.Unmarshal(w.Body.Bytes(), &conv)
	if conv.ID == "" || conv.Title != "Trial design" {
		t.Fatalf("created = %+v", conv)
	}

	if w := do(r, http.MethodGet, "/api/chat/conversations/"+conv.ID, ""); w.Code != http.StatusOK {
		t.Errorf("get: status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/chat/conversations/conv-nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", w.Code)
	}

	w = do(r, http.MethodPut, "/api/chat/conversations/"+conv.ID, `{"title":"Renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d", w.Code)
	}
	json.Unmarshal(w.Body.Bytes(), &conv)
	if conv.Title != "Renamed" {
		t.Errorf("title = %q after update", conv.Title)
	}

	if w := do(r, http.MethodDelete, "/api/chat/conversations/"+conv.ID, ""); w.Code != http.StatusOK {
		t.Errorf("delete: status = %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/chat/conversations/"+conv.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("re-delete: status = %d, want 404", w.Code)
	}
}

func TestListConversationsFilters(t *testing.T) {
	r, cs := newConversationRouter(t, "u1")

	a, _ := cs.Create("u1", store.CreateConversation{Title: "alpha"})
	cs.Create("u1", store.CreateConversation{Title: "beta"})

	if w := do(r, http.MethodPost, "/api/chat/conversations/"+a.ID+"/archive", `{"value":true}`); w.Code != http.StatusOK {
		t.Fatalf("archive: status = %d", w.Code)
	}

	var page store.ConversationPage
	w := do(r, http.MethodGet, "/api/chat/conversations", "")
	json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 1 {
		t.Errorf("default list total = %d, want archived hidden", page.Total)
	}

	w = do(r, http.MethodGet, "/api/chat/conversations?include_archived=true", "")
	json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 2 {
		t.Errorf("include_archived total = %d, want 2", page.Total)
	}
}

func TestConversationMessagesEndpoint(t *testing.T) {
	r, cs := newConversationRouter(t, "u1")
	conv, _ := cs.Create("u1", store.CreateConversation{})
	cs.AppendMessage(conv.ID, "u1", models.RoleUser, "q", nil)
	cs.AppendMessage(conv.ID, "u1", models.RoleAssistant, "a", nil)

	w := do(r, http.MethodGet, "/api/chat/conversations/"+conv.ID+"/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var msgs []models.Message
	json.Unmarshal(w.Body.Bytes(), &msgs)
	if len(msgs) != 2 || msgs[0].Content != "q" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestTagEndpointValidation(t *testing.T) {
	r, cs := newConversationRouter(t, "u1")
	conv, _ := cs.Create("u1", store.CreateConversation{})

	if w := do(r, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/tags", `{"tag":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank tag: status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/tags", `{"tag":"genomics"}`); w.Code != http.StatusOK {
		t.Errorf("add tag: status = %d", w.Code)
	}
}
