package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bioassist/middleware"
	"bioassist/store"

	"github.com/gin-gonic/gin"
)

// CreateConversation handles explicit conversation creation (the completion
// endpoint also creates one implicitly when no id is supplied).
func CreateConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		var body struct {
			Title      string `json:"title"`
			Model      string `json:"model"`
			ExpertID   string `json:"expert_id"`
			ExpertName string `json:"expert_name"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		conv, err := cs.Create(uid, store.CreateConversation{
			Title:      body.Title,
			Model:      body.Model,
			ExpertID:   body.ExpertID,
			ExpertName: body.ExpertName,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create conversation"})
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}

func ListConversations(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		opts := store.ListOptions{
			IncludeArchived: c.Query("include_archived") == "true",
			FavoriteOnly:    c.Query("favorite") == "true",
			ExpertID:        strings.TrimSpace(c.Query("expert_id")),
			Keyword:         strings.TrimSpace(c.Query("q")),
			Page:            page,
			PageSize:        pageSize,
		}

		result, err := cs.List(uid, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		conv, err := cs.Get(c.Param("conversation_id"), uid)
		if err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

func GetConversationMessages(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		msgs, err := cs.Messages(c.Param("conversation_id"), uid, limit)
		if err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func UpdateConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		var body struct {
			Title      *string   `json:"title"`
			Model      *string   `json:"model"`
			IsArchived *bool     `json:"is_archived"`
			IsFavorite *bool     `json:"is_favorite"`
			Tags       *[]string `json:"tags"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		conv, err := cs.Update(c.Param("conversation_id"), uid, store.ConversationPatch{
			Title:      body.Title,
			Model:      body.Model,
			IsArchived: body.IsArchived,
			IsFavorite: body.IsFavorite,
			Tags:       body.Tags,
		})
		if err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

func DeleteConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		deleted, err := cs.Delete(c.Param("conversation_id"), uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to delete conversation"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "conversation deleted"})
	}
}

// ArchiveConversation flips is_archived; FavoriteConversation flips
// is_favorite. Both accept {"value": bool}.
func ArchiveConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return setFlagHandler(cs, func(v bool) store.ConversationPatch {
		return store.ConversationPatch{IsArchived: &v}
	})
}

func FavoriteConversation(cs *store.ConversationStore) gin.HandlerFunc {
	return setFlagHandler(cs, func(v bool) store.ConversationPatch {
		return store.ConversationPatch{IsFavorite: &v}
	})
}

func setFlagHandler(cs *store.ConversationStore, patch func(bool) store.ConversationPatch) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		var body struct {
			Value bool `json:"value"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		if _, err := cs.Update(c.Param("conversation_id"), uid, patch(body.Value)); err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "ok"})
	}
}

func AddConversationTag(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		var body struct {
			Tag string `json:"tag"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Tag) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "tag is required"})
			return
		}

		if err := cs.AddTag(c.Param("conversation_id"), uid, body.Tag); err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "tag added"})
	}
}

func RemoveConversationTag(cs *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		if err := cs.RemoveTag(c.Param("conversation_id"), uid, c.Param("tag")); err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "tag removed"})
	}
}

func abortStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
}
