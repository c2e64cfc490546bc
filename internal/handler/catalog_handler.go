package handler

import (
	"storyforge/internal/model"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 提供题材目录和预设行动等静态数据。
type CatalogHandler struct{}

// NewCatalogHandler 创建一个新的 CatalogHandler。
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// ListGenres 按固定顺序返回所有题材，包括角色表单的占位提示。
func (h *CatalogHandler) ListGenres(c *gin.Context) {
	ok(c, model.Catalog())
}

type quickChoiceEntry struct {
	ID   model.QuickChoice `json:"id"`
	Text string            `json:"text"`
}

// ListQuickChoices 返回三个预设行动及其对应的文本。
func (h *CatalogHandler) ListQuickChoices(c *gin.Context) {
	entries := make([]quickChoiceEntry, 0, len(model.QuickChoices))
	for _, q := range model.QuickChoices {
		text, _ := q.Text()
		entries = append(entries, quickChoiceEntry{ID: q, Text: text})
	}
	ok(c, entries)
}
