package controllers

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

// Đọc page/limit từ query string, mặc định 1/10, limit tối đa 100
func parsePagination(c *gin.Context) (page, limit int) {
	page = 1
	limit = 10
	if p := c.Query("page"); p != "" {
		fmt.Sscanf(p, "%d", &page)
	}
	if l := c.Query("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
