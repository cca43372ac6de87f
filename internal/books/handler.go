package books

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/auth"
	"github.com/yourusername/book-catalog/internal/logging"
	"github.com/yourusername/book-catalog/internal/models"
)

// Handler は /api/books 以下のハンドラーです。
type Handler struct {
	svc   *Service
	guard *auth.Guard
	log   logging.Logger
}

// NewHandler は書籍ハンドラーを作成します。
func NewHandler(svc *Service, guard *auth.Guard, log logging.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, log: log}
}

// RegisterRoutes はルートを登録します。閲覧は誰でも、変更はログインが必要です。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/books", h.List)
	api.GET("/books/:id", h.Get)

	protected := api.Group("/books", h.guard.RequireAuthenticated())
	protected.POST("", h.Create)
	protected.PUT("/:id", h.Update)
	protected.DELETE("/:id", h.Delete)
}

// bookRequest は作成・更新のリクエストです。uploader と _id は受け付けません。
type bookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

func (r bookRequest) fields() Fields {
	return Fields{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

// List は GET /api/books のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	filter := models.BookFilter{
		Genre:    c.Query("genre"),
		Uploader: c.Query("uploader"),
		Query:    c.Query("q"),
	}
	books, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		apperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// Get は GET /api/books/:id のハンドラーです。
func (h *Handler) Get(c *gin.Context) {
	book, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create は POST /api/books のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.log, apperr.Validation(MsgMissingFields))
		return
	}

	actor, _ := auth.CurrentUser(c)
	book, err := h.svc.Create(c.Request.Context(), actor, req.fields())
	if err != nil {
		apperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": MsgCreated, "id": book.ID})
}

// Update は PUT /api/books/:id のハンドラーです。
func (h *Handler) Update(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.log, apperr.Validation(MsgMissingFields))
		return
	}

	actor, _ := auth.CurrentUser(c)
	if _, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), req.fields()); err != nil {
		apperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": MsgUpdated})
}

// Delete は DELETE /api/books/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	actor, _ := auth.CurrentUser(c)
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		apperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": MsgDeleted})
}
