package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayofalola240/Okra-assessment/internal/cache"
	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/http/middlewares"
	"github.com/ayofalola240/Okra-assessment/internal/observability"
	"github.com/ayofalola240/Okra-assessment/internal/service"
	"github.com/ayofalola240/Okra-assessment/internal/utils"
)

type UsersService interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, page, pageSize int) (service.Page, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) (user.User, error)
}

type UsersHandler struct {
	svc     UsersService
	cache   *cache.Cache[[]byte]
	prom    *observability.Prom
	timeout time.Duration
}

func NewUsersHandler(svc UsersService) *UsersHandler {
	return &UsersHandler{svc: svc, timeout: 5 * time.Second}
}

// NewUsersHandlerWithCache caches encoded list pages for the cache's TTL.
// Any successful write clears it.
func NewUsersHandlerWithCache(svc UsersService, c *cache.Cache[[]byte], prom *observability.Prom, timeout time.Duration) *UsersHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &UsersHandler{svc: svc, cache: c, prom: prom, timeout: timeout}
}

type paginationMeta struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
	TotalUsers  int `json:"totalUsers"`
}

type listUsersResponse struct {
	Message    string         `json:"message"`
	Users      []user.User    `json:"users"`
	Pagination paginationMeta `json:"pagination"`
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Create(c, req)
	h.prom.ObserveWrite("create", err)

	if err != nil {
		respondServiceError(ctx, err, "Error creating user")
		return
	}

	h.invalidateList()
	ctx.Set(middlewares.CtxUserID, u.ID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	page := queryInt(ctx, "page")
	size := queryInt(ctx, "limit")
	if size == 0 {
		size = queryInt(ctx, "pageSize")
	}

	page, size = service.NormalizePageParams(page, size)
	key := utils.BuildUsersListCacheKey(page, size)

	if h.cache != nil {
		cached, ok := h.cache.Get(key)
		h.prom.ObserveCache("users_list", ok)

		if ok {
			ctx.Data(http.StatusOK, jsonContentType, cached)
			return
		}
	}

	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.svc.List(c, page, size)

	if err != nil {
		respondServiceError(ctx, err, "Error fetching users")
		return
	}

	resp := listUsersResponse{
		Message: "Users fetched successfully",
		Users:   p.Items,
		Pagination: paginationMeta{
			CurrentPage: p.Page,
			PageSize:    p.PageSize,
			TotalPages:  p.TotalPages,
			TotalUsers:  p.TotalItems,
		},
	}

	body, err := json.Marshal(resp)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "encode users page failed", "err", err)
		RespondInternal(ctx, "Error fetching users")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, body)
	}

	ctx.Data(http.StatusOK, jsonContentType, body)
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxUserID, id)

	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Get(c, id)

	if err != nil {
		respondServiceError(ctx, err, "Error retrieving user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"user":    u,
	})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxUserID, id)

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Update(c, id, req)
	h.prom.ObserveWrite("update", err)

	if err != nil {
		respondServiceError(ctx, err, "Error updating user details")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User details updated successfully",
		"user":    u,
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxUserID, id)

	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Delete(c, id)
	h.prom.ObserveWrite("delete", err)

	if err != nil {
		respondServiceError(ctx, err, "Error deleting user")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"user":    u,
	})
}

func (h *UsersHandler) invalidateList() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// queryInt returns 0 for missing or malformed values so the caller's
// defaults apply.
func queryInt(ctx *gin.Context, key string) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return 0
	}

	return v
}
