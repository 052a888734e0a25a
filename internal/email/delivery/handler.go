package delivery

import (
	"errors"
	"net/http"
	"strconv"

	emaildomain "mailiq-backend/internal/email/domain"
	"mailiq-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// SyncEmails runs a full sync pass. Pass-fatal failures come back as a
// single error; per-item failures are only visible in the counters.
func (h *EmailHandler) SyncEmails(c *gin.Context) {
	userID := c.GetString("userID")

	resp, err := h.emailUsecase.SyncEmails(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, emaildomain.ErrNotAuthenticated):
			c.JSON(http.StatusBadRequest, gin.H{"error": "User not authenticated with Gmail"})
		case errors.Is(err, emaildomain.ErrRemoteFetch):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to sync emails", "details": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync emails", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmailHandler) GetEmails(c *gin.Context) {
	userID := c.GetString("userID")

	page := 1
	limit := 50
	if parsed, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && parsed > 0 {
		page = parsed
	}
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && parsed > 0 {
		limit = parsed
	}

	resp, err := h.emailUsecase.GetEmails(userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch emails"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmailHandler) GetSingleEmail(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	email, err := h.emailUsecase.GetEmail(userID, id)
	if err != nil {
		if errors.Is(err, emaildomain.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email})
}

func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	if err := h.emailUsecase.MarkEmailAsRead(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, emaildomain.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark email as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email marked as read"})
}

func (h *EmailHandler) GetDomainStats(c *gin.Context) {
	userID := c.GetString("userID")

	resp, err := h.emailUsecase.GetDomainStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch domain stats"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmailHandler) GetFromsForDomain(c *gin.Context) {
	userID := c.GetString("userID")
	domain := c.Param("domain")

	resp, err := h.emailUsecase.GetFromsForDomain(userID, domain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch froms for domain"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmailHandler) GetEmailsByFrom(c *gin.Context) {
	userID := c.GetString("userID")
	fromEmail := c.Param("fromEmail")

	resp, err := h.emailUsecase.GetEmailsByFrom(userID, fromEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch emails by from"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmailHandler) DeleteEmailsByFrom(c *gin.Context) {
	userID := c.GetString("userID")
	fromEmail := c.Param("fromEmail")

	resp, err := h.emailUsecase.DeleteEmailsByFrom(c.Request.Context(), userID, fromEmail)
	if err != nil {
		if errors.Is(err, emaildomain.ErrNotAuthenticated) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User not authenticated with Gmail"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete emails", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
