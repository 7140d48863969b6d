package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/postwatch/postwatch/app/cfg"
	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/monitor"
	"github.com/postwatch/postwatch/app/source"
)

func NewHandler(channels database.ChannelRepository, accounts database.AccountRepository,
	src SourceInterface, mon MonitorInterface) *Handler {
	return &Handler{
		channels: channels,
		accounts: accounts,
		source:   src,
		monitor:  mon,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if channelCount, err := h.channels.GetChannelCount(); err == nil {
		health["channels"] = channelCount
	}
	if accountCount, err := h.accounts.GetAccountCount(); err == nil {
		health["accounts"] = accountCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStatus(c *gin.Context) {
	status := map[string]interface{}{
		"running":  h.monitor.IsRunning(),
		"interval": h.monitor.Interval().String(),
	}

	if channelCount, err := h.channels.GetChannelCount(); err == nil {
		status["channels"] = channelCount
	}
	if accountCount, err := h.accounts.GetAccountCount(); err == nil {
		status["accounts"] = accountCount
	}

	// Negative means no API response has reported the gauge yet.
	if credits := h.source.Credits(); credits >= 0 {
		status["credits"] = credits
	}

	if summary := h.monitor.LastSummary(); summary != nil {
		status["last_cycle"] = summary
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.channels.List()
	if err != nil {
		slog.Error("Database error", "operation", "list_channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if channels == nil {
		channels = []database.ChannelWithCount{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"channels": channels,
		"total":    len(channels),
	})
}

func (h *Handler) CreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and webhook_url are required"})
		return
	}

	if !validWebhookURL(req.WebhookURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook_url must be an absolute http(s) URL"})
		return
	}

	id, err := h.channels.Create(req.Name, req.WebhookURL)
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Channel already exists"})
			return
		}
		slog.Error("Database error", "operation", "create_channel", "channel", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Channel created", "channel", req.Name)
	c.JSON(http.StatusCreated, gin.H{
		"id":          id,
		"name":        req.Name,
		"webhook_url": req.WebhookURL,
	})
}

// DeleteChannel removes a channel along with its accounts and delivery
// records.
func (h *Handler) DeleteChannel(c *gin.Context) {
	name := c.Param("name")

	deleted, err := h.channels.Delete(name)
	if err != nil {
		slog.Error("Database error", "operation", "delete_channel", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	slog.Info("Channel deleted", "channel", name)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Query("channel"))
	if err != nil {
		slog.Error("Database error", "operation", "list_accounts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if accounts == nil {
		accounts = []database.AccountWithChannel{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// CreateAccount registers a handle in a channel. The upstream account is
// verified with a synchronous fetch, and its newest post id becomes the
// initial cursor so the first cycle does not replay history.
func (h *Handler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle and channel are required"})
		return
	}

	handle := source.NormalizeHandle(req.Handle)
	if !source.ValidHandle(handle) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid handle"})
		return
	}

	channel, err := h.channels.GetByName(req.Channel)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel", "channel", req.Channel, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if channel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	posts, err := h.source.FetchRecent(c.Request.Context(), handle, cfg.Get().MaxPostsPerCheck)
	if err != nil {
		switch {
		case errors.Is(err, source.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found upstream"})
		case errors.Is(err, source.ErrRateLimited):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Source API rate limited, try again later"})
		default:
			slog.Error("Source API error", "operation", "verify_account", "account", handle, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Source API error"})
		}
		return
	}

	var cursor *string
	if len(posts) > 0 {
		newest := posts[0].ID
		for _, p := range posts[1:] {
			if monitor.ComparePostIDs(p.ID, newest) > 0 {
				newest = p.ID
			}
		}
		cursor = &newest
	}

	if err := h.accounts.Upsert(handle, channel.ID, cursor); err != nil {
		slog.Error("Database error", "operation", "upsert_account", "account", handle, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Account added", "account", handle, "channel", req.Channel)

	response := gin.H{
		"handle":  handle,
		"channel": req.Channel,
	}
	if cursor != nil {
		response["last_seen_id"] = *cursor
	}
	c.JSON(http.StatusCreated, response)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	handle := source.NormalizeHandle(c.Param("handle"))

	deleted, err := h.accounts.Delete(handle)
	if err != nil {
		slog.Error("Database error", "operation", "delete_account", "account", handle, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	slog.Info("Account removed", "account", handle)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) StartMonitor(c *gin.Context) {
	if !h.monitor.Start() {
		c.JSON(http.StatusConflict, gin.H{"error": "Monitor already running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (h *Handler) StopMonitor(c *gin.Context) {
	if !h.monitor.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "Monitor not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": false})
}

// RunMonitorCycle triggers one out-of-band cycle. The cycle runs in the
// background; poll /status for its summary.
func (h *Handler) RunMonitorCycle(c *gin.Context) {
	h.monitor.RunOnce()
	c.JSON(http.StatusAccepted, gin.H{"triggered": true})
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
