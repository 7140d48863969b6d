package api

import (
	"context"
	"time"

	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/monitor"
	"github.com/postwatch/postwatch/app/source"
)

// MonitorInterface is the scheduler surface the API drives.
type MonitorInterface interface {
	Start() bool
	Stop() bool
	RunOnce()
	IsRunning() bool
	Interval() time.Duration
	LastSummary() *monitor.Summary
}

var _ MonitorInterface = (*monitor.Monitor)(nil)

// SourceInterface covers the upstream calls the API makes directly:
// a baseline fetch when an account is added, and the credit gauge.
type SourceInterface interface {
	FetchRecent(ctx context.Context, handle string, limit int) ([]source.Post, error)
	Credits() int64
}

var _ SourceInterface = (*source.Client)(nil)

type Handler struct {
	channels database.ChannelRepository
	accounts database.AccountRepository
	source   SourceInterface
	monitor  MonitorInterface
}

type createChannelRequest struct {
	Name       string `json:"name" binding:"required"`
	WebhookURL string `json:"webhook_url" binding:"required"`
}

type createAccountRequest struct {
	Handle  string `json:"handle" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}
