package clients

import (
	"context"
	"fmt"

	ws "lecto-bridge/internal/transport/websocket"
)

// WebSocketClient pushes remind export events to the user who started them.
// A nil hub turns every call into a no-op.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{hub: hub}
}

func (c *WebSocketClient) send(userID int64, msgType, channel string, data map[string]any) {
	if c == nil || c.hub == nil {
		return
	}
	c.hub.Broadcast(userID, &ws.Message{
		Type:    msgType,
		Channel: fmt.Sprintf("%s#%d", channel, userID),
		Data:    data,
	})
}

func (c *WebSocketClient) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	data := map[string]any{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}
	c.send(userID, "export_progress", "remind_export_progress", data)
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	c.send(userID, "export_complete", "remind_export_complete", map[string]any{
		"id":       exportID,
		"url":      url,
		"filename": filename,
		"user_id":  userID,
	})
	return nil
}

func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	c.send(userID, "export_failed", "remind_export_failed", map[string]any{
		"id":      exportID,
		"message": errMsg,
		"user_id": userID,
	})
	return nil
}
