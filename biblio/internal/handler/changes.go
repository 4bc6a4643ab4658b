package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Changes streams committed writes of the caller's school as server-sent
// events. Each event names a collection; clients refetch it.
func (h *Handler) Changes(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	changes, err := h.biblioSvc.Subscribe(ctx, ident)
	if err != nil {
		return httpError(err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.log.Error("marshal change", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Collection, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
