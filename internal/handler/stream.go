package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/poll"
)

// stream writes every change p observes as a server-sent event named event
// until the client goes away.
func stream[T any](c echo.Context, log *zap.Logger, event string, p *poll.Poller[T]) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	if p.OnError == nil {
		p.OnError = func(err error) {
			log.Warn("stream fetch failed", zap.String("event", event), zap.Error(err))
		}
	}
	err := p.Run(c.Request().Context(), func(v T) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		res.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("stream closed", zap.String("event", event), zap.Error(err))
	}
	return nil
}

// fetchWithTimeout bounds one poll read by requestTimeout.
func fetchWithTimeout[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

// pollInterval falls back to the polling default when unset.
func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Second
	}
	return d
}
