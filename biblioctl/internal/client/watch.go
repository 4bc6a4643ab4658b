package client

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watch subscribes to the change stream of the school. The channel is closed
// when ctx is done or the server ends the stream.
func (c *Client) Watch(ctx context.Context) (<-chan model.Change, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/changes", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "GET /changes")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	out := make(chan model.Change, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for change := range readEvents(ctx, resp, c.log) {
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// readEvents parses the data lines of a server-sent event stream. It stops
// when ctx is done even if nobody reads the channel.
func readEvents(ctx context.Context, resp *http.Response, log *zap.Logger) <-chan model.Change {
	events := make(chan model.Change)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		var data strings.Builder
		for sc.Scan() {
			line := sc.Text()
			switch {
			case line == "":
				if data.Len() == 0 {
					continue
				}
				var change model.Change
				if err := json.Unmarshal([]byte(data.String()), &change); err != nil {
					log.Warn("bad change event", zap.Error(err))
				} else {
					select {
					case events <- change:
					case <-ctx.Done():
						return
					}
				}
				data.Reset()
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
		if err := sc.Err(); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("change stream ended", zap.Error(err))
		}
	}()
	return events
}
