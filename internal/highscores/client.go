package highscores

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"tibia-tracker/internal/config"
	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Client fetches the game server's public highscores page and turns it into
// typed rank entries. Loose HTML handling stays here; everything past this
// boundary works with validated entries only.
type Client struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		url: cfg.HighscoresURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.FetchTimeout,
			WriteTimeout:        constants.FetchTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) Fetch(ctx context.Context) ([]domain.PlayerRankEntry, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", constants.UserAgent)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch highscores page: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("highscores page returned status %d", resp.StatusCode())
	}

	entries, err := Parse(bytes.NewReader(resp.Body()), c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("url", c.url).
		Int("entries", len(entries)).
		Msg("highscores page fetched")
	return entries, nil
}
