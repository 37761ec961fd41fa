package progressclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
)

// ErrNotFound means the service holds no progress for the video.
var ErrNotFound = errors.New("progress not found")

const maxErrorBody = 512

// StatusError is a non-2xx response from the progress service.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	http *resty.Client
	log  *logger.Logger
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}
	return &Client{
		http: rc,
		log:  logger.Default().WithPrefix("progressclient"),
	}
}

func (c *Client) FetchProgress(ctx context.Context, videoID string) (*models.RemoteProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progressclient").WithField("video_id", videoID)
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", videoID).
		Get("/videos/{id}/progress")
	if err != nil {
		log.Warn("failed to fetch progress: %v", err)
		return nil, err
	}
	log.Debug("progress response received in %v, status=%d", time.Since(start), resp.StatusCode())

	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}

	var out models.RemoteProgress
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		log.Warn("failed to decode progress response: %v", err)
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &out, nil
}

// SubmitProgress creates the remote record when first is set and updates it
// otherwise. The snapshot is always complete.
func (c *Client) SubmitProgress(ctx context.Context, videoID string, snapshot models.ProgressSnapshot, first bool) error {
	log := logger.FromContext(ctx).WithPrefix("progressclient").WithField("video_id", videoID)

	req := c.http.R().
		SetContext(ctx).
		SetPathParam("id", videoID).
		SetHeader("Content-Type", "application/json").
		SetBody(snapshot)

	var (
		resp *resty.Response
		err  error
	)
	if first {
		resp, err = req.Post("/videos/{id}/progress")
	} else {
		resp, err = req.Put("/videos/{id}/progress")
	}
	if err != nil {
		log.Warn("failed to submit progress: %v", err)
		return err
	}
	if resp.IsError() {
		return statusError(resp)
	}
	log.Debug("progress submitted (first=%t) at %.1fs", first, snapshot.CurrentTime)
	return nil
}

func (c *Client) SubmitAnswer(ctx context.Context, submission models.AnswerSubmission) (*models.SubmissionRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("progressclient").WithFields(map[string]any{
		"video_id":    submission.VideoID,
		"question_id": submission.QuestionID,
	})

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", submission.VideoID).
		SetHeader("Content-Type", "application/json").
		SetBody(submission).
		Post("/videos/{id}/answers")
	if err != nil {
		log.Warn("failed to submit answer: %v", err)
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}

	var rec models.SubmissionRecord
	if err := json.Unmarshal(resp.Body(), &rec); err != nil {
		return nil, fmt.Errorf("decode submission record: %w", err)
	}
	return &rec, nil
}

func statusError(resp *resty.Response) error {
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{
		Method: resp.Request.Method,
		Path:   resp.Request.URL,
		Status: resp.StatusCode(),
		Body:   body,
	}
}
