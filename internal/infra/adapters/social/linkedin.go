package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PlatformPoster = (*LinkedInPoster)(nil)

// LinkedInPoster publishes organization shares through the UGC Posts API.
// When image bytes are available they go through the registerUpload flow;
// otherwise the share carries the source article link, or plain text as the
// last resort.
type LinkedInPoster struct {
	accessToken     string
	organizationURN string
	baseURL         string
	client          *http.Client
	log             zerolog.Logger
}

func NewLinkedInPoster(accessToken, organizationURN string, log zerolog.Logger) (*LinkedInPoster, error) {
	if accessToken == "" || organizationURN == "" {
		return nil, errors.New("linkedin access token and organization urn required")
	}
	return &LinkedInPoster{
		accessToken:     accessToken,
		organizationURN: organizationURN,
		baseURL:         "https://api.linkedin.com",
		client:          &http.Client{Timeout: 30 * time.Second},
		log:             log.With().Str("component", "linkedin_poster").Logger(),
	}, nil
}

func (l *LinkedInPoster) Platform() model.Platform { return model.PlatformLinkedIn }

// SetBaseURL points the poster at a test server.
func (l *LinkedInPoster) SetBaseURL(base string) { l.baseURL = base }

func (l *LinkedInPoster) Publish(ctx context.Context, post adapter.RenderedPost) (*model.PostOutcome, error) {
	text := renderCaption(post)

	imageData := post.Image.Data
	if len(imageData) == 0 && post.Image.LocalPath != "" {
		data, err := os.ReadFile(post.Image.LocalPath)
		if err != nil {
			l.log.Warn().Err(err).Str("path", post.Image.LocalPath).Msg("local image unreadable, sharing without image")
		} else {
			imageData = data
		}
	}

	if len(imageData) > 0 {
		outcome, err := l.publishWithImage(ctx, text, imageData)
		if err == nil {
			return outcome, nil
		}
		if adapter.ClassifyPublishError(err) == model.FailureAuth {
			return nil, err
		}
		l.log.Warn().Err(err).Msg("image share failed, degrading to article share")
	}

	return l.publishShare(ctx, text, post.SourceURL, "")
}

func (l *LinkedInPoster) VerifyCredentials(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v2/me", nil)
	if err != nil {
		return err
	}
	l.setHeaders(req)
	resp, err := l.client.Do(req)
	if err != nil {
		return adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return l.apiError(resp)
	}
	return nil
}

// publishWithImage runs the three-step UGC image flow: register an upload,
// PUT the binary, then create the share referencing the asset URN.
func (l *LinkedInPoster) publishWithImage(ctx context.Context, text string, data []byte) (*model.PostOutcome, error) {
	asset, uploadURL, err := l.registerUpload(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.uploadBinary(ctx, uploadURL, data); err != nil {
		return nil, err
	}
	return l.publishShare(ctx, text, "", asset)
}

func (l *LinkedInPoster) registerUpload(ctx context.Context) (asset, uploadURL string, err error) {
	payload := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   l.organizationURN,
			"serviceRelationships": []map[string]any{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.baseURL+"/v2/assets?action=registerUpload", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	l.setHeaders(req)
	resp, err := l.client.Do(req)
	if err != nil {
		return "", "", adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", l.apiError(resp)
	}

	var out struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", adapter.NewPublishError(model.FailureTransient, err)
	}
	for _, mech := range out.Value.UploadMechanism {
		if mech.UploadURL != "" {
			return out.Value.Asset, mech.UploadURL, nil
		}
	}
	return "", "", adapter.NewPublishError(model.FailureFatal, errors.New("register upload response without upload url"))
}

func (l *LinkedInPoster) uploadBinary(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+l.accessToken)
	resp, err := l.client.Do(req)
	if err != nil {
		return adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return l.apiError(resp)
	}
	return nil
}

func (l *LinkedInPoster) publishShare(ctx context.Context, text, articleURL, assetURN string) (*model.PostOutcome, error) {
	content := map[string]any{
		"shareCommentary":    map[string]string{"text": text},
		"shareMediaCategory": "NONE",
	}
	switch {
	case assetURN != "":
		content["shareMediaCategory"] = "IMAGE"
		content["media"] = []map[string]any{{"status": "READY", "media": assetURN}}
	case articleURL != "":
		content["shareMediaCategory"] = "ARTICLE"
		content["media"] = []map[string]any{{"status": "READY", "originalUrl": articleURL}}
	}

	payload := map[string]any{
		"author":         l.organizationURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": content,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v2/ugcPosts", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	l.setHeaders(req)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, l.apiError(resp)
	}

	postURN := resp.Header.Get("X-RestLi-Id")
	if postURN == "" {
		var out struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		postURN = out.ID
	}
	if postURN == "" {
		return nil, adapter.NewPublishError(model.FailureFatal, errors.New("ugc post response without id"))
	}
	return &model.PostOutcome{
		PostID:   postURN,
		PostURL:  "https://www.linkedin.com/feed/update/" + postURN,
		PostedAt: time.Now().UTC(),
	}, nil
}

func (l *LinkedInPoster) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+l.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

func (l *LinkedInPoster) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var le struct {
		Message          string `json:"message"`
		ServiceErrorCode int    `json:"serviceErrorCode"`
	}
	_ = json.Unmarshal(body, &le)

	err := fmt.Errorf("linkedin api %d: %s", resp.StatusCode, le.Message)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return adapter.NewPublishError(model.FailureAuth, err)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return adapter.NewPublishError(model.FailureTransient, err)
	default:
		return adapter.NewPublishError(model.FailureFatal, err)
	}
}
