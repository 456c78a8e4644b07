package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PlatformPoster = (*FacebookPoster)(nil)

// FacebookPoster publishes to a Facebook page via the Graph API. Photo
// posts are preferred; when every image source fails the post degrades to
// a plain feed post instead of failing outright.
type FacebookPoster struct {
	pageID       string
	accessToken  string
	graphVersion string
	baseURL      string
	client       *http.Client
	log          zerolog.Logger
}

func NewFacebookPoster(pageID, accessToken, graphVersion string, log zerolog.Logger) (*FacebookPoster, error) {
	if pageID == "" || accessToken == "" {
		return nil, errors.New("facebook page id and access token required")
	}
	if graphVersion == "" {
		graphVersion = "v19.0"
	}
	return &FacebookPoster{
		pageID:       pageID,
		accessToken:  accessToken,
		graphVersion: graphVersion,
		baseURL:      "https://graph.facebook.com",
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          log.With().Str("component", "facebook_poster").Logger(),
	}, nil
}

func (f *FacebookPoster) Platform() model.Platform { return model.PlatformFacebook }

func (f *FacebookPoster) endpoint(path string) string {
	return f.baseURL + "/" + f.graphVersion + path
}

// SetBaseURL points the poster at a test server.
func (f *FacebookPoster) SetBaseURL(base string) { f.baseURL = base }

func (f *FacebookPoster) Publish(ctx context.Context, post adapter.RenderedPost) (*model.PostOutcome, error) {
	caption := renderCaption(post)

	var lastImageErr error
	img := post.Image

	if len(img.Data) > 0 {
		outcome, err := f.postPhotoBytes(ctx, caption, "upload.jpg", img.Data)
		if err == nil {
			return outcome, nil
		}
		if !isMediaFailure(err) {
			return nil, err
		}
		lastImageErr = err
		f.log.Warn().Err(err).Msg("photo upload from bytes failed, trying next source")
	}

	for _, u := range []string{img.ServeURL} {
		if u == "" {
			continue
		}
		outcome, err := f.postPhotoURL(ctx, caption, u)
		if err == nil {
			return outcome, nil
		}
		if !isMediaFailure(err) {
			return nil, err
		}
		lastImageErr = err
		f.log.Warn().Err(err).Str("url", u).Msg("photo post from serve url failed, trying next source")
	}

	if img.LocalPath != "" {
		data, err := os.ReadFile(img.LocalPath)
		if err != nil {
			lastImageErr = err
			f.log.Warn().Err(err).Str("path", img.LocalPath).Msg("local image unreadable, trying next source")
		} else {
			outcome, err := f.postPhotoBytes(ctx, caption, "upload.jpg", data)
			if err == nil {
				return outcome, nil
			}
			if !isMediaFailure(err) {
				return nil, err
			}
			lastImageErr = err
			f.log.Warn().Err(err).Msg("photo upload from local file failed, trying next source")
		}
	}

	if img.UpstreamURL != "" {
		outcome, err := f.postPhotoURL(ctx, caption, img.UpstreamURL)
		if err == nil {
			return outcome, nil
		}
		if !isMediaFailure(err) {
			return nil, err
		}
		lastImageErr = err
		f.log.Warn().Err(err).Msg("photo post from upstream url failed, degrading to text-only")
	}

	if lastImageErr != nil {
		f.log.Warn().Err(lastImageErr).Msg("all image sources exhausted")
	}
	return f.postFeed(ctx, caption, post.SourceURL)
}

func (f *FacebookPoster) VerifyCredentials(ctx context.Context) error {
	u := f.endpoint("/"+f.pageID) + "?fields=id&access_token=" + url.QueryEscape(f.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return f.graphError(resp)
	}
	return nil
}

func (f *FacebookPoster) postPhotoURL(ctx context.Context, caption, imageURL string) (*model.PostOutcome, error) {
	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("caption", caption)
	form.Set("access_token", f.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.endpoint("/"+f.pageID+"/photos"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.doPost(req)
}

func (f *FacebookPoster) postPhotoBytes(ctx context.Context, caption, filename string, data []byte) (*model.PostOutcome, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("source", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	_ = mw.WriteField("caption", caption)
	_ = mw.WriteField("access_token", f.accessToken)
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.endpoint("/"+f.pageID+"/photos"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.doPost(req)
}

func (f *FacebookPoster) postFeed(ctx context.Context, message, link string) (*model.PostOutcome, error) {
	form := url.Values{}
	form.Set("message", message)
	if link != "" {
		form.Set("link", link)
	}
	form.Set("access_token", f.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.endpoint("/"+f.pageID+"/feed"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.doPost(req)
}

func (f *FacebookPoster) doPost(req *http.Request) (*model.PostOutcome, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, adapter.NewPublishError(model.FailureTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, f.graphError(resp)
	}

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, adapter.NewPublishError(model.FailureTransient, err)
	}
	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	if postID == "" {
		return nil, adapter.NewPublishError(model.FailureFatal, errors.New("graph response without id"))
	}
	return &model.PostOutcome{
		PostID:   postID,
		PostURL:  "https://www.facebook.com/" + postID,
		PostedAt: time.Now().UTC(),
	}, nil
}

// graphError maps a non-200 Graph response to a classified publish error.
func (f *FacebookPoster) graphError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ge struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &ge)

	err := fmt.Errorf("graph api %d: %s (code %d)", resp.StatusCode, ge.Error.Message, ge.Error.Code)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		ge.Error.Type == "OAuthException", ge.Error.Code == 190:
		return adapter.NewPublishError(model.FailureAuth, err)
	case resp.StatusCode >= 500:
		return adapter.NewPublishError(model.FailureTransient, err)
	case isImageFetchCode(ge.Error.Code):
		return adapter.NewPublishError(model.FailureStaleMedia, err)
	default:
		return adapter.NewPublishError(model.FailureFatal, err)
	}
}

// Graph codes seen when the platform cannot fetch or decode the image.
func isImageFetchCode(code int) bool {
	switch code {
	case 100, 324, 1366:
		return true
	}
	return false
}

// isMediaFailure reports whether the next image source is worth trying.
// Auth failures are not: the same token will fail for every source.
func isMediaFailure(err error) bool {
	kind := adapter.ClassifyPublishError(err)
	return kind == model.FailureStaleMedia || kind == model.FailureTransient || kind == model.FailureFatal
}

func renderCaption(post adapter.RenderedPost) string {
	var b strings.Builder
	if post.Title != "" {
		b.WriteString(post.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(post.Body)
	if post.Author != "" {
		b.WriteString("\n\nАвтор: ")
		b.WriteString(post.Author)
	}
	if post.SourceURL != "" {
		b.WriteString("\n\n")
		b.WriteString(post.SourceURL)
	}
	return b.String()
}
