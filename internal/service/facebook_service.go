package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/pageflowhq/pageflow/configs"
	"github.com/pageflowhq/pageflow/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const graphVersion = "v23.0"

// FacebookService wraps the Graph API. The publishing calls
// (UploadImageToPage, PostToPage) return an empty string on any failure and
// log the raw response; callers branch on emptiness, never on an error value.
type FacebookService interface {
	LoginURL(state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*transfer.FacebookToken, error)
	GetUserProfile(ctx context.Context, accessToken string) (*transfer.FacebookUser, error)
	GetUserPages(ctx context.Context, accessToken string) ([]*transfer.FacebookPage, error)
	UploadImageToPage(ctx context.Context, pageID, accessToken, imageURL string) string
	PostToPage(ctx context.Context, pageID, accessToken, message, imageID string) string
}

type facebookService struct {
	cfg     config.Config
	client  *http.Client
	baseURL string
}

func NewFacebookService(cfg config.Config) FacebookService {
	return &facebookService{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://graph.facebook.com/" + graphVersion,
	}
}

func (s *facebookService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.FacebookClientID,
		ClientSecret: s.cfg.FacebookClientSecret,
		RedirectURL:  s.cfg.FacebookRedirectURI,
		Scopes:       []string{"public_profile", "pages_show_list", "pages_manage_posts"},
		Endpoint:     facebook.Endpoint,
	}
}

func (s *facebookService) LoginURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

func (s *facebookService) ExchangeCodeForToken(ctx context.Context, code string) (*transfer.FacebookToken, error) {
	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	return &transfer.FacebookToken{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
	}, nil
}

func (s *facebookService) GetUserProfile(ctx context.Context, accessToken string) (*transfer.FacebookUser, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,name&access_token=%s", s.baseURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Facebook: %s (status code: %d)", body, resp.StatusCode)
	}

	var user transfer.FacebookUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &user, nil
}

func (s *facebookService) GetUserPages(ctx context.Context, accessToken string) ([]*transfer.FacebookPage, error) {
	reqURL := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token&limit=200&access_token=%s",
		s.baseURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Facebook: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		Data []*transfer.FacebookPage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return result.Data, nil
}

// UploadImageToPage publishes an image to the page's photo album and returns
// the photo id, or "" when the upload was rejected.
func (s *facebookService) UploadImageToPage(ctx context.Context, pageID, accessToken, imageURL string) string {
	uploadURL := fmt.Sprintf("%s/%s/photos", s.baseURL, pageID)

	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("url", imageURL)
	form.Set("published", "false")

	return s.postForm(ctx, uploadURL, form, "upload image to page")
}

// PostToPage publishes a feed post and returns the post id, or "" on any
// failure. imageID, when non-empty, attaches a previously uploaded photo.
func (s *facebookService) PostToPage(ctx context.Context, pageID, accessToken, message, imageID string) string {
	postURL := fmt.Sprintf("%s/%s/feed", s.baseURL, pageID)

	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("message", message)
	if imageID != "" {
		form.Set("object_attachment", imageID)
	}

	return s.postForm(ctx, postURL, form, "post to page")
}

func (s *facebookService) postForm(ctx context.Context, apiURL string, form url.Values, op string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("FB "+op+" request build failed", "error", err.Error())
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("FB "+op+" failed", "api_url", apiURL, "error", err.Error())
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("FB "+op+" failed", "api_url", apiURL, "error", err.Error())
		return ""
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("FB "+op+" failed", "api_url", apiURL, "status", resp.StatusCode, "response", string(body))
		return ""
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.ID == "" {
		slog.Error("FB "+op+" returned no id", "api_url", apiURL, "response", string(body))
		return ""
	}

	slog.Info("FB "+op+" success", "api_url", apiURL, "id", result.ID)
	return result.ID
}
