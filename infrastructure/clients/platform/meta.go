package platform

import (
	"context"
	"net/http"
	"strings"

	"social-publisher/domain/model"

	"github.com/google/go-querystring/query"
)

const (
	instagramGraphURL = "https://graph.instagram.com"
	facebookGraphURL  = "https://graph.facebook.com"
	threadsGraphURL   = "https://graph.threads.net"
	metaGraphVersion  = "v19.0"
)

type graphID struct {
	ID string `json:"id"`
}

// InstagramClient publishes through the two step container flow.
type InstagramClient struct{ api }

func (c *InstagramClient) Platform() model.Platform { return model.PlatformInstagram }

type instagramContainer struct {
	Caption   string `json:"caption"`
	ImageURL  string `json:"image_url,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

func (c *InstagramClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	if len(req.Media) == 0 {
		return model.PublishReceipt{}, &model.PublishError{Platform: c.platform, Code: model.CodeInvalidContent, Message: "instagram posts require an image or video"}
	}
	first := req.Media[0]
	container := instagramContainer{Caption: req.Content}
	if first.Kind == model.MediaVideo {
		container.MediaType = "REELS"
		container.VideoURL = first.URL
	} else {
		container.ImageURL = first.URL
	}
	body, err := jsonBody(container)
	if err != nil {
		return model.PublishReceipt{}, err
	}

	account := req.Credentials.PlatformAccountID
	var created graphID
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/" + metaGraphVersion + "/" + account + "/media", token: req.Credentials.AccessToken, body: body}, &created); err != nil {
		return model.PublishReceipt{}, err
	}
	body, _ = jsonBody(map[string]string{"creation_id": created.ID})
	var published graphID
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/" + metaGraphVersion + "/" + account + "/media_publish", token: req.Credentials.AccessToken, body: body}, &published); err != nil {
		return model.PublishReceipt{}, err
	}
	return model.PublishReceipt{ExternalPostID: published.ID, URL: "https://instagram.com/p/" + published.ID}, nil
}

func (c *InstagramClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID                string `json:"id"`
		Username          string `json:"username"`
		Name              string `json:"name"`
		ProfilePictureURL string `json:"profile_picture_url"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/me?fields=id,username,name,profile_picture_url", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: data.ID, Handle: data.Username, DisplayName: data.Name, ProfileImageURL: data.ProfilePictureURL}, nil
}

// FacebookClient posts to a page feed with form encoded bodies.
type FacebookClient struct{ api }

func (c *FacebookClient) Platform() model.Platform { return model.PlatformFacebook }

type facebookFeedForm struct {
	Message string `url:"message"`
	Link    string `url:"link,omitempty"`
}

type facebookPhotoForm struct {
	URL     string `url:"url"`
	Caption string `url:"caption,omitempty"`
}

type facebookVideoForm struct {
	FileURL     string `url:"file_url"`
	Description string `url:"description,omitempty"`
}

func (c *FacebookClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	page := req.Credentials.PlatformAccountID
	var (
		form any
		edge = "feed"
	)
	switch {
	case len(req.Media) == 0:
		form = facebookFeedForm{Message: req.Content}
	case req.Media[0].Kind == model.MediaVideo:
		form, edge = facebookVideoForm{FileURL: req.Media[0].URL, Description: req.Content}, "videos"
	default:
		form, edge = facebookPhotoForm{URL: req.Media[0].URL, Caption: req.Content}, "photos"
	}
	values, err := query.Values(form)
	if err != nil {
		return model.PublishReceipt{}, err
	}

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if _, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/" + metaGraphVersion + "/" + page + "/" + edge,
		token:       req.Credentials.AccessToken,
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(values.Encode()),
	}, &out); err != nil {
		return model.PublishReceipt{}, err
	}
	id := out.PostID
	if id == "" {
		id = out.ID
	}
	return model.PublishReceipt{ExternalPostID: id, URL: "https://facebook.com/" + id}, nil
}

func (c *FacebookClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/me?fields=id,name,email,picture.type(large)", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	handle := data.Email
	if handle == "" {
		handle = data.Name
	}
	return model.UserProfile{ID: data.ID, Handle: handle, DisplayName: data.Name, ProfileImageURL: data.Picture.Data.URL}, nil
}

// ThreadsClient mirrors the Instagram container flow on the Threads graph.
type ThreadsClient struct{ api }

func (c *ThreadsClient) Platform() model.Platform { return model.PlatformThreads }

type threadsContainerForm struct {
	MediaType string `url:"media_type"`
	Text      string `url:"text,omitempty"`
	ImageURL  string `url:"image_url,omitempty"`
	VideoURL  string `url:"video_url,omitempty"`
}

type threadsPublishForm struct {
	CreationID string `url:"creation_id"`
}

func (c *ThreadsClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	form := threadsContainerForm{MediaType: "TEXT", Text: req.Content}
	if len(req.Media) > 0 {
		if req.Media[0].Kind == model.MediaVideo {
			form.MediaType, form.VideoURL = "VIDEO", req.Media[0].URL
		} else {
			form.MediaType, form.ImageURL = "IMAGE", req.Media[0].URL
		}
	}
	account := req.Credentials.PlatformAccountID
	var created graphID
	if err := c.postForm(ctx, "/v1.0/"+account+"/threads", req.Credentials.AccessToken, form, &created); err != nil {
		return model.PublishReceipt{}, err
	}
	var published graphID
	if err := c.postForm(ctx, "/v1.0/"+account+"/threads_publish", req.Credentials.AccessToken, threadsPublishForm{CreationID: created.ID}, &published); err != nil {
		return model.PublishReceipt{}, err
	}
	return model.PublishReceipt{ExternalPostID: published.ID}, nil
}

func (c *ThreadsClient) postForm(ctx context.Context, path, token string, form any, out any) error {
	values, err := query.Values(form)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		token:       token,
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(values.Encode()),
	}, out)
	return err
}

func (c *ThreadsClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID                       string `json:"id"`
		Username                 string `json:"username"`
		Name                     string `json:"name"`
		ThreadsProfilePictureURL string `json:"threads_profile_picture_url"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v1.0/me?fields=id,username,name,threads_profile_picture_url", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: data.ID, Handle: data.Username, DisplayName: data.Name, ProfileImageURL: data.ThreadsProfilePictureURL}, nil
}
