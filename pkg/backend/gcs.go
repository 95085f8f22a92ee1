/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
)

const gcsAPI = "https://storage.googleapis.com/storage/v1"
const gcsUploadAPI = "https://storage.googleapis.com/upload/storage/v1"

// GCSBackend is a Backend backed by a Google Cloud Storage bucket,
// authenticated with a service-account key via the JSON API, talking
// to the plain JSON API directly over the OAuth2 client's http.Client
// rather than pulling in a dedicated object-storage SDK.
type GCSBackend struct {
	client *http.Client
	bucket string
	prefix string
}

func NewGCSBackend(ctx context.Context, bucket, prefix string, serviceAccountJSON []byte) (*GCSBackend, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON,
		"https://www.googleapis.com/auth/devstorage.read_write")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse gcs service account credentials")
	}

	return &GCSBackend{
		client: oauth2HTTPClient(ctx, creds),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func oauth2HTTPClient(ctx context.Context, creds *google.Credentials) *http.Client {
	return &http.Client{Transport: &oauth2Transport{ctx: ctx, creds: creds}}
}

type oauth2Transport struct {
	ctx   context.Context
	creds *google.Credentials
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.creds.TokenSource.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to mint gcs oauth2 token")
	}
	clone := req.Clone(req.Context())
	tok.SetAuthHeader(clone)
	return http.DefaultTransport.RoundTrip(clone)
}

func (b *GCSBackend) objectName(key string) string {
	return b.prefix + key
}

type gcsObject struct {
	Name    string `json:"name"`
	Updated string `json:"updated"`
}

type gcsListResponse struct {
	Items         []gcsObject `json:"items"`
	NextPageToken string      `json:"nextPageToken"`
}

func (b *GCSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("prefix", b.objectName(prefix))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		reqURL := fmt.Sprintf("%s/b/%s/o?%s", gcsAPI, url.PathEscape(b.bucket), q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := b.client.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list gcs objects")
		}
		var out gcsListResponse
		err = decodeAndClose(resp, &out)
		if err != nil {
			return nil, err
		}

		for _, obj := range out.Items {
			keys = append(keys, strings.TrimPrefix(obj.Name, b.prefix))
		}

		if out.NextPageToken == "" {
			break
		}
		pageToken = out.NextPageToken
	}

	return keys, nil
}

func (b *GCSBackend) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	reqURL := fmt.Sprintf("%s/b/%s/o/%s?alt=media", gcsAPI,
		url.PathEscape(b.bucket), url.PathEscape(b.objectName(key)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", key)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.Errorf("gcs fetch %s: status %d", key, resp.StatusCode)
	}
	return resp.Body, nil
}

func (b *GCSBackend) Upload(ctx context.Context, key string, contents io.Reader, length int64) error {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", b.objectName(key))

	reqURL := fmt.Sprintf("%s/b/%s/o?%s", gcsUploadAPI, url.PathEscape(b.bucket), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, contents)
	if err != nil {
		return err
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", "application/x-tar")

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("gcs upload %s: status %d", key, resp.StatusCode)
	}
	return nil
}

func (b *GCSBackend) Updated(ctx context.Context, key string) (time.Time, error) {
	q := url.Values{}
	q.Set("fields", "updated")

	reqURL := fmt.Sprintf("%s/b/%s/o/%s?%s", gcsAPI,
		url.PathEscape(b.bucket), url.PathEscape(b.objectName(key)), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", key)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return time.Time{}, ErrNotFound
	}

	var obj gcsObject
	if err := decodeAndClose(resp, &obj); err != nil {
		return time.Time{}, err
	}

	updated, err := time.Parse(time.RFC3339, obj.Updated)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse gcs updated timestamp for %s", key)
	}
	return updated, nil
}

func decodeAndClose(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("gcs request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
