package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lms/config"

	"github.com/go-resty/resty/v2"
)

// LocalBlobStore keeps public objects under the static web root and
// private objects outside it. Signed URLs carry an HMAC over key+expiry
// and are verified by the download handler.
type LocalBlobStore struct {
	publicDir  string
	privateDir string
	baseURL    string
	secret     []byte
}

func NewLocalBlobStore(cfg *config.Config) *LocalBlobStore {
	return &LocalBlobStore{
		publicDir:  cfg.BlobDir,
		privateDir: cfg.BlobPrivateDir,
		baseURL:    cfg.BlobBaseURL,
		secret:     []byte(cfg.BlobSignSecret),
	}
}

func (s *LocalBlobStore) Put(key string, data []byte, public bool) (string, error) {
	dir := s.privateDir
	if public {
		dir = s.publicDir
	}

	path := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	if public {
		return s.baseURL + "/uploads/" + key, nil
	}
	return s.baseURL + "/files/" + key, nil
}

func (s *LocalBlobStore) SignURL(key string, ttl time.Duration) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	sig := s.signature(key, expires)
	return fmt.Sprintf("%s/files/%s?expires=%d&sig=%s", s.baseURL, key, expires, sig), nil
}

// VerifySignature checks a signed private-object URL. Used by the file
// delivery handler.
func (s *LocalBlobStore) VerifySignature(key string, expires int64, sig string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := s.signature(key, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// PrivatePath returns the on-disk location of a private object.
func (s *LocalBlobStore) PrivatePath(key string) string {
	return filepath.Join(s.privateDir, filepath.FromSlash(key))
}

func (s *LocalBlobStore) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key + ":" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// RemoteBlobStore talks to an external HTTP storage API exposing put and
// sign endpoints.
type RemoteBlobStore struct {
	client *resty.Client
}

func NewRemoteBlobStore(cfg *config.Config) *RemoteBlobStore {
	client := resty.New().
		SetBaseURL(cfg.BlobApiURL).
		SetHeader("Authorization", "Bearer "+cfg.BlobApiKey).
		SetTimeout(30 * time.Second)
	return &RemoteBlobStore{client: client}
}

func (s *RemoteBlobStore) Put(key string, data []byte, public bool) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	resp, err := s.client.R().
		SetQueryParam("key", key).
		SetQueryParam("visibility", visibility(public)).
		SetBody(data).
		SetResult(&result).
		Put("/objects")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("blob store responded %d: %s", resp.StatusCode(), resp.String())
	}
	return result.URL, nil
}

func (s *RemoteBlobStore) SignURL(key string, ttl time.Duration) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	resp, err := s.client.R().
		SetQueryParam("key", key).
		SetQueryParam("ttl", strconv.Itoa(int(ttl.Seconds()))).
		SetResult(&result).
		Get("/objects/sign")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("blob store responded %d: %s", resp.StatusCode(), resp.String())
	}
	if _, err := url.Parse(result.URL); err != nil {
		return "", err
	}
	return result.URL, nil
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

// unmarshalPayload decodes a job-queue payload.
func unmarshalPayload(payload []byte, out interface{}) error {
	return json.Unmarshal(payload, out)
}
