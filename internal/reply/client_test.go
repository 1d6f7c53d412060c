package reply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplyPostsMessage(t *testing.T) {
	req := require.New(t)

	var got replyPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("Bearer secret-token", r.Header.Get("Authorization"))
		req.Equal("application/json", r.Header.Get("Content-Type"))
		req.NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "secret-token")
	err := c.Reply(context.Background(), "tok-123", "your fortune awaits")
	req.NoError(err)

	req.Equal("tok-123", got.ReplyToken)
	req.Len(got.Messages, 1)
	req.Equal("text", got.Messages[0].Type)
	req.Equal("your fortune awaits", got.Messages[0].Text)
}

func TestReplyNonSuccessStatus(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "wrong")
	req.Error(c.Reply(context.Background(), "tok", "text"))
}

func TestFetchReturnsContent(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/messages/m42/content", r.URL.Path)
		req.Equal("Bearer secret-token", r.Header.Get("Authorization"))
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/messages/", "secret-token")
	data, err := c.Fetch(context.Background(), "m42")
	req.NoError(err)
	req.Equal([]byte("image-bytes"), data)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "tok")
	_, err := c.Fetch(context.Background(), "gone")
	req.Error(err)
}
