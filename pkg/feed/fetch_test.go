package feed

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/placeholder-export/internal/testutil"
	"github.com/Sternrassler/placeholder-export/pkg/client"
)

// newTestFetcher builds a fetcher against the mock API with fast retries.
func newTestFetcher(t *testing.T, mock *testutil.MockAPI) *Fetcher {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL())
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}
	return NewFetcher(c)
}

func TestFetcher_Users(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetJSON("/users", `[
		{"id": 1, "name": "Leanne Graham", "email": "Sincere@april.biz"},
		{"id": 2, "name": "Ervin Howell", "email": "Shanna@melissa.tv"}
	]`)

	fetcher := newTestFetcher(t, mock)

	users, err := fetcher.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() failed: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("Got %d users, want 2", len(users))
	}
	if users[0].ID != 1 || users[1].ID != 2 {
		t.Errorf("User ids = [%d %d], want [1 2]", users[0].ID, users[1].ID)
	}
	if users[1].Name != "Ervin Howell" {
		t.Errorf("users[1].Name = %q, want %q", users[1].Name, "Ervin Howell")
	}
}

func TestFetcher_Users_DropsInvalid(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	// User 3 is missing its email: dropped, not fatal
	mock.SetJSON("/users", `[
		{"id": 2, "name": "Ervin Howell", "email": "Shanna@melissa.tv"},
		{"id": 3, "name": "Clementine Bauch"},
		{"id": 4, "name": "", "email": "Julianne.OConner@kory.org"}
	]`)

	fetcher := newTestFetcher(t, mock)

	users, err := fetcher.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() failed: %v", err)
	}

	if len(users) != 1 {
		t.Fatalf("Got %d users, want 1 (invalid records dropped)", len(users))
	}
	if users[0].ID != 2 {
		t.Errorf("users[0].ID = %d, want 2", users[0].ID)
	}
}

func TestFetcher_Users_MalformedJSON(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetJSON("/users", `{"not": "an array"`)

	fetcher := newTestFetcher(t, mock)

	if _, err := fetcher.Users(context.Background()); err == nil {
		t.Error("Expected decode error for malformed JSON")
	}
}

func TestFetcher_PostsForUser(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetHandler("/posts", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "2" {
			t.Errorf("userId query = %q, want %q", got, "2")
		}
		w.Write([]byte(`[
			{"id": 11, "userId": 2, "title": "qui est esse", "body": "est rerum"},
			{"id": 12, "userId": 2, "title": "ea molestias", "body": "et iusto"}
		]`))
	})

	fetcher := newTestFetcher(t, mock)

	posts, err := fetcher.PostsForUser(context.Background(), 2)
	if err != nil {
		t.Fatalf("PostsForUser() failed: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("Got %d posts, want 2", len(posts))
	}
	if posts[0].UserID != 2 {
		t.Errorf("posts[0].UserID = %d, want 2", posts[0].UserID)
	}
}

func TestFetcher_CommentsForPost(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetHandler("/comments", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("postId"); got != "11" {
			t.Errorf("postId query = %q, want %q", got, "11")
		}
		w.Write([]byte(`[
			{"id": 51, "postId": 11, "name": "alias odio", "email": "Lew@alysha.tv", "body": "non et atque"}
		]`))
	})

	fetcher := newTestFetcher(t, mock)

	comments, err := fetcher.CommentsForPost(context.Background(), 11)
	if err != nil {
		t.Fatalf("CommentsForPost() failed: %v", err)
	}

	if len(comments) != 1 {
		t.Fatalf("Got %d comments, want 1", len(comments))
	}
	if comments[0].PostID != 11 {
		t.Errorf("comments[0].PostID = %d, want 11", comments[0].PostID)
	}
}

func TestFetcher_PermanentFailurePropagates(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/posts", testutil.MockResponse{StatusCode: http.StatusNotFound, Body: `{}`})

	fetcher := newTestFetcher(t, mock)

	_, err := fetcher.PostsForUser(context.Background(), 2)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *client.APIError in chain, got %v", err)
	}
	if mock.Requests("/posts") != 1 {
		t.Errorf("Request count = %d, want 1 (4xx not retried)", mock.Requests("/posts"))
	}
}

func TestFetcher_TransientFailureRetried(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.FailTimes("/users", 2, http.StatusInternalServerError,
		`[{"id": 2, "name": "Ervin Howell", "email": "Shanna@melissa.tv"}]`)

	fetcher := newTestFetcher(t, mock)

	users, err := fetcher.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() failed after retries: %v", err)
	}

	if len(users) != 1 || users[0].ID != 2 {
		t.Errorf("Users = %+v, want single user 2", users)
	}
	if mock.Requests("/users") != 3 {
		t.Errorf("Request count = %d, want 3", mock.Requests("/users"))
	}
}
