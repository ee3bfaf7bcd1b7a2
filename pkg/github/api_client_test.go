package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// newTestClient starts a test server routed through mux and returns a
// client pointed at it.
func newTestClient(t *testing.T) (*APIClient, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewAPIClient("test-token", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

const pullJSON = `{
	"number": 42,
	"title": "Add widgets",
	"body": "Adds the widget API",
	"state": "open",
	"html_url": "https://github.com/acme/widgets/pull/42",
	"mergeable_state": "clean",
	"user": {"login": "bob"},
	"additions": 10,
	"deletions": 4,
	"changed_files": 3,
	"comments": 2,
	"review_comments": 5,
	"base": {"ref": "main", "sha": "aaa", "user": {"login": "acme"}, "repo": {"name": "widgets"}},
	"head": {
		"ref": "feature", "sha": "bbb", "user": {"login": "bob"},
		"repo": {"name": "widgets", "clone_url": "https://github.com/bob/widgets.git", "ssh_url": "git@github.com:bob/widgets.git"}
	}
}`

func TestNewAPIClient_EmptyToken(t *testing.T) {
	_, err := NewAPIClient("")
	assert.Error(t, err)
}

func TestNewAPIClient_EnterpriseHost(t *testing.T) {
	client, err := NewAPIClient("token", WithHost("ghe.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", client.client.BaseURL.String())
}

func TestGetPullRequest(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("GET /repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, pullJSON)
	})

	pr, err := client.GetPullRequest(t.Context(), "acme", "widgets", 42)
	require.NoError(t, err)

	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "Add widgets", pr.Title)
	assert.Equal(t, "bob", pr.Author)
	assert.Equal(t, "clean", pr.MergeableState)
	assert.Equal(t, Branch{Ref: "main", SHA: "aaa", Owner: "acme", Repo: "widgets"}, pr.Base)
	assert.Equal(t, "git@github.com:bob/widgets.git", pr.Head.SSHURL)
	assert.Equal(t, "https://github.com/bob/widgets.git", pr.Head.CloneURL)
	assert.Equal(t, "bob:feature", pr.SourceRef())
	assert.Equal(t, 10, pr.Additions)
	assert.Equal(t, 4, pr.Deletions)
	assert.Equal(t, 3, pr.ChangedFiles)
	assert.Equal(t, 2, pr.Comments)
	assert.Equal(t, 5, pr.ReviewComments)
}

func TestListPullRequests_FollowsPages(t *testing.T) {
	client, mux := newTestClient(t)

	var pages []string
	mux.HandleFunc("GET /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "closed", q.Get("state"))
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
		assert.Equal(t, "100", q.Get("per_page"))

		page := q.Get("page")
		pages = append(pages, page)
		if page == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/widgets/pulls?page=2>; rel="next"`, r.Host))
			writeJSON(t, w, []map[string]any{{"number": 1}, {"number": 2}})
			return
		}
		writeJSON(t, w, []map[string]any{{"number": 3}})
	})

	prs, err := client.ListPullRequests(t.Context(), "acme", "widgets", ListOptions{State: "closed", Sort: "updated", Direction: "asc"})
	require.NoError(t, err)

	require.Len(t, prs, 3)
	assert.Equal(t, 3, prs[2].Number)
	assert.Equal(t, []string{"", "2"}, pages)
}

func TestListPullRequests_NotFound(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("GET /repos/acme/gone/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	_, err := client.ListPullRequests(t.Context(), "acme", "gone", ListOptions{})
	require.Error(t, err)
	assert.True(t, prerrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Not Found")
}

func TestCreatePullRequest(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("POST /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Add widgets", body["title"])
		assert.Equal(t, "bob:feature", body["head"])
		assert.Equal(t, "main", body["base"])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, pullJSON)
	})

	pr, err := client.CreatePullRequest(t.Context(), "acme", "widgets", NewPullRequest{
		Title: "Add widgets",
		Body:  "Adds the widget API",
		Head:  "bob:feature",
		Base:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
}

func TestCreatePullRequest_RequiresTitle(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.CreatePullRequest(t.Context(), "acme", "widgets", NewPullRequest{Head: "bob:x", Base: "main"})
	assert.Error(t, err)
}

func TestCreatePullRequest_Conflict(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("POST /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "PullRequest", "code": "custom", "message": "A pull request already exists for bob:feature."}]}`)
	})

	_, err := client.CreatePullRequest(t.Context(), "acme", "widgets", NewPullRequest{Title: "t", Head: "bob:feature", Base: "main"})
	require.Error(t, err)
	assert.True(t, prerrors.IsConflict(err))
	assert.Contains(t, err.Error(), "A pull request already exists")
}

func TestCreatePullRequestFromIssue(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("POST /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.InDelta(t, 7, body["issue"], 0)
		_, hasTitle := body["title"]
		assert.False(t, hasTitle, "issue conversion must not send a title")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, pullJSON)
	})

	_, err := client.CreatePullRequestFromIssue(t.Context(), "acme", "widgets", 7, "bob:feature", "main")
	require.NoError(t, err)
}

func TestUpdatePullRequest(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("PATCH /repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "closed", body["state"])
		assert.Equal(t, "Add widgets", body["title"])
		fmt.Fprint(w, pullJSON)
	})

	_, err := client.UpdatePullRequest(t.Context(), "acme", "widgets", 42, PullRequestUpdate{
		Title: "Add widgets",
		Body:  "b",
		State: StateClosed,
	})
	require.NoError(t, err)
}

func TestGetCombinedStatus(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("GET /repos/acme/widgets/commits/bbb/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": "failure"}`)
	})

	state, err := client.GetCombinedStatus(t.Context(), "acme", "widgets", "bbb")
	require.NoError(t, err)
	assert.Equal(t, "failure", state)
}

func TestListRepositories(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("GET /orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"name": "widgets", "owner": map[string]string{"login": "acme"}}})
	})
	mux.HandleFunc("GET /users/bob/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{
			{"name": "dotfiles", "owner": map[string]string{"login": "bob"}},
			{"name": "widgets", "owner": map[string]string{"login": "bob"}},
		})
	})

	repos, err := client.ListRepositories(t.Context(), "bob", "acme")
	require.NoError(t, err)
	assert.Equal(t, []Repository{{Owner: "acme", Name: "widgets"}}, repos, "org takes precedence")

	repos, err = client.ListRepositories(t.Context(), "bob", "")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "bob/dotfiles", repos[0].FullName())
}

func TestCreateComment(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("POST /repos/acme/widgets/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"body": "LGTM"}`, string(data))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})

	require.NoError(t, client.CreateComment(t.Context(), "acme", "widgets", 42, "LGTM"))
}

func TestCurrentUser(t *testing.T) {
	client, mux := newTestClient(t)
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login": "bob"}`)
	})

	login, err := client.CurrentUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "bob", login)
}
