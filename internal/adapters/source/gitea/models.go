package gitea

import (
	"encoding/json"
	"strings"
	"time"
)

// user is a partial Gitea user
type user struct {
	Login    string `json:"login"`
	UserName string `json:"username"`
	Email    string `json:"email"`
}

func (u user) name() string {
	if u.UserName != "" {
		return u.UserName
	}
	return u.Login
}

// repo is a partial Gitea repository
type repo struct {
	Owner       user   `json:"owner"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
	Private     bool   `json:"private"`
	CreatedAt   string `json:"created_at"`
}

// feedItem is one entry of /users/{u}/activities/feeds
// timestamps stay strings so one bad record cannot fail the page
type feedItem struct {
	ID      int64  `json:"id"`
	OpType  string `json:"op_type"`
	ActUser user   `json:"act_user"`
	Repo    *repo  `json:"repo"`
	Content string `json:"content"`
	Created string `json:"created"`
}

// pushContent is the JSON document carried in commit_repo content
type pushContent struct {
	Commits    []pushCommit `json:"Commits"`
	HeadCommit *pushCommit  `json:"HeadCommit"`
	CompareURL string       `json:"CompareURL"`
	Len        int          `json:"Len"`
}

type pushCommit struct {
	Sha1           string `json:"Sha1"`
	Message        string `json:"Message"`
	AuthorEmail    string `json:"AuthorEmail"`
	AuthorName     string `json:"AuthorName"`
	CommitterEmail string `json:"CommitterEmail"`
	CommitterName  string `json:"CommitterName"`
	Timestamp      string `json:"Timestamp"`
}

// commitInfo is one entry of /repos/{full}/commits
type commitInfo struct {
	SHA     string `json:"sha"`
	Created string `json:"created"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Date  string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *user `json:"author"`
}

func decodePush(s string) (pushContent, bool) {
	var pc pushContent
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return pc, false
	}
	if err := json.Unmarshal([]byte(s), &pc); err != nil {
		return pc, false
	}
	return pc, true
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
