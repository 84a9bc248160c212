package github

import (
	"encoding/json"
	"time"
)

// repo is a partial GitHub repository document with fields we use
type repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Owner    user   `json:"owner"`
	HTMLURL  string `json:"html_url"`
	CloneURL string `json:"clone_url"`
	SSHURL   string `json:"ssh_url"`
}

type user struct {
	Login string `json:"login"`
}

// issue is a partial GitHub issue; pull requests carry a pull_request object
type issue struct {
	Number      int64           `json:"number"`
	Title       string          `json:"title"`
	CreatedAt   time.Time       `json:"created_at"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

func (i issue) isPR() bool { return len(i.PullRequest) > 0 && string(i.PullRequest) != "null" }

type content struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type createRepoBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Private     bool    `json:"private"`
	AutoInit    bool    `json:"auto_init"`
}

type createIssueBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
