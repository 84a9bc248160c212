package service

import (
	"context"
	"time"

	"activitymirror/internal/core/activity"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/services/mirror/domain"
)

type fakeSource struct {
	groups *activity.Groups
	err    error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) (*activity.Groups, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

type fakeForge struct {
	repos     map[string]domain.RemoteRepo
	readmes   map[string]string
	issues    map[string][]domain.RemoteIssue
	lookupErr map[string]error
	email     string

	lookups []string
	created []domain.CreateRepo
	clock   time.Time
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		repos:     map[string]domain.RemoteRepo{},
		readmes:   map[string]string{},
		issues:    map[string][]domain.RemoteIssue{},
		lookupErr: map[string]error{},
		email:     "1+me@users.noreply.github.com",
		clock:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeForge) addMirror(owner, name, readme string) {
	full := owner + "/" + name
	f.repos[full] = domain.RemoteRepo{Owner: owner, Name: name, FullName: full, SSHURL: "git@github.com:" + full + ".git"}
	f.readmes[full] = readme
}

func (f *fakeForge) Repo(_ context.Context, owner, name string) (domain.RemoteRepo, error) {
	full := owner + "/" + name
	f.lookups = append(f.lookups, full)
	if err := f.lookupErr[full]; err != nil {
		return domain.RemoteRepo{}, err
	}
	r, ok := f.repos[full]
	if !ok {
		return domain.RemoteRepo{}, perr.NotFoundf("repo %s", full)
	}
	return r, nil
}

func (f *fakeForge) CreateRepo(_ context.Context, req domain.CreateRepo) (domain.RemoteRepo, error) {
	f.created = append(f.created, req)
	full := "me/" + req.Name
	r := domain.RemoteRepo{Owner: "me", Name: req.Name, FullName: full, SSHURL: "git@github.com:" + full + ".git", Private: req.Private}
	f.repos[full] = r
	return r, nil
}

func (f *fakeForge) Readme(_ context.Context, owner, name string) (string, error) {
	s, ok := f.readmes[owner+"/"+name]
	if !ok {
		return "", perr.NotFoundf("readme")
	}
	return s, nil
}

func (f *fakeForge) LastIssue(_ context.Context, owner, name string) (*domain.RemoteIssue, error) {
	xs := f.issues[owner+"/"+name]
	if len(xs) == 0 {
		return nil, nil
	}
	last := xs[len(xs)-1]
	return &last, nil
}

func (f *fakeForge) IssuesSince(_ context.Context, owner, name string, since time.Time) ([]domain.RemoteIssue, error) {
	var out []domain.RemoteIssue
	for _, it := range f.issues[owner+"/"+name] {
		if !it.CreatedAt.Before(since) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeForge) CreateIssue(_ context.Context, owner, name, title, _ string) (domain.RemoteIssue, error) {
	full := owner + "/" + name
	it := domain.RemoteIssue{Number: int64(len(f.issues[full]) + 1), Title: title, CreatedAt: f.clock}
	f.issues[full] = append(f.issues[full], it)
	return it, nil
}

func (f *fakeForge) PrimaryEmail(context.Context) (string, error) {
	if f.email == "" {
		return "", perr.Configf("no noreply address")
	}
	return f.email, nil
}

type fakeCopy struct {
	remote   string
	commits  []domain.Commit
	pushed   int
	initAt   time.Time
	initBy   string
	inited   bool
	lastTime time.Time
}

type fakeMirror struct {
	copies    map[string]*fakeCopy
	opened    []string
	commitErr error
	pushes    int
}

func newFakeMirror() *fakeMirror { return &fakeMirror{copies: map[string]*fakeCopy{}} }

func (m *fakeMirror) copy(path string) *fakeCopy {
	c, ok := m.copies[path]
	if !ok {
		c = &fakeCopy{}
		m.copies[path] = c
	}
	return c
}

func (m *fakeMirror) PathFor(fullName string) string { return "/w/" + fullName }

func (m *fakeMirror) Open(_ context.Context, path, remote string) error {
	m.opened = append(m.opened, path)
	m.copy(path).remote = remote
	return nil
}

func (m *fakeMirror) Init(_ context.Context, path, remote string, initial domain.Commit) error {
	c := m.copy(path)
	c.remote, c.inited, c.initAt, c.lastTime = remote, true, initial.When, initial.When
	c.initBy = initial.AuthorName + " <" + initial.AuthorEmail + ">"
	m.pushes++
	return nil
}

func (m *fakeMirror) LastCommit(_ context.Context, path string) (time.Time, error) {
	return m.copy(path).lastTime, nil
}

func (m *fakeMirror) Commit(_ context.Context, path string, c domain.Commit) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	cp := m.copy(path)
	cp.commits = append(cp.commits, c)
	cp.lastTime = c.When
	return nil
}

func (m *fakeMirror) Unpushed(_ context.Context, path string) (int, error) {
	c := m.copy(path)
	return len(c.commits) - c.pushed, nil
}

func (m *fakeMirror) Push(_ context.Context, path string) error {
	c := m.copy(path)
	c.pushed = len(c.commits)
	m.pushes++
	return nil
}

type fakeJournal struct {
	begun, finished int
	records         []domain.RepoReport
	err             error
}

func (j *fakeJournal) Begin(context.Context, domain.RunReport) error { j.begun++; return j.err }

func (j *fakeJournal) Record(_ context.Context, _ string, r domain.RepoReport) error {
	j.records = append(j.records, r)
	return j.err
}

func (j *fakeJournal) Finish(context.Context, domain.RunReport) error { j.finished++; return j.err }
