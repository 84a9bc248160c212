package activity

import (
	"sort"
	"time"
)

// Repository is a source repository as reported by the source forge
type Repository struct {
	OwnedByYou  bool
	Owner       string
	Name        string
	FullName    string
	Description *string
	HTMLURL     string
	CloneURL    string
	Private     bool
	CreatedDate time.Time
}

// RepoKey is the comparable form of Repository used for grouping
// two repositories group together only when every field matches
type RepoKey struct {
	OwnedByYou bool
	Owner      string
	Name       string
	FullName   string
	HasDesc    bool
	Desc       string
	HTMLURL    string
	CloneURL   string
	Private    bool
	Created    int64
}

// Key returns the grouping key for r
func (r Repository) Key() RepoKey {
	k := RepoKey{
		OwnedByYou: r.OwnedByYou,
		Owner:      r.Owner,
		Name:       r.Name,
		FullName:   r.FullName,
		HTMLURL:    r.HTMLURL,
		CloneURL:   r.CloneURL,
		Private:    r.Private,
		Created:    r.CreatedDate.UnixNano(),
	}
	if r.Description != nil {
		k.HasDesc, k.Desc = true, *r.Description
	}
	return k
}

// Group is one source repository with its activities
type Group struct {
	Repo       Repository
	Activities *Set
}

// Groups maps source repositories to their activity sets
type Groups struct {
	m     map[RepoKey]*Group
	order []RepoKey
}

// NewGroups returns an empty Groups
func NewGroups() *Groups {
	return &Groups{m: map[RepoKey]*Group{}}
}

// Add files a under repo, reporting whether it was new for that repository
func (g *Groups) Add(repo Repository, a Activity) bool {
	return g.group(repo).Activities.Add(a)
}

func (g *Groups) group(repo Repository) *Group {
	k := repo.Key()
	grp, ok := g.m[k]
	if !ok {
		grp = &Group{Repo: repo, Activities: NewSet()}
		g.m[k] = grp
		g.order = append(g.order, k)
	}
	return grp
}

// Merge folds o into g
func (g *Groups) Merge(o *Groups) {
	if o == nil {
		return
	}
	for _, k := range o.order {
		src := o.m[k]
		g.group(src.Repo).Activities.Merge(src.Activities)
	}
}

// Len returns the number of repositories
func (g *Groups) Len() int { return len(g.order) }

// Activities returns the total activity count across repositories
func (g *Groups) Activities() int {
	n := 0
	for _, grp := range g.m {
		n += grp.Activities.Len()
	}
	return n
}

// List returns groups ordered by full name, ties in insertion order
func (g *Groups) List() []*Group {
	out := make([]*Group, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.m[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Repo.FullName < out[j].Repo.FullName })
	return out
}
