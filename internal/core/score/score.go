// Package score keeps per-repository activity counters and folds them across workers
package score

import (
	"slices"
	"strings"

	"ghscore/internal/core/classify"
	"ghscore/internal/core/decode"

	"github.com/google/btree"
)

// ActionOpened is the only pull request action that counts
const ActionOpened = "opened"

// RepoScore is the activity tally of one repository
type RepoScore struct {
	ID        int64
	Name      string // first non-empty name observed
	PRsOpened uint64
	Pushes    uint64
	Commits   uint64
}

// Total is the combined activity used for ranking
func (r RepoScore) Total() uint64 { return r.PRsOpened + r.Pushes + r.Commits }

const btreeDegree = 32

// Store is an ordered map of repository id to RepoScore.
// Not safe for concurrent use: each worker owns one, the scheduler folds them
type Store struct {
	tree      *btree.BTreeG[*RepoScore]
	probe     RepoScore
	conflicts uint64
}

func lessByID(a, b *RepoScore) bool { return a.ID < b.ID }

// New returns an empty Store
func New() *Store {
	return &Store{tree: btree.NewG(btreeDegree, lessByID)}
}

func (s *Store) lookup(id int64) (*RepoScore, bool) {
	s.probe.ID = id
	return s.tree.Get(&s.probe)
}

// entry returns the score for id, creating it on first use. Name policy: the
// first non-empty name wins; a different later name is counted as a conflict.
// Stored names are cloned: decoded strings may alias the whole input line
func (s *Store) entry(id int64, name string) *RepoScore {
	if e, ok := s.lookup(id); ok {
		switch {
		case e.Name == "":
			e.Name = strings.Clone(name)
		case name != "" && name != e.Name:
			s.conflicts++
		}
		return e
	}
	e := &RepoScore{ID: id, Name: strings.Clone(name)}
	s.tree.ReplaceOrInsert(e)
	return e
}

// Apply counts one decoded record. It reports whether the record changed the store;
// records that do not count never create an entry
func (s *Store) Apply(rec decode.Record) bool {
	switch rec.Kind {
	case classify.KindPullRequest:
		if rec.Action != ActionOpened {
			return false
		}
		s.entry(rec.RepoID, rec.RepoName).PRsOpened++
		return true
	case classify.KindPush:
		if rec.DistinctSize <= 0 {
			return false
		}
		e := s.entry(rec.RepoID, rec.RepoName)
		e.Pushes++
		e.Commits += uint64(rec.DistinctSize)
		return true
	}
	return false
}

// Len is the number of repositories with at least one counted event
func (s *Store) Len() int { return s.tree.Len() }

// Get returns a copy of the score for id
func (s *Store) Get(id int64) (RepoScore, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return RepoScore{}, false
	}
	return *e, true
}

// Ascend calls fn with each score in ascending id order until fn returns false
func (s *Store) Ascend(fn func(RepoScore) bool) {
	s.tree.Ascend(func(e *RepoScore) bool { return fn(*e) })
}

// Scores returns all scores in ascending id order
func (s *Store) Scores() []RepoScore {
	out := make([]RepoScore, 0, s.tree.Len())
	s.Ascend(func(r RepoScore) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Equal reports whether both stores hold the same entries
func (s *Store) Equal(o *Store) bool {
	if s.Len() != o.Len() {
		return false
	}
	return slices.Equal(s.Scores(), o.Scores())
}

// NameConflicts counts the times an id was seen under a different name than the one kept
func (s *Store) NameConflicts() uint64 { return s.conflicts }

// MergeInto folds src into dst; src is left untouched
func MergeInto(dst, src *Store) {
	dst.conflicts += src.conflicts
	src.tree.Ascend(func(e *RepoScore) bool {
		if d, ok := dst.lookup(e.ID); ok {
			switch {
			case d.Name == "":
				d.Name = e.Name
			case e.Name != "" && e.Name != d.Name:
				dst.conflicts++
			}
			d.PRsOpened += e.PRsOpened
			d.Pushes += e.Pushes
			d.Commits += e.Commits
			return true
		}
		c := *e
		dst.tree.ReplaceOrInsert(&c)
		return true
	})
}

// Merge returns a new store holding the union of a and b with shared ids summed.
// Names come from a when present. Neither input is modified
func Merge(a, b *Store) *Store {
	out := New()
	MergeInto(out, a)
	MergeInto(out, b)
	return out
}
