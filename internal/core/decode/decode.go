// Package decode turns classified archive lines into the few fields scoring needs
package decode

import (
	"math"

	"ghscore/internal/core/classify"
	perr "ghscore/internal/platform/errors"

	"github.com/goccy/go-json"
)

// Record is the typed payload of one counted event
type Record struct {
	Kind         classify.Kind
	RepoID       int64
	RepoName     string
	Action       string // pull requests only
	DistinctSize int64  // pushes only; never negative
}

// unset marks a repo id the input did not carry
const unset = math.MinInt64

type repoRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type pullRequestLine struct {
	Repo    repoRef `json:"repo"`
	Payload struct {
		Action string `json:"action"`
	} `json:"payload"`
}

type pushLine struct {
	Repo    repoRef `json:"repo"`
	Payload struct {
		DistinctSize int64 `json:"distinct_size"`
	} `json:"payload"`
}

// Decoder reuses its scratch structs between calls; give each worker its own
type Decoder struct {
	pr   pullRequestLine
	push pushLine
}

// New returns a Decoder
func New() *Decoder { return &Decoder{} }

// Decode reads the repository and payload fields of a pull request or push line.
// Errors are per line: the caller skips the line and carries on
func (d *Decoder) Decode(kind classify.Kind, line []byte) (Record, error) {
	switch kind {
	case classify.KindPullRequest:
		d.pr = pullRequestLine{Repo: repoRef{ID: unset}}
		if err := json.Unmarshal(line, &d.pr); err != nil {
			return Record{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode: pull request line")
		}
		if d.pr.Repo.ID == unset {
			return Record{}, missingRepo(kind)
		}
		return Record{
			Kind:     kind,
			RepoID:   d.pr.Repo.ID,
			RepoName: d.pr.Repo.Name,
			Action:   d.pr.Payload.Action,
		}, nil

	case classify.KindPush:
		d.push = pushLine{Repo: repoRef{ID: unset}}
		if err := json.Unmarshal(line, &d.push); err != nil {
			return Record{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode: push line")
		}
		if d.push.Repo.ID == unset {
			return Record{}, missingRepo(kind)
		}
		return Record{
			Kind:         kind,
			RepoID:       d.push.Repo.ID,
			RepoName:     d.push.Repo.Name,
			DistinctSize: max(d.push.Payload.DistinctSize, 0),
		}, nil
	}
	return Record{}, perr.InvalidArgf("decode: %s lines are not decoded", kind)
}

func missingRepo(kind classify.Kind) error {
	return perr.WithField(perr.Validationf("decode: %s line has no repo.id", kind), "repo.id")
}
