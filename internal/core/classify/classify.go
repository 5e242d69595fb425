// Package classify tags raw archive lines by event type without parsing JSON
package classify

import (
	"bytes"
	"regexp"
)

// Kind is the event category a line belongs to
type Kind uint8

const (
	// KindOther is any tagged event this job does not count
	KindOther Kind = iota
	// KindPullRequest lines may carry an opened pull request
	KindPullRequest
	// KindPush lines may carry pushed commits
	KindPush
)

// String returns the event tag the kind stands for
func (k Kind) String() string {
	switch k {
	case KindPullRequest:
		return "PullRequestEvent"
	case KindPush:
		return "PushEvent"
	default:
		return "other"
	}
}

// Pattern extracts the first "type" string value of a line
const Pattern = `"type"\s*:\s*"([A-Za-z]+)"`

var (
	typeKey = []byte(`"type"`)
	tagPR   = []byte("PullRequestEvent")
	tagPush = []byte("PushEvent")
)

// Classifier is immutable after New and safe for concurrent use
type Classifier struct {
	re *regexp.Regexp
}

// New compiles the type-tag pattern once; share the result across workers
func New() *Classifier {
	return &Classifier{re: regexp.MustCompile(Pattern)}
}

// Tag returns the raw tag bytes of the first "type" field, nil if none.
// The result aliases line
func (c *Classifier) Tag(line []byte) []byte {
	i := bytes.Index(line, typeKey)
	if i < 0 {
		return nil
	}
	// the regex starts at the first key; a later one is only found if the first is not a string tag
	m := c.re.FindSubmatchIndex(line[i:])
	if m == nil {
		return nil
	}
	return line[i+m[2] : i+m[3]]
}

// Classify maps a line to its Kind. ok is false when the line has no type tag
func (c *Classifier) Classify(line []byte) (Kind, bool) {
	tag := c.Tag(line)
	if tag == nil {
		return KindOther, false
	}
	switch {
	case bytes.Equal(tag, tagPR):
		return KindPullRequest, true
	case bytes.Equal(tag, tagPush):
		return KindPush, true
	default:
		return KindOther, true
	}
}
