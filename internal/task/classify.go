package task

import (
	"fmt"
	"strings"
)

// Classifier maps one vendor's raw status vocabulary onto the canonical
// phases. Implementations must be pure: no I/O, no state, identical output
// for identical input.
type Classifier interface {
	Classify(raw RawStatus) TaskStatus
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(raw RawStatus) TaskStatus

func (f ClassifierFunc) Classify(raw RawStatus) TaskStatus {
	return f(raw)
}

// Vocabulary declares, per vendor, which raw state strings land on which
// terminal phase. Matching is case-insensitive. States in no set classify as
// Running so polling continues.
type Vocabulary struct {
	Succeeded []string
	Failed    []string
	Expired   []string
	NotFound  []string
	Pending   []string
}

// VocabClassifier classifies raw statuses against a vendor vocabulary.
//
// Precedence rules, in order:
//  1. An unambiguous terminal HTTP error (4xx other than 404/408/429) on the
//     poll response itself classifies as Failed.
//  2. A non-empty vendor error message beats a success state: a payload is
//     never surfaced alongside an error.
//  3. Unrecognized states classify as Running, never as silent success or
//     failure.
type VocabClassifier struct {
	vocab     Vocabulary
	succeeded map[string]struct{}
	failed    map[string]struct{}
	expired   map[string]struct{}
	notFound  map[string]struct{}
	pending   map[string]struct{}
}

func NewVocabClassifier(vocab Vocabulary) *VocabClassifier {
	return &VocabClassifier{
		vocab:     vocab,
		succeeded: toSet(vocab.Succeeded),
		failed:    toSet(vocab.Failed),
		expired:   toSet(vocab.Expired),
		notFound:  toSet(vocab.NotFound),
		pending:   toSet(vocab.Pending),
	}
}

func toSet(states []string) map[string]struct{} {
	set := make(map[string]struct{}, len(states))
	for _, s := range states {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

func (c *VocabClassifier) Classify(raw RawStatus) TaskStatus {
	if terminalHTTPError(raw.HTTPStatus) {
		return Failed(fmt.Sprintf("vendor returned HTTP %d: %s", raw.HTTPStatus, raw.ErrorMessage))
	}

	state := strings.ToLower(strings.TrimSpace(raw.State))

	if _, ok := c.succeeded[state]; ok {
		// Vendor inconsistency: success state plus an error message. Failed
		// wins; the payload is dropped.
		if raw.ErrorMessage != "" {
			return Failed(raw.ErrorMessage)
		}
		if raw.Result == nil {
			return Failed("vendor reported success without a result payload")
		}
		return Succeeded(raw.Result)
	}
	if _, ok := c.failed[state]; ok {
		reason := raw.ErrorMessage
		if reason == "" {
			reason = raw.State
		}
		return Failed(reason)
	}
	if _, ok := c.expired[state]; ok {
		return Expired(raw.State)
	}
	if _, ok := c.notFound[state]; ok {
		return NotFound(raw.State)
	}
	if _, ok := c.pending[state]; ok {
		return Pending()
	}

	// Unknown states keep the poll loop going rather than guessing.
	return Running(raw.State)
}

// terminalHTTPError reports whether a poll-response status code is an
// unambiguous terminal rejection. 404 maps through the vocabulary (vendors
// use it for both "expired" and "not found"), and 408/429 are transient.
func terminalHTTPError(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case 404, 408, 429:
		return false
	}
	return true
}

var _ Classifier = (*VocabClassifier)(nil)
