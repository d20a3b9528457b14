// Package service contains the application's business logic.
package service

import (
	"strings"
	"unicode"

	"stride/internal/models"
	"stride/internal/observability"
)

// defaultDenylist is the static profanity list. Matching is exact per
// token, so inflected forms ("fucking") are not caught; that is accepted
// behavior, not an oversight.
var defaultDenylist = []string{
	"fuck",
	"shit",
	"bitch",
	"cunt",
	"asshole",
	"bastard",
	"dickhead",
	"whore",
	"slut",
}

// ModerationResult is the outcome of a content check.
type ModerationResult struct {
	Clean   bool
	Flagged []string
}

// ModerationService is a lexical gate over user-supplied text. It runs
// before any goal, post, or comment text is persisted.
type ModerationService struct {
	denylist map[string]struct{}
}

// NewModerationService returns a ModerationService over the given word
// list, or the default list when none is supplied.
func NewModerationService(words ...string) *ModerationService {
	if len(words) == 0 {
		words = defaultDenylist
	}
	denylist := make(map[string]struct{}, len(words))
	for _, w := range words {
		denylist[strings.ToLower(w)] = struct{}{}
	}
	return &ModerationService{denylist: denylist}
}

// CheckContent tokenizes text and reports every token on the denylist.
// Tokens are lowercased and stripped of non-letter runes before the exact
// membership test; there is no stemming and no substring matching.
func (s *ModerationService) CheckContent(text string) ModerationResult {
	var flagged []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Fields(text) {
		token := normalizeToken(raw)
		if token == "" {
			continue
		}
		if _, hit := s.denylist[token]; hit {
			if _, dup := seen[token]; !dup {
				seen[token] = struct{}{}
				flagged = append(flagged, token)
			}
		}
	}
	return ModerationResult{Clean: len(flagged) == 0, Flagged: flagged}
}

// ValidateContent turns a flagged check into the ValidationError callers
// surface to clients. Flagged terms are not echoed back.
func (s *ModerationService) ValidateContent(text string) error {
	if res := s.CheckContent(text); !res.Clean {
		observability.ModerationRejections.Inc()
		return models.NewValidationError("Content contains prohibited language")
	}
	return nil
}

func normalizeToken(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
