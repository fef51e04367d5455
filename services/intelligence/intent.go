package ai

import (
	"regexp"
	"strings"
	"unicode"

	"campuspark/models"
)

// IntentKind is the recognised purpose of an utterance.
type IntentKind int

const (
	IntentUnknown IntentKind = iota
	IntentParkIn
	IntentEntrance
	IntentAffirm
	IntentDeny
)

func (k IntentKind) String() string {
	switch k {
	case IntentParkIn:
		return "park_in"
	case IntentEntrance:
		return "entrance"
	case IntentAffirm:
		return "affirm"
	case IntentDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Intent is the classifier output. Space is set for IntentParkIn and
// Entrance for IntentEntrance.
type Intent struct {
	Kind     IntentKind
	Space    string
	Entrance models.Entrance
}

var (
	parkInPattern   = regexp.MustCompile(`(?i)\bpark\s+(?:in|at)\s+(?:(?:the|a|space|spot|slot|parking)\s+)*([a-z0-9][a-z0-9-]*)`)
	entrancePattern = regexp.MustCompile(`(?i)\b(main|side)\s+entrance\b`)
)

var (
	affirmWords = map[string]bool{"yes": true, "yeah": true, "sure": true}
	denyWords   = map[string]bool{"no": true}
)

// Classify maps an utterance to an intent. Precedence: park-in, entrance,
// affirmative, negative. Yes/no are matched as whole words.
func Classify(utterance string) Intent {
	if m := parkInPattern.FindStringSubmatch(utterance); m != nil {
		return Intent{Kind: IntentParkIn, Space: NormalizeSpaceName(m[1])}
	}
	if m := entrancePattern.FindStringSubmatch(utterance); m != nil {
		entrance := models.EntranceMain
		if strings.EqualFold(m[1], "side") {
			entrance = models.EntranceSide
		}
		return Intent{Kind: IntentEntrance, Entrance: entrance}
	}

	words := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if affirmWords[w] {
			return Intent{Kind: IntentAffirm}
		}
	}
	for _, w := range words {
		if denyWords[w] {
			return Intent{Kind: IntentDeny}
		}
	}
	return Intent{Kind: IntentUnknown}
}

// NormalizeSpaceName upper-cases a space id as typed by the user ("p1" -> "P1").
func NormalizeSpaceName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
