package manifest

import (
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type lineState int

const (
	stateStart lineState = iota
	statePartialName
	stateName
	stateStruct
	stateVersionSelector
	stateComplete
	statePartial
)

const versionKeyword = "version"

// ParseLine extracts a dependency fact from a single manifest line.
//
// The scan is a single forward pass over the line's runes and never fails:
// lines that are not dependencies yield nil, and anything unfinished degrades
// to a partial fact instead of an error. Columns in the produced ranges are
// rune offsets into the line.
func ParseLine(line string, lineNumber uint32) Dependency {
	runes := []rune(line)

	state := stateStart
	var (
		name      string
		nameStart int
		start     int
		end       int
		first     bool
		remainder string
	)

	for i, c := range runes {
		switch state {
		case stateStart:
			if !unicode.IsLetter(c) {
				return nil
			}
			nameStart = i
			state = statePartialName

		case statePartialName:
			if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' {
				continue
			}
			name = string(runes[nameStart:i])
			state = stateName

		case stateName:
			switch c {
			case '{':
				remainder = versionKeyword
				state = stateStruct
			case '"':
				start = i
				first = true
				state = stateVersionSelector
			}

		case stateStruct:
			if remainder == "" {
				if c == '"' {
					start = i
					first = true
					state = stateVersionSelector
				}
				continue
			}
			// Scan for the version keyword; a mismatch restarts the match
			// without retrying the current rune.
			if rune(remainder[0]) == c {
				remainder = remainder[1:]
			} else {
				remainder = versionKeyword
			}

		case stateVersionSelector:
			switch {
			case c == '"':
				end = i
				state = stateComplete
			case unicode.IsLetter(c):
				if first {
					end = i
					state = statePartial
				}
			case unicode.IsDigit(c) || strings.ContainsRune("._<>=^~,", c):
				first = false
			case c == ' ':
				first = true
			default:
				end = i
				state = statePartial
			}
		}

		if state == stateComplete || state == statePartial {
			break
		}
	}

	switch state {
	case stateComplete:
		span := versionRange(runes, start, end, lineNumber)
		text := rawVersion(runes, start, end)
		if req, err := semver.NewConstraint(requirementText(text)); err == nil {
			return VersionedDependency{Name: name, Version: CompleteVersion{Span: span, Requirement: req}}
		}
		return VersionedDependency{Name: name, Version: PartialVersion{Span: span, Text: text}}

	case statePartial:
		span := versionRange(runes, start, len(runes), lineNumber)
		return VersionedDependency{Name: name, Version: PartialVersion{Span: span, Text: rawVersion(runes, start, end)}}

	case stateVersionSelector:
		span := versionRange(runes, start, len(runes), lineNumber)
		return VersionedDependency{Name: name, Version: PartialVersion{Span: span, Text: rawVersion(runes, start, len(runes))}}

	case stateName, stateStruct:
		return OtherDependency{Name: name}

	case statePartialName:
		return PartialDependency{Name: string(runes[nameStart:]), Line: lineNumber}

	default:
		return nil
	}
}

// rawVersion returns the version text between the rune offsets with the
// opening quote and surrounding whitespace removed.
func rawVersion(runes []rune, start, end int) string {
	return strings.TrimSpace(strings.TrimPrefix(string(runes[start:end]), `"`))
}

// requirementText normalizes a requirement for parsing: a bare
// version like "1.2" means caret in a cargo manifest, so it gets the
// operator spelled out.
func requirementText(text string) string {
	if text != "" && text[0] >= '0' && text[0] <= '9' {
		return "^" + text
	}
	return text
}

// versionRange converts rune offsets into a range on the given line, shaving a
// quote off either boundary so the range covers only the version text itself.
func versionRange(runes []rune, start, end int, line uint32) protocol.Range {
	if start < end && start < len(runes) && runes[start] == '"' {
		start++
	}
	if end > start && end <= len(runes) && runes[end-1] == '"' {
		end--
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: uint32(start)},
		End:   protocol.Position{Line: line, Character: uint32(end)},
	}
}
