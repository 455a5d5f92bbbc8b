package manifest

import (
	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Dependency is a single fact extracted from one manifest line. Exactly one of
// the concrete types below is produced per line: PartialDependency while the
// crate name is still being typed, VersionedDependency for a key carrying a
// version string, and OtherDependency for a key whose value is something else.
type Dependency interface {
	CrateName() string
}

// PartialDependency is a crate name with no key/value separator yet.
type PartialDependency struct {
	Name string
	Line uint32
}

func (d PartialDependency) CrateName() string { return d.Name }

// VersionedDependency is a dependency key together with its version value.
type VersionedDependency struct {
	Name    string
	Version DependencyVersion
}

func (d VersionedDependency) CrateName() string { return d.Name }

// OtherDependency is a dependency key whose value holds no version string,
// such as a path or git table.
type OtherDependency struct {
	Name string
}

func (d OtherDependency) CrateName() string { return d.Name }

// DependencyVersion is the version part of a dependency: either a terminated
// requirement that parsed, or the raw text of one still being typed.
type DependencyVersion interface {
	// Range returns the document range the version text occupies.
	Range() protocol.Range
	// String returns the requirement in textual form.
	String() string
}

// CompleteVersion is a terminated version string that parsed as a requirement.
type CompleteVersion struct {
	Span        protocol.Range
	Requirement *semver.Constraints
}

func (v CompleteVersion) Range() protocol.Range { return v.Span }

func (v CompleteVersion) String() string { return v.Requirement.String() }

// PartialVersion is an unterminated or unparseable version string.
type PartialVersion struct {
	Span protocol.Range
	Text string
}

func (v PartialVersion) Range() protocol.Range { return v.Span }

func (v PartialVersion) String() string { return v.Text }
