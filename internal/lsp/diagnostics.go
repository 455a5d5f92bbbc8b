package lsp

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"stevedore/internal/manifest"
)

// calculateDiagnostics reparses the manifest and renders one
// diagnostic per versioned dependency: a marker when it is current,
// the newest version when it is not, and a warning when no version
// can be resolved at all.
func (ls *Server) calculateDiagnostics(ctx context.Context, uri protocol.DocumentUri, content string) []protocol.Diagnostic {
	dependencies := ls.manifests.Update(uri, content)

	var versioned []manifest.VersionedDependency
	for _, dependency := range dependencies {
		if dep, ok := dependency.(manifest.VersionedDependency); ok {
			versioned = append(versioned, dep)
		}
	}
	if len(versioned) == 0 {
		return nil
	}

	names := make([]string, 0, len(versioned))
	for _, dependency := range versioned {
		names = append(names, dependency.Name)
	}

	newest := ls.resolver.FetchVersions(ctx, ls.lookup(), names)

	showHints := ls.settings.InlayHints()
	showDiagnostics := ls.settings.Diagnostics()

	var diagnostics []protocol.Diagnostic
	for _, dependency := range versioned {
		newestVersion := newest[dependency.Name]
		if newestVersion == nil {
			if showDiagnostics {
				diagnostics = append(diagnostics, ls.unknownDiagnostic(dependency))
			}
			continue
		}

		switch version := dependency.Version.(type) {
		case manifest.CompleteVersion:
			if version.Requirement.Check(newestVersion) {
				if showHints {
					diagnostics = append(diagnostics, ls.upToDateDiagnostic(version.Span, newestVersion))
				}
			} else if showDiagnostics {
				diagnostics = append(diagnostics, ls.needsUpdateDiagnostic(dependency.Name, version.Span, newestVersion))
			}
		case manifest.PartialVersion:
			if showDiagnostics {
				diagnostics = append(diagnostics, ls.needsUpdateDiagnostic(dependency.Name, version.Span, newestVersion))
			}
		}
	}

	return diagnostics
}

// upToDateDiagnostic marks a current dependency with a zero width
// hint at the start of its line, out of the way of the version text.
func (ls *Server) upToDateDiagnostic(span protocol.Range, newest *semver.Version) protocol.Diagnostic {
	severity := ls.settings.UpToDateSeverity()
	start := protocol.Position{Line: span.Start.Line, Character: 0}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: start},
		Severity: &severity,
		Message:  renderHint(ls.settings.UpToDateHint(), newest),
	}
}

func (ls *Server) needsUpdateDiagnostic(name string, span protocol.Range, newest *semver.Version) protocol.Diagnostic {
	severity := ls.settings.NeedsUpdateSeverity()
	return protocol.Diagnostic{
		Range:    span,
		Severity: &severity,
		Message:  name + ":" + renderHint(ls.settings.NeedsUpdateHint(), newest),
	}
}

func (ls *Server) unknownDiagnostic(dependency manifest.VersionedDependency) protocol.Diagnostic {
	severity := ls.settings.UnknownDepSeverity()
	return protocol.Diagnostic{
		Range:    dependency.Version.Range(),
		Severity: &severity,
		Message:  dependency.Name + ": Unknown crate",
	}
}

// renderHint substitutes the newest version into a hint template.
func renderHint(template string, newest *semver.Version) string {
	return strings.ReplaceAll(template, "{}", newest.String())
}
