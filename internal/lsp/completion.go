package lsp

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"stevedore/internal/manifest"
)

// textDocumentCompletion suggests crate names while the user is
// typing a dependency key, and the newest version while the cursor
// sits inside a version string.
func (ls *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	dependencies, ok := ls.manifests.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	switch dependency := dependencyAt(dependencies, params.Position).(type) {
	case manifest.PartialDependency:
		return ls.completeCrateNames(context, dependency, params.Position)
	case manifest.VersionedDependency:
		return ls.completeVersion(context, dependency)
	default:
		return nil, nil
	}
}

// dependencyAt finds the dependency under the cursor: a partial name
// anywhere on the cursor's line, or a version whose range spans the
// cursor.
func dependencyAt(dependencies []manifest.Dependency, cursor protocol.Position) manifest.Dependency {
	for _, dependency := range dependencies {
		switch dep := dependency.(type) {
		case manifest.PartialDependency:
			if dep.Line == cursor.Line {
				return dep
			}
		case manifest.VersionedDependency:
			span := dep.Version.Range()
			if span.Start.Line == cursor.Line &&
				span.Start.Character <= cursor.Character &&
				span.End.Character >= cursor.Character {
				return dep
			}
		}
	}
	return nil
}

// completeCrateNames turns registry search results into completions
// replacing everything typed so far on the line.
func (ls *Server) completeCrateNames(
	context *glsp.Context,
	dependency manifest.PartialDependency,
	cursor protocol.Position,
) (any, error) {
	names, err := ls.sparseLookup().SearchCrates(context.Context, dependency.Name)
	if err != nil {
		log.Debugf("crate search for %s failed: %s", dependency.Name, err)
		return nil, nil
	}

	span := protocol.Range{
		Start: protocol.Position{Line: cursor.Line, Character: 0},
		End:   cursor,
	}

	items := make([]protocol.CompletionItem, 0, len(names))
	for _, name := range names {
		items = append(items, protocol.CompletionItem{
			Label: name,
			TextEdit: protocol.TextEdit{
				Range:   span,
				NewText: name,
			},
		})
	}
	return items, nil
}

// completeVersion suggests the newest version of the dependency the
// cursor is in, trimmed down to what still needs typing.
func (ls *Server) completeVersion(
	context *glsp.Context,
	dependency manifest.VersionedDependency,
) (any, error) {
	newest := ls.resolver.FetchVersions(context.Context, ls.sparseLookup(), []string{dependency.Name})

	newestVersion := newest[dependency.Name]
	if newestVersion == nil {
		return nil, nil
	}

	label := newestVersion.String()
	insertText := truncateVersion(dependency.Version.String(), label)

	return []protocol.CompletionItem{{
		Label:      label,
		InsertText: &insertText,
	}}, nil
}

// truncateVersion drops what the user already typed from the newest
// version, so inserting the suggestion continues the string instead
// of repeating it. The last specified character is dropped because
// completion fires on a trigger character that is already part of the
// typed text.
func truncateVersion(specified, newest string) string {
	if specified != "" {
		specified = specified[:len(specified)-1]
	}
	specified = strings.TrimLeft(specified, "<>=^~")
	return strings.TrimPrefix(newest, specified)
}

// textDocumentCodeAction offers a quickfix rewriting an outdated
// version requirement to the newest release.
func (ls *Server) textDocumentCodeAction(
	context *glsp.Context,
	params *protocol.CodeActionParams,
) (any, error) {
	dependencies, ok := ls.manifests.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	type candidate struct {
		name string
		span protocol.Range
		req  *semver.Constraints
	}

	var candidates []candidate
	for _, dependency := range dependencies {
		dep, ok := dependency.(manifest.VersionedDependency)
		if !ok {
			continue
		}
		version, ok := dep.Version.(manifest.CompleteVersion)
		if !ok {
			continue
		}
		if version.Span.Start.Line < params.Range.Start.Line || version.Span.Start.Line > params.Range.End.Line {
			continue
		}
		candidates = append(candidates, candidate{name: dep.Name, span: version.Span, req: version.Requirement})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.name)
	}
	newest := ls.resolver.FetchVersions(context.Context, ls.sparseLookup(), names)

	var actions []protocol.CodeAction
	for _, c := range candidates {
		newestVersion := newest[c.name]
		if newestVersion == nil || c.req.Check(newestVersion) {
			continue
		}

		kind := protocol.CodeActionKindQuickFix
		actions = append(actions, protocol.CodeAction{
			Title: fmt.Sprintf("Update %s to %s", c.name, newestVersion),
			Kind:  &kind,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentUri][]protocol.TextEdit{
					params.TextDocument.URI: {{Range: c.span, NewText: newestVersion.String()}},
				},
			},
		})
	}
	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}
