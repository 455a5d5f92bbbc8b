package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (ls *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	if params.InitializationOptions != nil {
		if _, err := ls.settings.Populate(params.InitializationOptions); err != nil {
			log.Warningf("ignoring malformed initialization options: %s", err)
		} else {
			ls.applySettings()
		}
	}

	capabilities := ls.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		ResolveProvider:   &protocol.False,
		TriggerCharacters: []string{"=", ".", `"`},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (ls *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("server initialized")
	return nil
}

func (ls *Server) shutdown(context *glsp.Context) error {
	log.Info("server shutting down")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (ls *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if !ls.settings.MatchesFilename(uri) {
		return nil
	}

	diagnostics := ls.calculateDiagnostics(context.Context, uri, params.TextDocument.Text)
	publishDiagnostics(context, uri, diagnostics)
	return nil
}

func (ls *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if !ls.settings.MatchesFilename(uri) {
		return nil
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// The server requests full document sync, so the first change
	// carries the complete text.
	var content string
	switch change := params.ContentChanges[0].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		content = change.Text
	case protocol.TextDocumentContentChangeEvent:
		content = change.Text
	default:
		return nil
	}

	diagnostics := ls.calculateDiagnostics(context.Context, uri, content)
	publishDiagnostics(context, uri, diagnostics)
	return nil
}

func (ls *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	if ls.settings.MatchesFilename(params.TextDocument.URI) {
		publishDiagnostics(context, params.TextDocument.URI, nil)
	}
	return nil
}

func (ls *Server) workspaceDidChangeConfiguration(
	context *glsp.Context,
	params *protocol.DidChangeConfigurationParams,
) error {
	if _, err := ls.settings.Populate(params.Settings); err != nil {
		log.Warningf("ignoring malformed configuration: %s", err)
		return nil
	}

	ls.applySettings()
	return nil
}

func publishDiagnostics(context *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	context.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}
