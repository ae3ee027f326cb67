package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/driver"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "oc-lsp"

var keywords = []string{
	"class", "extends", "is", "end", "var", "method", "this", "return",
	"if", "then", "else", "while", "loop", "true", "false",
}

var builtinTypes = []string{
	compiler.IntegerName, compiler.RealName, compiler.BooleanName,
	compiler.ArrayName, compiler.ListName,
}

// LspServer publishes Validator diagnostics for open documents and answers
// completion, hover and definition requests from the last analysis.
type LspServer struct {
	worker *Worker
	log    commonlog.Logger

	mu       sync.Mutex
	docs     map[string]string          // URI → full document content
	analyses map[string]*driver.Result // URI → last analysis

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		worker:   NewWorker(),
		log:      commonlog.GetLogger("oc.lsp"),
		docs:     make(map[string]string),
		analyses: make(map[string]*driver.Result),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("O language server initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	delete(s.analyses, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update re-analyzes a document and publishes its diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics, err := s.analyze(uri, text)
	if err != nil {
		s.log.Errorf("analyzing %s: %s", uri, err)
		return
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// analyze runs the Validator over text and records the result for uri.
func (s *LspServer) analyze(uri protocol.DocumentUri, text string) ([]protocol.Diagnostic, error) {
	res, err := s.worker.Analyze(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.analyses[string(uri)] = res
	s.mu.Unlock()

	return toDiagnostics(res, text), nil
}

func (s *LspServer) lookup(uri protocol.DocumentUri) (string, *driver.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, s.analyses[string(uri)], ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, res, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(res, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, res, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(res, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, res, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	locations := definition(res, params.TextDocument.URI, text, word)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

// --- Analysis-backed logic ---

func userClasses(res *driver.Result) []*compiler.ClassDecl {
	if res == nil || res.Registry == nil {
		return nil
	}
	return res.Registry.Classes()
}

func complete(res *driver.Result, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	for _, c := range userClasses(res) {
		detail := "class"
		if c.BaseName != "" {
			detail = "class extends " + c.BaseName
		}
		add(c.Name, protocol.CompletionItemKindClass, detail)
	}
	for _, name := range builtinTypes {
		add(name, protocol.CompletionItemKindClass, "built-in type")
	}
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	return items
}

func hover(res *driver.Result, word string) *protocol.Hover {
	var b strings.Builder
	switch {
	case res != nil && res.Registry != nil && res.Registry.Class(word) != nil:
		c := res.Registry.Class(word)
		fmt.Fprintf(&b, "**class %s**", classHeader(c))
		if c.BaseName != "" {
			fmt.Fprintf(&b, " extends %s", c.BaseName)
		}
		b.WriteString("\n\n")
		if fields := c.Fields(); len(fields) > 0 {
			names := make([]string, len(fields))
			for i, f := range fields {
				names[i] = f.Name
			}
			fmt.Fprintf(&b, "Fields: `%s`\n\n", strings.Join(names, " "))
		}
		for _, m := range c.Methods() {
			fmt.Fprintf(&b, "- `%s`\n", methodSignature(m))
		}
		if ancestors := res.Registry.Ancestors(word); len(ancestors) > 1 {
			names := make([]string, 0, len(ancestors))
			for i := len(ancestors) - 1; i > 0; i-- {
				names = append(names, ancestors[i].Name)
			}
			fmt.Fprintf(&b, "\n**Hierarchy:** %s → **%s**", strings.Join(names, " → "), word)
		}

	case isBuiltinType(word):
		fmt.Fprintf(&b, "**%s** (built-in)\n\n", word)
		reg := compiler.NewRegistry()
		var ctors []string
		for _, sig := range reg.BuiltInConstructors(word) {
			ctors = append(ctors, sig.Key())
		}
		sort.Strings(ctors)
		fmt.Fprintf(&b, "Constructors: `%s`", strings.Join(ctors, "`, `"))

	default:
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func classHeader(c *compiler.ClassDecl) string {
	if c.GenericParam == "" {
		return c.Name
	}
	return c.Name + "[" + c.GenericParam + "]"
}

func methodSignature(m *compiler.MethodDecl) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Name + ": " + p.Type.String()
	}
	sig := m.Name + "(" + strings.Join(params, ", ") + ")"
	if !m.ReturnType.IsVoid() {
		sig += " : " + m.ReturnType.String()
	}
	return sig
}

func isBuiltinType(word string) bool {
	for _, name := range builtinTypes {
		if name == word {
			return true
		}
	}
	return false
}

// definition finds the declarations of a class, or of the methods named
// word, in the document.
func definition(res *driver.Result, uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locations []protocol.Location
	for _, c := range userClasses(res) {
		if c.Name == word {
			locations = append(locations, protocol.Location{URI: uri, Range: rangeAt(text, c.Span().Start)})
			continue
		}
		for _, m := range c.Methods() {
			if m.Name == word && !m.Forward {
				locations = append(locations, protocol.Location{URI: uri, Range: rangeAt(text, m.Span().Start)})
			}
		}
	}
	return locations
}

// --- Diagnostics ---

// toDiagnostics converts syntax errors and Validator diagnostics into LSP
// diagnostics.
func toDiagnostics(res *driver.Result, text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	source := lspName
	for _, e := range res.SyntaxErrors {
		severity := protocol.DiagnosticSeverityError
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rangeAt(text, e.Pos),
			Severity: &severity,
			Source:   &source,
			Message:  e.Msg,
		})
	}
	for _, d := range res.Diagnostics {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == compiler.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		code := protocol.IntegerOrString{Value: d.Kind.String()}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rangeAt(text, d.Pos),
			Severity: &severity,
			Code:     &code,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// rangeAt covers the word starting at a 1-based source position.
func rangeAt(text string, pos compiler.Position) protocol.Range {
	if pos.Line < 1 || pos.Column < 1 {
		return protocol.Range{}
	}
	start := protocol.Position{
		Line:      protocol.UInteger(pos.Line - 1),
		Character: protocol.UInteger(pos.Column - 1),
	}
	end := start
	end.Character += protocol.UInteger(len(extractWord(text, start)))
	return protocol.Range{Start: start, End: end}
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier at or under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
