// glossa-repl is an interactive demo of live document translation. It
// loads an HTML page, runs a translation session over it, and lets you
// mutate the page while the session is live to watch retranslation,
// staleness handling and revert behavior.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/calyptra/glossa"
	"github.com/calyptra/glossa/htmldoc"
	"github.com/calyptra/glossa/translate"
)

const samplePage = `<html><head><title>Demo</title></head><body>
<h1 title="Saludo del dia">Hola</h1>
<p class="intro">Bienvenido a la pagina de ejemplo.</p>
<p>Hasta luego</p>
<input placeholder="Escribe aqui">
<script>var secreto = "no tocar";</script>
</body></html>`

// REPL holds the state of the interactive session
type REPL struct {
	doc     *htmldoc.Doc
	engine  *glossa.Engine
	session *glossa.Session
	mode    string
	reader  *bufio.Reader
}

func main() {
	fmt.Println("Glossa REPL - Live Document Translation Demo")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	repl := &REPL{
		mode:   "dict",
		reader: bufio.NewReader(os.Stdin),
	}

	if len(os.Args) > 1 {
		repl.cmdLoad(os.Args[1:2])
	}

	for {
		fmt.Print("glossa> ")
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			break
		}
	}

	repl.stopSession()
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "sample":
		r.cmdSample()

	case "load":
		r.cmdLoad(args)

	case "translator":
		r.cmdTranslator(args)

	case "start":
		r.cmdStart()

	case "stop":
		r.cmdStop()

	case "status":
		r.cmdStatus()

	case "render":
		r.cmdRender()

	case "find":
		r.cmdFind(args)

	case "set":
		r.cmdSet(args)

	case "attr":
		r.cmdAttr(args)

	case "original":
		r.cmdOriginal(args)

	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return true
}

func (r *REPL) printHelp() {
	help := `
Available Commands:
-------------------

DOCUMENT:
  sample                  Load the built-in sample page
  load <filepath>         Load an HTML file
  render                  Print the current page as HTML

TRANSLATION:
  translator <name>       Pick the backend for the next start:
                            dict   - built-in Spanish to English phrases
                            marked - wrap content in markers
                            upper  - uppercase everything
  start                   Start translating the loaded page
  stop                    Stop the session and restore original content
  status                  Show session progress counters

INSPECTION AND EDITING:
  find <selector>         List elements matching a CSS selector
  set <selector> <text>   Replace the text of the first match
  attr <selector> <name> <value>
                          Set an attribute on the first match
  original <selector>     Show the engine's saved original text

OTHER:
  help                    Show this help message
  quit, exit              Exit the REPL

While a session runs, edits made with 'set' and 'attr' are picked up and
retranslated automatically; 'stop' puts every translated unit back.
`
	fmt.Println(help)
}

func (r *REPL) cmdSample() {
	r.stopSession()
	doc, err := htmldoc.ParseString(samplePage)
	if err != nil {
		fmt.Printf("Error parsing sample: %v\n", err)
		return
	}
	r.doc = doc
	fmt.Println("Loaded sample page. Try 'render', then 'start'.")
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: load <filepath>")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}
	doc, err := htmldoc.Parse(bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error parsing file: %v\n", err)
		return
	}
	r.stopSession()
	r.doc = doc
	fmt.Printf("Loaded %s (%d bytes)\n", args[0], len(data))
}

func (r *REPL) cmdTranslator(args []string) {
	if len(args) != 1 {
		fmt.Printf("Current translator: %s (dict, marked, upper)\n", r.mode)
		return
	}
	switch args[0] {
	case "dict", "marked", "upper":
		r.mode = args[0]
		fmt.Printf("Translator set to %s\n", r.mode)
	default:
		fmt.Printf("Unknown translator: %s\n", args[0])
	}
}

func (r *REPL) newTranslator() glossa.Translator {
	switch r.mode {
	case "marked":
		return translate.Marked("«", "»")
	case "upper":
		return glossa.TranslatorFunc(func(_ context.Context, text string, _ int) (string, error) {
			return strings.ToUpper(text), nil
		})
	default:
		dict := translate.NewDictionary()
		dict.Add(language.English, map[string]string{
			"hola":                              "Hello",
			"hasta luego":                       "See you later",
			"bienvenido a la pagina de ejemplo": "Welcome to the sample page",
			"saludo del dia":                    "Greeting of the day",
			"escribe aqui":                      "Type here",
			"demo":                              "Demo",
		})
		return dict.For(language.English)
	}
}

func (r *REPL) cmdStart() {
	if r.doc == nil {
		fmt.Println("No page loaded. Use 'sample' or 'load <filepath>' first.")
		return
	}
	if r.session != nil {
		fmt.Println("A session is already running. Use 'stop' first.")
		return
	}

	cfg := glossa.DefaultConfig()
	// Parsed pages carry no geometry, so lazy gating has nothing to wait for.
	cfg.Lazy = false
	engine, err := glossa.New(r.doc, r.newTranslator(), cfg)
	if err != nil {
		fmt.Printf("Error creating engine: %v\n", err)
		return
	}
	session := glossa.NewSession(engine, glossa.SessionOptions{
		Status: func(st glossa.Stats) {
			fmt.Printf("[status] pending=%d resolved=%d rejected=%d discarded=%d\n",
				st.Pending, st.Resolved, st.Rejected, st.Discarded)
		},
	})
	if err := session.Start(r.doc.Body()); err != nil {
		fmt.Printf("Error starting session: %v\n", err)
		engine.Close()
		return
	}
	r.engine = engine
	r.session = session
	fmt.Printf("Session started with %s translator\n", r.mode)
}

func (r *REPL) cmdStop() {
	if r.session == nil {
		fmt.Println("No session is running")
		return
	}
	r.stopSession()
	fmt.Println("Session stopped, original content restored")
}

func (r *REPL) stopSession() {
	if r.session != nil {
		r.session.Stop()
		r.session = nil
	}
	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
}

func (r *REPL) cmdStatus() {
	if r.session == nil {
		fmt.Println("No session is running. Use 'start' to begin.")
		return
	}
	st := r.session.Stats()
	fmt.Printf("Pending:   %d\n", st.Pending)
	fmt.Printf("Resolved:  %d\n", st.Resolved)
	fmt.Printf("Rejected:  %d\n", st.Rejected)
	fmt.Printf("Discarded: %d\n", st.Discarded)
}

func (r *REPL) cmdRender() {
	if r.doc == nil {
		fmt.Println("No page loaded")
		return
	}
	if err := r.doc.Render(os.Stdout); err != nil {
		fmt.Printf("Error rendering: %v\n", err)
		return
	}
	fmt.Println()
}

// firstMatch resolves a selector to its first matching element.
func (r *REPL) firstMatch(selector string) *htmldoc.Element {
	if r.doc == nil {
		fmt.Println("No page loaded")
		return nil
	}
	matches := r.doc.Find(selector)
	if len(matches) == 0 {
		fmt.Printf("No match for %s\n", selector)
		return nil
	}
	return matches[0].(*htmldoc.Element)
}

func firstText(el glossa.Element) glossa.Text {
	for _, n := range el.Nodes() {
		if t, ok := n.(glossa.Text); ok {
			return t
		}
	}
	return nil
}

func snippet(el glossa.Element) string {
	t := firstText(el)
	if t == nil {
		return ""
	}
	s := strings.TrimSpace(t.Text())
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}

func (r *REPL) cmdFind(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: find <selector>")
		return
	}
	if r.doc == nil {
		fmt.Println("No page loaded")
		return
	}
	matches := r.doc.Find(args[0])
	if len(matches) == 0 {
		fmt.Printf("No match for %s\n", args[0])
		return
	}
	for i, el := range matches {
		fmt.Printf("%3d: <%s> %q\n", i, el.Tag(), snippet(el))
	}
}

func (r *REPL) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <selector> <text>")
		return
	}
	el := r.firstMatch(args[0])
	if el == nil {
		return
	}
	t := firstText(el)
	if t == nil {
		fmt.Printf("<%s> has no text child\n", el.Tag())
		return
	}
	t.SetText(strings.Join(args[1:], " "))
	fmt.Printf("Set text of <%s>\n", el.Tag())
}

func (r *REPL) cmdAttr(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: attr <selector> <name> <value>")
		return
	}
	el := r.firstMatch(args[0])
	if el == nil {
		return
	}
	el.Attr(args[1]).SetValue(strings.Join(args[2:], " "))
	fmt.Printf("Set %s on <%s>\n", args[1], el.Tag())
}

func (r *REPL) cmdOriginal(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: original <selector>")
		return
	}
	if r.engine == nil {
		fmt.Println("No session is running")
		return
	}
	el := r.firstMatch(args[0])
	if el == nil {
		return
	}
	t := firstText(el)
	if t == nil {
		fmt.Printf("<%s> has no text child\n", el.Tag())
		return
	}
	orig, ok := r.engine.OriginalText(t)
	if !ok {
		fmt.Println("Not tracked (maybe ignored or whitespace)")
		return
	}
	fmt.Printf("Current:  %q\n", t.Text())
	fmt.Printf("Original: %q\n", orig)
}
