// Command gojabridge is a JavaScript shell over the gojabridge embedding
// layer.
//
// Usage:
//
//	gojabridge [-c config.toml] [-e expr] [file ...]
//
// Files are run in order, then the expression, if any. With neither, an
// interactive REPL starts; input continues over several lines until it forms
// a complete program. The globals print, gc and quit are provided, as are
// console and require (with the bridge module as require("bridge")).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	prompt "github.com/joeycumines/go-prompt"
	istrings "github.com/joeycumines/go-prompt/strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gojabridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("c", "", "path to a TOML config file")
	expr := fs.String("e", "", "evaluate an expression and print the result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
	}

	sh, err := newShell(cfg, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer sh.Close()

	for _, name := range fs.Args() {
		if err := sh.RunFile(name); err != nil {
			_, _ = fmt.Fprintln(stderr, describeError(err))
			return 1
		}
		if code, ok := sh.Done(); ok {
			return code
		}
	}

	if *expr != "" {
		v, err := sh.Eval(*expr, "<expr>")
		if err != nil {
			_, _ = fmt.Fprintln(stderr, describeError(err))
			return 1
		}
		if code, ok := sh.Done(); ok {
			return code
		}
		if !v.IsUndefined() {
			_, _ = fmt.Fprintln(stdout, v.String())
		}
	}

	if fs.NArg() != 0 || *expr != "" {
		return 0
	}

	return repl(sh, cfg)
}

func repl(sh *shell, cfg Config) int {
	p := prompt.New(
		sh.Execute,
		prompt.WithPrefix(cfg.Prompt),
		prompt.WithTitle("gojabridge"),
		prompt.WithExecuteOnEnterCallback(func(p *prompt.Prompt, indentSize int) (int, bool) {
			return 0, sh.Complete(p.Buffer().Text())
		}),
		prompt.WithExitChecker(func(string, bool) bool {
			_, done := sh.Done()
			return done
		}),
		prompt.WithCompleter(func(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
			end := d.CurrentRuneIndex()
			word := d.GetWordBeforeCursor()
			if word == "" {
				return nil, end, end
			}
			names := sh.Globals()
			suggestions := make([]prompt.Suggest, len(names))
			for i, name := range names {
				suggestions[i] = prompt.Suggest{Text: name}
			}
			return prompt.FilterHasPrefix(suggestions, word, false), end - istrings.RuneCountInString(word), end
		}),
	)
	if code := p.RunNoExit(); code > 0 {
		return code
	}
	code, _ := sh.Done()
	return code
}
