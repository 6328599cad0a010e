package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const historySize = 500

// lineEditor reads input lines: readline when stdin is a terminal, a scanner otherwise. Its
// Write method prints output without corrupting a prompt that is being edited.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
	out     io.Writer
	mu      sync.Mutex
}

func newLineEditor(in io.Reader, out io.Writer) *lineEditor {
	f, isFile := in.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) || os.Getenv("INSIDE_EMACS") != "" {
		return &lineEditor{scanner: bufio.NewScanner(in), out: out}
	}
	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath(),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: readline init failed (%v), using basic input\n", err)
		return &lineEditor{scanner: bufio.NewScanner(in), out: out}
	}
	return &lineEditor{rl: rl, out: out}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tmi_console_history")
}

// ReadLine returns the next line, or io.EOF on Ctrl-D, Ctrl-C or end of input.
func (le *lineEditor) ReadLine(prompt string) (string, error) {
	if le.rl == nil {
		if !le.scanner.Scan() {
			if err := le.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return le.scanner.Text(), nil
	}

	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *lineEditor) Write(p []byte) (int, error) {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.rl != nil {
		return le.rl.Write(p)
	}
	return le.out.Write(p)
}

func (le *lineEditor) Close() {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}
