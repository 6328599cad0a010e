// Command tmi-parse decodes raw chat protocol captures. It reads CRLF-framed lines from the
// named files (or stdin) and writes one JSON object per line to stdout:
//
//	{"n":1,"message":{...}}
//	{"n":2,"error":"framing: parse: ..."}
//
// With -strict it stops at the first error and exits 1.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/onnwee/trirk/frame"
	"github.com/onnwee/trirk/ircerr"
	"github.com/onnwee/trirk/parser"
)

type record struct {
	N       int             `json:"n"`
	Source  string          `json:"source,omitempty"`
	Message *parser.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmi-parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	strict := fs.Bool("strict", false, "stop at the first line that fails to parse")
	maxLine := fs.Int("max-line", frame.DefaultLimits().MaxLineBytes, "longest accepted line in bytes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p := &printer{enc: json.NewEncoder(stdout), strict: *strict, limits: frame.Limits{MaxLineBytes: *maxLine}}
	if fs.NArg() == 0 {
		return p.exitCode(p.stream("", stdin))
	}
	for _, name := range fs.Args() {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(stderr, "tmi-parse: %v\n", err)
			return 1
		}
		err = p.stream(name, f)
		_ = f.Close()
		if err != nil {
			if !errors.Is(err, errStrict) {
				fmt.Fprintf(stderr, "tmi-parse: %s: %v\n", name, err)
			}
			return 1
		}
	}
	return p.exitCode(nil)
}

var errStrict = errors.New("stopped at first error")

type printer struct {
	enc    *json.Encoder
	strict bool
	limits frame.Limits
	failed int
}

// stream decodes every line of r. Framing and transport errors end the stream since the
// remaining bytes cannot be trusted; other errors are reported per line.
func (p *printer) stream(name string, r io.Reader) error {
	n := 0
	for raw, err := range frame.NewReader(r, p.limits).Lines() {
		n++
		rec := record{N: n, Source: name}
		if err != nil {
			rec.Error = err.Error()
			p.failed++
			if encErr := p.enc.Encode(rec); encErr != nil {
				return encErr
			}
			if p.strict {
				return errStrict
			}
			return nil
		}
		rec.Message, err = decode(raw)
		if err != nil {
			rec.Error = err.Error()
			p.failed++
		}
		if encErr := p.enc.Encode(rec); encErr != nil {
			return encErr
		}
		if err != nil && p.strict {
			return errStrict
		}
	}
	return nil
}

func decode(raw []byte) (*parser.Message, error) {
	if !utf8.Valid(raw) {
		return nil, ircerr.Decoding("decode", string(raw), ircerr.ErrInvalidUTF8)
	}
	return parser.Parse(string(raw))
}

func (p *printer) exitCode(err error) int {
	if err != nil || (p.strict && p.failed > 0) {
		return 1
	}
	return 0
}
