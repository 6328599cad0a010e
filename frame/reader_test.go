package frame

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/onnwee/trirk/ircerr"
)

// chunkReader returns each chunk from one Read call.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func readAll(t *testing.T, fr *Reader) ([]string, error) {
	t.Helper()
	var lines []string
	for {
		line, err := fr.Next()
		if err != nil {
			return lines, err
		}
		lines = append(lines, string(line))
	}
}

func TestLineSpanningReads(t *testing.T) {
	fr := NewReader(&chunkReader{chunks: []string{"PRIVMSG #c :he", "llo\r\n"}}, DefaultLimits())

	lines, err := readAll(t, fr)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if want := []string{"PRIVMSG #c :hello"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestSeveralLinesInOneRead(t *testing.T) {
	fr := NewReader(strings.NewReader("PING\r\n:a!a@a JOIN #c\r\n:a!a@a PART #c\r\n"), DefaultLimits())

	lines, err := readAll(t, fr)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	want := []string{"PING", ":a!a@a JOIN #c", ":a!a@a PART #c"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestChunkInvariance(t *testing.T) {
	stream := "@badges=staff/1;color=#FF0000 :a!a@a.example PRIVMSG #c :hi there\r\n" +
		"PING :tmi.twitch.tv\r\n" +
		"\r\n" +
		":tmi.twitch.tv 001 bot :Welcome, GLHF!\r\n"

	whole, err := readAll(t, NewReader(strings.NewReader(stream), DefaultLimits()))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("unchunked read error = %v", err)
	}
	if len(whole) != 4 {
		t.Fatalf("unchunked read produced %d lines, want 4", len(whole))
	}

	for split := 1; split < len(stream); split++ {
		fr := NewReader(&chunkReader{chunks: []string{stream[:split], stream[split:]}}, DefaultLimits())
		got, err := readAll(t, fr)
		if !errors.Is(err, io.EOF) {
			t.Fatalf("split at %d: error = %v", split, err)
		}
		if !reflect.DeepEqual(got, whole) {
			t.Fatalf("split at %d: lines = %q, want %q", split, got, whole)
		}
	}

	got, err := readAll(t, NewReader(iotest.OneByteReader(strings.NewReader(stream)), DefaultLimits()))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("one byte reads: error = %v", err)
	}
	if !reflect.DeepEqual(got, whole) {
		t.Errorf("one byte reads: lines = %q, want %q", got, whole)
	}
}

func TestPartialLineAtEOF(t *testing.T) {
	fr := NewReader(strings.NewReader("PING\r\nPRIVMSG #c :unfinished"), DefaultLimits())

	line, err := fr.Next()
	if err != nil || string(line) != "PING" {
		t.Fatalf("Next() = %q, %v", line, err)
	}
	_, err = fr.Next()
	if !ircerr.IsFraming(err) || !errors.Is(err, ircerr.ErrPartialLine) {
		t.Fatalf("Next() error = %v, want framing partial line", err)
	}
	if _, again := fr.Next(); again != err {
		t.Errorf("error not sticky: %v", again)
	}
}

func TestEmptyStream(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), DefaultLimits()).Next()
	if !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestTransportError(t *testing.T) {
	boom := errors.New("connection reset by peer")
	_, err := NewReader(iotest.ErrReader(boom), DefaultLimits()).Next()
	if !ircerr.IsTransport(err) || !errors.Is(err, boom) {
		t.Errorf("Next() error = %v, want transport wrapping %v", err, boom)
	}
}

func TestLineTooLong(t *testing.T) {
	fr := NewReader(strings.NewReader(strings.Repeat("a", 200)+"\r\n"), Limits{MaxLineBytes: 64})
	_, err := fr.Next()
	if !errors.Is(err, ircerr.ErrLineTooLong) {
		t.Errorf("Next() error = %v, want ErrLineTooLong", err)
	}

	exact := strings.Repeat("b", 64)
	line, err := NewReader(iotest.OneByteReader(strings.NewReader(exact+"\r\n")), Limits{MaxLineBytes: 64}).Next()
	if err != nil || string(line) != exact {
		t.Errorf("line at the limit: Next() = %d bytes, %v", len(line), err)
	}
}

func TestLinesSequence(t *testing.T) {
	fr := NewReader(strings.NewReader("A\r\nB\r\nC\r\n"), DefaultLimits())

	var first []string
	for line, err := range fr.Lines() {
		if err != nil {
			t.Fatalf("Lines() error = %v", err)
		}
		first = append(first, string(line))
		if len(first) == 2 {
			break
		}
	}
	var rest []string
	for line, err := range fr.Lines() {
		if err != nil {
			t.Fatalf("Lines() error = %v", err)
		}
		rest = append(rest, string(line))
	}

	if !reflect.DeepEqual(first, []string{"A", "B"}) || !reflect.DeepEqual(rest, []string{"C"}) {
		t.Errorf("Lines() = %q then %q", first, rest)
	}
}

func TestLinesYieldsErrorThenStops(t *testing.T) {
	fr := NewReader(strings.NewReader("A\r\nB"), DefaultLimits())
	var errs int
	var lines int
	for _, err := range fr.Lines() {
		if err != nil {
			errs++
			continue
		}
		lines++
	}
	if lines != 1 || errs != 1 {
		t.Errorf("lines=%d errs=%d, want 1 and 1", lines, errs)
	}
}
