// Package redaction masks configured sensitive words in free text.
//
// A WordSet is built once from the raw word list: entries are deduplicated,
// ordered longest first (see Compare) and compiled into case-insensitive
// literal matchers. Sanitize then applies every matcher in order, replacing
// each whole-word occurrence with a run of '*' as long as the word itself.
package redaction

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mask is the character written over every rune of a matched word.
const Mask = "*"

// matcher is a precompiled whole-word matcher for one sensitive word.
type matcher struct {
	word string
	re   *regexp.Regexp
	mask string
}

// WordSet is an immutable, ordered set of compiled sensitive words.
// It is safe for concurrent use.
type WordSet struct {
	matchers []matcher
	skipped  []string
}

// NewWordSet deduplicates and orders words, then compiles one matcher per
// entry. Blank words and words that cannot be compiled (invalid UTF-8) are
// skipped with a warning; the remaining words are still usable.
func NewWordSet(words []string, logger *zap.Logger) *WordSet {
	if logger == nil {
		logger = zap.NewNop()
	}

	ordered := Order(words)
	ws := &WordSet{matchers: make([]matcher, 0, len(ordered))}
	for _, w := range ordered {
		if strings.TrimSpace(w) == "" {
			logger.Warn("skipping blank sensitive word")
			ws.skipped = append(ws.skipped, w)
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(w))
		if err != nil {
			logger.Warn("skipping sensitive word that cannot be compiled",
				zap.String("word", w), zap.Error(err))
			ws.skipped = append(ws.skipped, w)
			continue
		}
		ws.matchers = append(ws.matchers, matcher{
			word: w,
			re:   re,
			mask: strings.Repeat(Mask, utf8.RuneCountInString(w)),
		})
	}
	return ws
}

// Len returns the number of usable words.
func (ws *WordSet) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.matchers)
}

// Words returns the usable words in application order.
func (ws *WordSet) Words() []string {
	if ws == nil {
		return nil
	}
	out := make([]string, len(ws.matchers))
	for i, m := range ws.matchers {
		out[i] = m.word
	}
	return out
}

// Skipped returns the words dropped while building the set.
func (ws *WordSet) Skipped() []string {
	if ws == nil {
		return nil
	}
	return append([]string(nil), ws.skipped...)
}

// Sanitize masks every whole-word, case-insensitive occurrence of each word
// in the set. Words are applied in order and each one sees the output of the
// previous, so a shorter word never re-matches inside an already masked span.
// Text with no matches is returned unchanged.
func (ws *WordSet) Sanitize(text string) string {
	if ws == nil {
		return text
	}
	for i := range ws.matchers {
		text = ws.matchers[i].replace(text)
	}
	return text
}

// SanitizeBatch sanitizes each text independently on up to workers
// goroutines (workers <= 0 means unbounded). out[i] always corresponds to
// texts[i]. It returns ctx.Err() when ctx is cancelled before completion.
func (ws *WordSet) SanitizeBatch(ctx context.Context, texts []string, workers int) ([]string, error) {
	out := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = ws.Sanitize(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// replace masks the non-overlapping whole-word matches of m in text.
// A candidate that fails the boundary check does not consume input: the
// scan resumes one rune after its start.
func (m *matcher) replace(text string) string {
	var (
		b       strings.Builder
		last    int
		pos     int
		matched bool
	)
	for pos < len(text) {
		loc := m.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if start == end {
			break
		}
		if !isWholeWord(text, start, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + size
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(m.mask)
		last, pos, matched = end, end, true
	}
	if !matched {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// isWholeWord reports whether text[start:end] is not adjacent to a
// word-forming rune on either side.
func isWholeWord(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// isWordRune reports whether r is a letter, digit, combining mark or
// connector punctuation (such as '_').
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || unicode.Is(unicode.Pc, r)
}

// ReadWords reads one word per line from r. Surrounding whitespace is
// trimmed; blank lines and lines starting with '#' are skipped.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

// LoadWordFile reads a word list file in the ReadWords format.
// Returns nil (no error) if the file does not exist.
func LoadWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWords(f)
}
