package service

import "github.com/cockroachdb/errors"

// MaxWordLen is the longest accepted sensitive word, in characters.
const MaxWordLen = 512

var (
	// ErrEmptyInput is returned when there is no text to sanitize.
	ErrEmptyInput = errors.New("input cannot be empty")
	// ErrNoWords is returned when the store holds no sensitive words.
	ErrNoWords = errors.New("no sensitive words found in the repository")
	// ErrInvalidID is returned for word IDs that are not positive.
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidWord is returned for word payloads rejected for any reason
	// other than ErrEmptyWord or ErrWordTooLong.
	ErrInvalidWord = errors.New("invalid word")
	// ErrEmptyWord is returned for blank words.
	ErrEmptyWord = errors.New("request cannot be empty")
	// ErrWordTooLong is returned for words over MaxWordLen.
	ErrWordTooLong = errors.Newf("word exceeds %d characters", MaxWordLen)
	// ErrWordExists is returned when the exact word is already stored.
	ErrWordExists = errors.New("word already exists")
	// ErrNotFound is returned when no word is stored under an ID.
	ErrNotFound = errors.New("word not found")
)

// IsInvalidWord reports whether err rejects a word payload.
func IsInvalidWord(err error) bool {
	return errors.IsAny(err, ErrEmptyWord, ErrWordTooLong, ErrInvalidWord)
}

// messages are the caller-facing texts for each sentinel, most specific
// first.
var messages = []struct {
	err error
	msg string
}{
	{ErrEmptyInput, "Input cannot be empty"},
	{ErrNoWords, "No sensitive words found in the repository."},
	{ErrInvalidID, "Invalid Id"},
	{ErrEmptyWord, "Request cannot be empty"},
	{ErrWordTooLong, "Word exceeds 512 characters"},
	{ErrInvalidWord, "Invalid word"},
	{ErrWordExists, "Word already exists"},
	{ErrNotFound, "Not Found"},
}

// Message returns the caller-facing text for err. ok is false when err is
// not one of the package sentinels, i.e. an internal failure whose details
// must not be shown.
func Message(err error) (msg string, ok bool) {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg, true
		}
	}
	return "", false
}
