// Package checkers provides quicktest checkers shared by the test suites.
package checkers

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker that reads path from a JSON document
// (given as []byte or string) and compares the value found there with the
// wanted one using qt.DeepEquals. JSON numbers decode as float64.
//
//	c.Assert(body, checkers.JSONPathEquals("$.cache.words"), float64(2))
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (*jsonPathChecker) ArgNames() []string {
	return []string{"got", "want"}
}

func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	var data []byte
	switch v := got.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		note("got type", got)
		return qt.BadCheckf("first argument is not []byte or string")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "cannot unmarshal JSON document")
	}
	note("path", c.path)
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", c.path)
	}
	return qt.DeepEquals.Check(value, args, note)
}
