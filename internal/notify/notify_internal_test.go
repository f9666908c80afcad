package notify

// White-box testing required: decodeEvent and handle carry all of the
// message logic and are exercised here without a Redis server.

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/wordmask/internal/models"
)

func TestDecodeEvent(t *testing.T) {
	c := qt.New(t)

	c.Run("round trip of a marshalled event", func(c *qt.C) {
		want := models.NewChangeEvent(models.OpCreate, 12, "node-a")
		b, err := want.Marshal()
		c.Assert(err, qt.IsNil)

		got, ok := decodeEvent(string(b))
		c.Assert(ok, qt.IsTrue)
		c.Assert(got.Op, qt.Equals, want.Op)
		c.Assert(got.ID, qt.Equals, want.ID)
		c.Assert(got.Origin, qt.Equals, want.Origin)
		c.Assert(got.At.Equal(want.At), qt.IsTrue)
	})

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "reload"},
		{"json array", `["create"]`},
		{"unknown op", `{"op":"truncate","id":1}`},
		{"missing op", `{"id":1}`},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			_, ok := decodeEvent(tc.payload)
			c.Assert(ok, qt.IsFalse)
		})
	}
}

func TestSubscriberHandle(t *testing.T) {
	c := qt.New(t)

	newSub := func(got *[]models.ChangeEvent) *Subscriber {
		return NewSubscriber(nil, "ch", "self", func(ev models.ChangeEvent) {
			*got = append(*got, ev)
		}, nil)
	}

	c.Run("remote event is forwarded", func(c *qt.C) {
		var got []models.ChangeEvent
		s := newSub(&got)
		s.handle(`{"op":"delete","id":3,"origin":"other"}`)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0].Op, qt.Equals, models.OpDelete)
		c.Assert(got[0].ID, qt.Equals, int64(3))
	})

	c.Run("own event is dropped", func(c *qt.C) {
		var got []models.ChangeEvent
		s := newSub(&got)
		s.handle(`{"op":"delete","id":3,"origin":"self"}`)
		c.Assert(got, qt.HasLen, 0)
	})

	c.Run("event without origin is forwarded", func(c *qt.C) {
		var got []models.ChangeEvent
		s := newSub(&got)
		s.handle(`{"op":"update","id":9}`)
		c.Assert(got, qt.HasLen, 1)
	})

	c.Run("malformed payload still invalidates", func(c *qt.C) {
		var got []models.ChangeEvent
		s := newSub(&got)
		s.handle("garbage")
		c.Assert(got, qt.HasLen, 1)
		c.Assert(got[0].Op, qt.Equals, models.ChangeOp(""))
	})
}
