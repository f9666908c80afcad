package db_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/wordmask/internal/db"
	"github.com/go-ports/wordmask/internal/models"
)

// openTestDB opens a fresh SQLite database in a temp directory and registers
// t.Cleanup to close it.
func openTestDB(t *testing.T, opts ...db.Option) *db.DB {
	t.Helper()
	d, err := db.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// recorder collects change events delivered to a subscriber.
type recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recorder) record(ev models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ops() []models.ChangeOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ChangeOp, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Op
	}
	return out
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_HappyPath(t *testing.T) {
	c := qt.New(t)
	d := openTestDB(t)
	c.Assert(d, qt.IsNotNil)
	c.Assert(d.Driver(), qt.Equals, "sqlite3")
	c.Assert(d.Ping(context.Background()), qt.IsTrue)
}

func TestOpen_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("unknown driver", func(c *qt.C) {
		d, err := db.Open(context.Background(), "oracle", "whatever")
		c.Assert(err, qt.ErrorMatches, `.*unsupported driver.*`)
		c.Assert(d, qt.IsNil)
	})

	c.Run("unwritable sqlite path", func(c *qt.C) {
		d, err := db.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
		c.Assert(err, qt.IsNotNil)
		c.Assert(d, qt.IsNil)
	})
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "words.db")
	ctx := context.Background()

	d, err := db.Open(ctx, "sqlite", path)
	c.Assert(err, qt.IsNil)
	_, err = d.Create(ctx, "persisted")
	c.Assert(err, qt.IsNil)
	c.Assert(d.Close(), qt.IsNil)

	d, err = db.Open(ctx, "sqlite", path)
	c.Assert(err, qt.IsNil)
	defer d.Close()
	words, err := d.ListWords(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(words, qt.DeepEquals, []string{"persisted"})
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

func TestCreateAndGet_HappyPath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("created word is retrievable by ID", func(c *qt.C) {
		d := openTestDB(t)
		id, err := d.Create(ctx, "select * from")
		c.Assert(err, qt.IsNil)
		c.Assert(id > 0, qt.IsTrue)

		word, found, err := d.GetByID(ctx, id)
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsTrue)
		c.Assert(word, qt.Equals, "select * from")
	})

	c.Run("unknown ID returns not-found", func(c *qt.C) {
		d := openTestDB(t)
		word, found, err := d.GetByID(ctx, 999)
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsFalse)
		c.Assert(word, qt.Equals, "")
	})

	c.Run("ids increase", func(c *qt.C) {
		d := openTestDB(t)
		a, err := d.Create(ctx, "a")
		c.Assert(err, qt.IsNil)
		b, err := d.Create(ctx, "b")
		c.Assert(err, qt.IsNil)
		c.Assert(b > a, qt.IsTrue)
	})
}

func TestCreate_FailurePath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("exact duplicate is rejected", func(c *qt.C) {
		d := openTestDB(t)
		_, err := d.Create(ctx, "add")
		c.Assert(err, qt.IsNil)

		_, err = d.Create(ctx, "add")
		c.Assert(err, qt.ErrorIs, db.ErrDuplicate)
	})

	c.Run("case variant is a distinct word", func(c *qt.C) {
		d := openTestDB(t)
		_, err := d.Create(ctx, "add")
		c.Assert(err, qt.IsNil)

		_, err = d.Create(ctx, "ADD")
		c.Assert(err, qt.IsNil)

		words, err := d.ListWords(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(words, qt.HasLen, 2)
	})
}

func TestListWords_HappyPath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("empty store returns empty slice", func(c *qt.C) {
		d := openTestDB(t)
		words, err := d.ListWords(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(words, qt.IsNotNil)
		c.Assert(words, qt.HasLen, 0)
	})

	c.Run("entries carry ids", func(c *qt.C) {
		d := openTestDB(t)
		id1, _ := d.Create(ctx, "one")
		id2, _ := d.Create(ctx, "two")

		entries, err := d.ListEntries(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(entries, qt.DeepEquals, []models.Word{
			{ID: id1, Word: "one"},
			{ID: id2, Word: "two"},
		})
	})
}

func TestExists(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	d := openTestDB(t)
	_, err := d.Create(ctx, "Secret")
	c.Assert(err, qt.IsNil)

	ok, err := d.Exists(ctx, "Secret")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = d.Exists(ctx, "secret")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestUpdate_HappyPath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("existing row is replaced", func(c *qt.C) {
		d := openTestDB(t)
		id, _ := d.Create(ctx, "old")

		n, err := d.Update(ctx, id, "new")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(1))

		word, _, _ := d.GetByID(ctx, id)
		c.Assert(word, qt.Equals, "new")
	})

	c.Run("missing row affects nothing", func(c *qt.C) {
		d := openTestDB(t)
		n, err := d.Update(ctx, 42, "new")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(0))
	})

	c.Run("collision with another row is a duplicate", func(c *qt.C) {
		d := openTestDB(t)
		_, _ = d.Create(ctx, "taken")
		id, _ := d.Create(ctx, "free")

		_, err := d.Update(ctx, id, "taken")
		c.Assert(err, qt.ErrorIs, db.ErrDuplicate)
	})
}

func TestDelete_HappyPath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := openTestDB(t)
	id, _ := d.Create(ctx, "gone")

	n, err := d.Delete(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(1))

	_, found, err := d.GetByID(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsFalse)

	n, err = d.Delete(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(0))
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSubscribe_EmitsOncePerMutation(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := openTestDB(t, db.WithOrigin("node-1"))
	rec := &recorder{}
	unsubscribe := d.Subscribe(rec.record)

	id, err := d.Create(ctx, "a")
	c.Assert(err, qt.IsNil)
	_, err = d.Update(ctx, id, "b")
	c.Assert(err, qt.IsNil)
	_, err = d.Delete(ctx, id)
	c.Assert(err, qt.IsNil)

	c.Assert(rec.ops(), qt.DeepEquals, []models.ChangeOp{models.OpCreate, models.OpUpdate, models.OpDelete})
	c.Assert(rec.events[0].ID, qt.Equals, id)
	c.Assert(rec.events[0].Origin, qt.Equals, "node-1")

	unsubscribe()
	unsubscribe() // idempotent
	_, err = d.Create(ctx, "c")
	c.Assert(err, qt.IsNil)
	c.Assert(rec.ops(), qt.HasLen, 3)
}

func TestSubscribe_NoEventOnFailure(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := openTestDB(t)
	_, _ = d.Create(ctx, "dup")

	rec := &recorder{}
	d.Subscribe(rec.record)

	_, err := d.Create(ctx, "dup")
	c.Assert(err, qt.ErrorIs, db.ErrDuplicate)
	c.Assert(rec.ops(), qt.HasLen, 0)

	// Reads never emit.
	_, _ = d.ListWords(ctx)
	_, _, _ = d.GetByID(ctx, 1)
	c.Assert(rec.ops(), qt.HasLen, 0)
}

func TestSubscribe_ReadsReflectCommittedWrite(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	d := openTestDB(t)
	var seen []string
	d.Subscribe(func(models.ChangeEvent) {
		words, err := d.ListWords(ctx)
		if err == nil {
			seen = words
		}
	})

	_, err := d.Create(ctx, "visible")
	c.Assert(err, qt.IsNil)
	c.Assert(seen, qt.DeepEquals, []string{"visible"})
}

func TestOpen_SQLiteDSNWithQuery(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "words.db") + "?cache=shared"
	d, err := db.Open(ctx, "sqlite", dsn)
	c.Assert(err, qt.IsNil)
	defer d.Close()

	id, err := d.Create(ctx, "secret")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, int64(1))
}
