package bench_test

import (
	"context"
	"database/sql"
	"io"
	"math/rand"
	"testing"

	ringlog "github.com/luhtfiimanal/go-ringlog"
)

// prepareStores fills a ring and a SQLite table with the same full window
// of lines.
func prepareStores(b *testing.B, capacity int) (*ringlog.Device, *sql.DB) {
	opts := ringlog.DefaultOptions()
	opts.Capacity = capacity
	dev, err := ringlog.NewDeviceWithOptions(opts)
	if err != nil {
		b.Fatalf("create device: %v", err)
	}
	db := openLineTable(b)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < capacity; i++ {
		line := randomLine(rng)
		if _, err := dev.Write(context.Background(), []byte(line)); err != nil {
			b.Fatalf("ring write: %v", err)
		}
		if err := appendLine(db, capacity, line); err != nil {
			b.Fatalf("sqlite insert: %v", err)
		}
	}
	return dev, db
}

// BenchmarkAppend writes one line per iteration into an already full ring.
func BenchmarkAppend(b *testing.B) {
	dev, db := prepareStores(b, 100)
	defer dev.Close()
	defer db.Close()
	line := []byte(randomLine(rand.New(rand.NewSource(7))))
	ctx := context.Background()

	b.Run("ringbuffer", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			if _, err := dev.Write(ctx, line); err != nil {
				bb.Fatalf("write: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			if err := appendLine(db, 100, string(line)); err != nil {
				bb.Fatalf("insert: %v", err)
			}
		}
	})
}

// BenchmarkReadStream reads the whole stream per iteration.
func BenchmarkReadStream(b *testing.B) {
	dev, db := prepareStores(b, 100)
	defer dev.Close()
	defer db.Close()

	b.Run("ringbuffer", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			if _, err := io.Copy(io.Discard, dev.Open()); err != nil {
				bb.Fatalf("read: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			if _, err := readStream(db); err != nil {
				bb.Fatalf("read: %v", err)
			}
		}
	})
}

// BenchmarkReadRandomOffset reads one chunk from a random offset.
func BenchmarkReadRandomOffset(b *testing.B) {
	dev, db := prepareStores(b, 100)
	defer dev.Close()
	defer db.Close()
	size := int64(100 * lineLen)
	rng := rand.New(rand.NewSource(42))
	buf := make([]byte, lineLen)
	ctx := context.Background()

	b.Run("ringbuffer", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			if _, err := dev.ReadAt(ctx, buf, rng.Int63n(size)); err != nil {
				bb.Fatalf("read: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			off := rng.Int63n(size)
			row := db.QueryRow(`SELECT substr(body, ?) FROM lines ORDER BY seq LIMIT 1 OFFSET ?`, off%lineLen+1, off/lineLen)
			var tmp string
			if err := row.Scan(&tmp); err != nil {
				bb.Fatalf("read: %v", err)
			}
		}
	})
}
