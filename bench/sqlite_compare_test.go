package bench_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	ringlog "github.com/luhtfiimanal/go-ringlog"
	_ "modernc.org/sqlite"
)

const lineLen = 48

func randomLine(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, lineLen)
	for i := range b[:lineLen-1] {
		b[i] = letters[rng.Intn(len(letters))]
	}
	b[lineLen-1] = '\n'
	return string(b)
}

// openLineTable creates an in-memory table that keeps the newest capacity
// lines, the relational equivalent of the ring.
func openLineTable(tb testing.TB) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE lines (seq INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL)`); err != nil {
		tb.Fatalf("create table: %v", err)
	}
	return db
}

func appendLine(db *sql.DB, capacity int, line string) error {
	res, err := db.Exec(`INSERT INTO lines (body) VALUES (?)`, line)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM lines WHERE seq <= ?`, seq-int64(capacity))
	return err
}

func readStream(db *sql.DB) (string, error) {
	rows, err := db.Query(`SELECT body FROM lines ORDER BY seq`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var sb strings.Builder
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return "", err
		}
		sb.WriteString(body)
	}
	return sb.String(), rows.Err()
}

// TestCompareWithSQLite writes the same lines, some split across calls, to
// the ring and to SQLite and expects identical streams.
func TestCompareWithSQLite(t *testing.T) {
	const (
		total    = 500
		capacity = ringlog.MaxWriteOperations
	)
	rng := rand.New(rand.NewSource(1))

	dev := ringlog.NewDevice()
	defer dev.Close()
	db := openLineTable(t)
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < total; i++ {
		line := randomLine(rng)
		cut := rng.Intn(len(line))
		for _, part := range []string{line[:cut], line[cut:]} {
			if _, err := dev.Write(ctx, []byte(part)); err != nil {
				t.Fatalf("ring write %d: %v", i, err)
			}
		}
		if err := appendLine(db, capacity, line); err != nil {
			t.Fatalf("sqlite insert %d: %v", i, err)
		}

		if i%50 != 49 {
			continue
		}
		got, err := io.ReadAll(dev.Open())
		if err != nil {
			t.Fatalf("ring read: %v", err)
		}
		want, err := readStream(db)
		if err != nil {
			t.Fatalf("sqlite read: %v", err)
		}
		if string(got) != want {
			t.Fatalf("stream mismatch after %d lines:\nring   %q\nsqlite %q", i+1, got, want)
		}
	}
	fmt.Printf("compared %d lines, ring holds %d bytes\n", total, capacity*lineLen)
}
