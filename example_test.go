package factstream_test

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/store"
)

type catalogFact = factstream.Fact[string, factstream.UnknownAttribute, string]

func attr(tag, content string) factstream.UnknownAttribute {
	return factstream.UnknownAttribute{Tag: tag, Content: json.RawMessage(content)}
}

// Append facts to a store and read them all back in file order.
func Example_basicUsage() {
	dir, err := os.MkdirTemp("", "factstream")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	st, err := store.OpenOrCreate[string, factstream.UnknownAttribute, string](filepath.Join(dir, "facts.stream"))
	if err != nil {
		log.Fatal(err)
	}

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	batch := []catalogFact{
		factstream.New("track1", attr("Bpm", `128`), base, "alice", factstream.Assert),
		factstream.New("track1", attr("Tag", `"techno"`), base.Add(time.Minute), "alice", factstream.Assert),
		factstream.New("track1", attr("Tag", `"techno"`), base.Add(2*time.Minute), "bob", factstream.Retract),
	}
	if err := st.AppendBatch(batch); err != nil {
		log.Fatal(err)
	}

	for fact, err := range st.Iter() {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %s=%s %s\n", fact.Entity, fact.Value.Tag, fact.Value.Content, fact.Operation)
	}
	// Output:
	// track1 Bpm=128 Assert
	// track1 Tag="techno" Assert
	// track1 Tag="techno" Retract
}

// Resume reading where a previous pass stopped by remembering the last
// timestamp seen. A fact at exactly the remembered time is replayed, so
// consumers must treat replays as idempotent.
func Example_incrementalSync() {
	dir, err := os.MkdirTemp("", "factstream")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "facts.stream")
	st, err := store.OpenOrCreate[string, factstream.UnknownAttribute, string](path)
	if err != nil {
		log.Fatal(err)
	}

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	if err := st.Append(factstream.New("track1", attr("Bpm", `128`), base, "alice", factstream.Assert)); err != nil {
		log.Fatal(err)
	}

	// First pass: consume everything, remember how far we got.
	var cursor time.Time
	for fact, err := range st.Iter() {
		if err != nil {
			log.Fatal(err)
		}
		cursor = fact.Timestamp
	}

	if err := st.Append(factstream.New("track1", attr("Bpm", `130`), base.Add(time.Minute), "alice", factstream.Assert)); err != nil {
		log.Fatal(err)
	}

	// Second pass: only facts at or after the cursor.
	for fact, err := range st.IterFrom(cursor) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %s=%s\n", fact.Entity, fact.Value.Tag, fact.Value.Content)
	}
	// Output:
	// track1 Bpm=128
	// track1 Bpm=130
}
