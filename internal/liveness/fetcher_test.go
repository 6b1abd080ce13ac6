// ABOUTME: Tests for liveness key derivation and latest-thought extraction.
// ABOUTME: The key layout is pinned exactly; it addresses external storage.

package liveness

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore returns canned documents keyed by "collection/doc".
type fakeStore struct {
	docs map[string]*Document
	err  error
	gets []string
}

func (f *fakeStore) Get(_ context.Context, collection, docID string) (*Document, error) {
	key := collection + "/" + docID
	f.gets = append(f.gets, key)
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[key], nil
}

func docWithThoughts(timestamps ...int64) *Document {
	thoughts := make([]Thought, len(timestamps))
	for i, ts := range timestamps {
		thoughts[i] = Thought{Timestamp: ts}
	}
	raw, _ := json.Marshal(thoughts)

	doc := &Document{}
	doc.Value.Thoughts = raw
	return doc
}

func docWithRawThoughts(raw string) *Document {
	doc := &Document{}
	doc.Value.Thoughts = json.RawMessage(raw)
	return doc
}

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		name        string
		agentIndex  int
		sessionID   int64
		gameFactory string
		want        string
	}{
		{"long factory uses last five chars", 0, 3, "0x04a2bf9e1d", "f_f9e1d_s_3_a_1"},
		{"short factory kept whole", 2, 10, "ab12", "f_ab12_s_10_a_3"},
		{"exactly five chars", 4, 7, "abcde", "f_abcde_s_7_a_5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionKey(tt.agentIndex, tt.sessionID, tt.gameFactory))
		})
	}
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "working-memory:cli:agent-1", DocumentKey(0))
	assert.Equal(t, "working-memory:cli:agent-5", DocumentKey(4))
}

func TestLatest_PicksMaxTimestamp(t *testing.T) {
	store := &fakeStore{docs: map[string]*Document{
		"f_f9e1d_s_3_a_1/working-memory:cli:agent-1": docWithThoughts(100, 900, 500),
	}}
	fetcher := NewFetcher(store, testLogger())

	thought, err := fetcher.Latest(context.Background(), 0, 3, "0x04a2bf9e1d")

	require.NoError(t, err)
	require.NotNil(t, thought)
	assert.Equal(t, int64(900), thought.Timestamp)
}

func TestLatest_MissingDocumentIsNoData(t *testing.T) {
	fetcher := NewFetcher(&fakeStore{}, testLogger())

	thought, err := fetcher.Latest(context.Background(), 0, 3, "factory")

	require.NoError(t, err)
	assert.Nil(t, thought)
}

func TestLatest_EmptyThoughtsIsNoData(t *testing.T) {
	store := &fakeStore{docs: map[string]*Document{
		"f_ctory_s_3_a_1/working-memory:cli:agent-1": docWithThoughts(),
	}}
	fetcher := NewFetcher(store, testLogger())

	thought, err := fetcher.Latest(context.Background(), 0, 3, "factory")

	require.NoError(t, err)
	assert.Nil(t, thought)
}

func TestLatest_MalformedThoughtsIsNoData(t *testing.T) {
	store := &fakeStore{docs: map[string]*Document{
		"f_ctory_s_3_a_1/working-memory:cli:agent-1": docWithRawThoughts(`"not an array"`),
	}}
	fetcher := NewFetcher(store, testLogger())

	thought, err := fetcher.Latest(context.Background(), 0, 3, "factory")

	require.NoError(t, err)
	assert.Nil(t, thought)
}

func TestLatest_TransportErrorIsError(t *testing.T) {
	store := &fakeStore{err: errors.New("store unavailable")}
	fetcher := NewFetcher(store, testLogger())

	_, err := fetcher.Latest(context.Background(), 0, 3, "factory")

	assert.Error(t, err)
}

func TestLatest_QueriesDerivedKeys(t *testing.T) {
	store := &fakeStore{}
	fetcher := NewFetcher(store, testLogger())

	_, err := fetcher.Latest(context.Background(), 1, 12, "0xdeadbeef")

	require.NoError(t, err)
	require.Len(t, store.gets, 1)
	assert.Equal(t, "f_dbeef_s_12_a_2/working-memory:cli:agent-2", store.gets[0])
}
