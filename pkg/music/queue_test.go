package music

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func ids(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Identifier
	}
	return out
}

func queueOf(names ...string) *Queue {
	q := NewQueue(rand.NewPCG(1, 2))
	for _, n := range names {
		q.Enqueue(track(n))
	}
	return q
}

func sorted(s []string) []string {
	s = slices.Clone(s)
	slices.Sort(s)
	return s
}

func TestQueueEnqueueDequeueOrder(t *testing.T) {
	q := queueOf("a", "b", "c", "a")

	var got []string
	for q.Len() > 0 {
		next, err := q.DequeueNext()
		if err != nil {
			t.Fatalf("DequeueNext() error = %v", err)
		}
		got = append(got, next.Identifier)
	}
	if want := []string{"a", "b", "c", "a"}; !slices.Equal(got, want) {
		t.Errorf("dequeued = %v, want %v", got, want)
	}

	if _, err := q.DequeueNext(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("DequeueNext() on empty queue error = %v, want ErrEmptyQueue", err)
	}
}

func TestQueueJump(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		wantTrack string
		wantRest  []string
		wantErr   error
	}{
		{"first", 1, "a", []string{"b", "c", "d"}, nil},
		{"middle", 3, "c", []string{"d"}, nil},
		{"last", 4, "d", []string{}, nil},
		{"zero", 0, "", []string{"a", "b", "c", "d"}, ErrIndexOutOfRange},
		{"negative", -2, "", []string{"a", "b", "c", "d"}, ErrIndexOutOfRange},
		{"past end", 5, "", []string{"a", "b", "c", "d"}, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queueOf("a", "b", "c", "d")
			got, err := q.Jump(tt.index)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Jump(%d) error = %v, want %v", tt.index, err, tt.wantErr)
				}
				if msg := AsError(err).Message(); !strings.Contains(msg, "between 1 and 4") {
					t.Errorf("Message() = %q, want the valid range", msg)
				}
			} else {
				if err != nil {
					t.Fatalf("Jump(%d) error = %v", tt.index, err)
				}
				if got.Identifier != tt.wantTrack {
					t.Errorf("Jump(%d) = %s, want %s", tt.index, got.Identifier, tt.wantTrack)
				}
			}
			if rest := ids(q.Tracks()); !slices.Equal(rest, tt.wantRest) {
				t.Errorf("queue after Jump(%d) = %v, want %v", tt.index, rest, tt.wantRest)
			}
		})
	}
}

func TestQueueAtDoesNotRemove(t *testing.T) {
	q := queueOf("a", "b")

	got, err := q.At(2)
	if err != nil {
		t.Fatalf("At(2) error = %v", err)
	}
	if got.Identifier != "b" {
		t.Errorf("At(2) = %s, want b", got.Identifier)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	if _, err := queueOf().At(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("At(1) on empty queue error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestQueueShuffleKeepsTracks(t *testing.T) {
	q := queueOf("a", "b", "c", "d", "e", "f")
	q.Shuffle()

	if got := sorted(ids(q.Tracks())); !slices.Equal(got, []string{"a", "b", "c", "d", "e", "f"}) {
		t.Errorf("tracks after shuffle = %v", got)
	}
}

func TestQueueShuffleUniform(t *testing.T) {
	const rounds = 6000
	counts := make(map[string]int)
	q := queueOf("a", "b", "c")

	for range rounds {
		q.Shuffle()
		counts[strings.Join(ids(q.Tracks()), "")]++
	}

	if len(counts) != 6 {
		t.Fatalf("permutations seen = %d, want 6", len(counts))
	}
	for perm, n := range counts {
		if n < rounds/6-150 || n > rounds/6+150 {
			t.Errorf("permutation %s seen %d times, want about %d", perm, n, rounds/6)
		}
	}
}

func TestQueueShuffleSmall(t *testing.T) {
	empty := queueOf()
	empty.Shuffle()
	if empty.Len() != 0 {
		t.Errorf("empty Len() = %d, want 0", empty.Len())
	}

	single := queueOf("a")
	single.Shuffle()
	if got := ids(single.Tracks()); !slices.Equal(got, []string{"a"}) {
		t.Errorf("single = %v, want [a]", got)
	}
}

func TestQueueTracksIsCopy(t *testing.T) {
	q := queueOf("a", "b")
	tracks := q.Tracks()
	tracks[0].Identifier = "changed"

	if got := ids(q.Tracks()); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Tracks() = %v, want [a b]", got)
	}
}

func TestQueueClear(t *testing.T) {
	q := queueOf("a", "b")
	q.Clear()

	if q.Len() != 0 || len(q.Tracks()) != 0 {
		t.Errorf("after Clear() Len() = %d, Tracks() = %v", q.Len(), q.Tracks())
	}
}
