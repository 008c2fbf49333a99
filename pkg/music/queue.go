package music

import (
	"math/rand/v2"
	"slices"
)

// Queue holds the pending tracks of one guild. It is not safe for concurrent
// use; a Session only touches it from its own goroutine.
type Queue struct {
	tracks []Track
	rng    *rand.Rand
}

// NewQueue creates an empty queue. A nil source uses the global generator.
func NewQueue(src rand.Source) *Queue {
	q := &Queue{tracks: make([]Track, 0)}
	if src != nil {
		q.rng = rand.New(src)
	}
	return q
}

// Enqueue appends a track to the end of the queue
func (q *Queue) Enqueue(track Track) {
	q.tracks = append(q.tracks, track)
}

// DequeueNext removes and returns the head of the queue
func (q *Queue) DequeueNext() (Track, error) {
	if len(q.tracks) == 0 {
		return Track{}, ErrEmptyQueue
	}
	next := q.tracks[0]
	q.tracks = slices.Delete(q.tracks, 0, 1)
	return next, nil
}

// At returns the track at the 1-based position without removing it
func (q *Queue) At(index int) (Track, error) {
	if index < 1 || index > len(q.tracks) {
		return Track{}, newError(CodeIndexOutOfRange, nil, "Please provide a number between 1 and %d.", len(q.tracks))
	}
	return q.tracks[index-1], nil
}

// Jump removes and returns the track at the 1-based position, discarding
// every track before it. The queue is left untouched on error.
func (q *Queue) Jump(index int) (Track, error) {
	track, err := q.At(index)
	if err != nil {
		return Track{}, err
	}
	q.tracks = slices.Delete(q.tracks, 0, index)
	return track, nil
}

// Shuffle permutes the pending tracks uniformly at random
func (q *Queue) Shuffle() {
	swap := func(i, j int) { q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i] }
	if q.rng != nil {
		q.rng.Shuffle(len(q.tracks), swap)
		return
	}
	rand.Shuffle(len(q.tracks), swap)
}

// Clear drops every pending track
func (q *Queue) Clear() {
	q.tracks = make([]Track, 0)
}

// Len returns the number of pending tracks
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Tracks returns a copy of the pending tracks in order
func (q *Queue) Tracks() []Track {
	return slices.Clone(q.tracks)
}
