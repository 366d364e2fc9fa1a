// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue implements the FIFO queues used by the worklist algorithms.
package queue

import "errors"

// ErrEmpty is the panic value of Pop on an empty queue
var ErrEmpty = errors.New("queue is empty")

// A Queue is a FIFO queue. The zero value is an empty queue.
type Queue[E any] struct {
	elements []E
}

// Push adds e at the end of the queue
func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

// Empty returns true if the queue has no element
func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

// Len returns the number of elements in the queue
func (q *Queue[E]) Len() int {
	return len(q.elements)
}

// Pop removes and returns the first element. It panics if the queue is empty.
func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}
	e := q.elements[0]
	q.elements = q.elements[1:]
	return e
}

// A WorkQueue is a FIFO queue that holds each element at most once: pushing an element that is already
// queued does nothing. The zero value is an empty queue.
type WorkQueue[E comparable] struct {
	q      Queue[E]
	queued map[E]bool
}

// Push adds e at the end of the queue if it is not already queued, and returns true if it was added
func (w *WorkQueue[E]) Push(e E) bool {
	if w.queued == nil {
		w.queued = map[E]bool{}
	}
	if w.queued[e] {
		return false
	}
	w.queued[e] = true
	w.q.Push(e)
	return true
}

// Empty returns true if the queue has no element
func (w *WorkQueue[E]) Empty() bool {
	return w.q.Empty()
}

// Len returns the number of elements in the queue
func (w *WorkQueue[E]) Len() int {
	return w.q.Len()
}

// Pop removes and returns the first element. It panics if the queue is empty.
func (w *WorkQueue[E]) Pop() E {
	e := w.q.Pop()
	delete(w.queued, e)
	return e
}
