// Package workerpool runs a fixed number of goroutines pulling tasks off a
// shared channel, supervised by a tomb.Tomb so the whole pool tears down
// cleanly when any worker returns an error or the tomb is killed.
package workerpool

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 256

// WorkFunc processes one task. Returning an error kills the owning tomb,
// which in turn stops every other worker in the pool.
type WorkFunc func(t *tomb.Tomb, task any) error

type Pool struct {
	n     int
	tasks chan any
}

func New(size int) *Pool {
	return &Pool{tasks: make(chan any, taskChanSize), n: size}
}

// Submit enqueues a task, blocking if every worker is busy and the channel
// is full.
func (p *Pool) Submit(task any) {
	p.tasks <- task
}

// Run starts n workers under t and blocks until t is dying, replacing any
// worker that exits (whether from an error or just finishing one task) so
// the pool always has n goroutines in flight.
func (p *Pool) Run(t *tomb.Tomb, work WorkFunc) {
	log.Info().Int("workers", p.n).Msg("workerpool starting")
	var active atomic.Int32
	for {
		select {
		case <-t.Dying():
			return
		default:
			if int(active.Load()) < p.n {
				active.Add(1)
				t.Go(func() error {
					err := p.runOne(t, work)
					active.Add(-1)
					return err
				})
			}
		}
	}
}

func (p *Pool) runOne(t *tomb.Tomb, work WorkFunc) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-p.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("workerpool task failed, worker exiting")
			return err
		}
	}
	return nil
}
