// Package workerpool is the teacher's internal/worker.go WorkerPool, lifted
// out of the "server" package it was private to and given the AddTask method
// its only two call sites (internal/net/server.go's accept loop) required
// but which was never actually defined anywhere in that repo — the teacher's
// WorkerPool was dead code, referenced by a server variant
// (internal/net/server.go) that itself imported a "fenrir/internal/utils"
// package absent from the module entirely. Adapted here into a real,
// compiling, exercised pool backing wire.Server's connection handling.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// WorkerFunction processes one task taken from the pool's queue; wire.Server
// enqueues net.Conn values as tasks.
type WorkerFunction = func(t *tomb.Tomb, task any) error

type Pool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

func New(size int) *Pool {
	return &Pool{
		tasks: make(chan any, defaultTaskChanSize),
		n:     size,
	}
}

// AddTask enqueues one unit of work, blocking if every worker is busy and
// the queue is full (bounded backpressure, same shape as spec §5's channel
// discipline elsewhere in this repo).
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup spins up n workers under t, each repeatedly pulling a task and
// invoking work, restarting itself when a task completes without error so
// the pool stays full until t starts dying.
func (p *Pool) Setup(t *tomb.Tomb, work WorkerFunction) {
	p.work = work
	log.Info().Int("workers", p.n).Msg("starting worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error { return p.loop(t) })
	}
}

func (p *Pool) loop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
