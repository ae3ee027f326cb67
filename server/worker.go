package server

import (
	"fmt"

	"github.com/niotu/CompilerConstrction-sub000/driver"
)

// request is a unit of work run on the worker goroutine.
type request struct {
	fn   func() *driver.Result
	done chan response
}

type response struct {
	result *driver.Result
	err    error
}

// Worker serializes compilations through a single goroutine. A Validator
// and its Registry belong to one run at a time, so every LSP handler goes
// through the worker.
type Worker struct {
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 16),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func (w *Worker) execute(fn func() *driver.Result) (resp response) {
	defer func() {
		if r := recover(); r != nil {
			resp.err = fmt.Errorf("compiler panic: %v", r)
		}
	}()
	resp.result = fn()
	return resp
}

// Analyze parses and validates text on the worker goroutine.
func (w *Worker) Analyze(text string) (*driver.Result, error) {
	req := request{
		fn:   func() *driver.Result { return driver.Analyze(text, driver.Options{}) },
		done: make(chan response, 1),
	}
	w.requests <- req
	resp := <-req.done
	return resp.result, resp.err
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
