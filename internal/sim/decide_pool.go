package sim

import "sync"

// decideJob is a half-open vehicle index range handed to one worker.
type decideJob struct {
	lo, hi int
	fn     func(i int)
	wg     *sync.WaitGroup
}

// decidePool is a fixed-size goroutine pool that fans the decide phase out
// over disjoint index ranges. The decide phase is a pure function of the
// previous committed state per vehicle, so workers need no locking; each
// writes only its own slots of the decision scratch slice.
type decidePool struct {
	workers int
	queue   chan decideJob
	wg      sync.WaitGroup
}

// newDecidePool starts n workers. n ≤ 1 means all dispatches run inline.
func newDecidePool(n int) *decidePool {
	p := &decidePool{workers: n}
	if n <= 1 {
		return p
	}
	p.queue = make(chan decideJob, n)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.queue {
				for i := j.lo; i < j.hi; i++ {
					j.fn(i)
				}
				j.wg.Done()
			}
		}()
	}
	return p
}

// dispatch runs fn for every index in [0, total) and blocks until all
// workers finish their ranges (the tick barrier).
func (p *decidePool) dispatch(total int, fn func(i int)) {
	if p.workers <= 1 || total < p.workers*2 {
		for i := 0; i < total; i++ {
			fn(i)
		}
		return
	}
	chunk := (total + p.workers - 1) / p.workers
	var wg sync.WaitGroup
	for lo := 0; lo < total; lo += chunk {
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		wg.Add(1)
		p.queue <- decideJob{lo: lo, hi: hi, fn: fn, wg: &wg}
	}
	wg.Wait()
}

// close stops all workers.
func (p *decidePool) close() {
	if p.queue != nil {
		close(p.queue)
		p.wg.Wait()
	}
}
