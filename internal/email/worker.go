package email

import (
	"context"
	"sync"
	"time"
)

// WorkerConfig holds the tick intervals and identity set the supervisor
// runs against.
type WorkerConfig struct {
	CheckInterval time.Duration
	SendInterval  time.Duration
	Identities    []LocalIdentity
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Minute
	}
	if c.SendInterval <= 0 {
		c.SendInterval = 30 * time.Second
	}
	return c
}

// Worker is the Email Worker supervisor: one check loop per local
// identity plus a single shared send loop, all torn down together when
// ctx is cancelled.
type Worker struct {
	sender  *Sender
	checker *Checker
	cfg     WorkerConfig
	log     Logger

	mu      sync.Mutex
	running map[[32]byte]context.CancelFunc
}

// NewWorker builds a Worker. cfg is normalized with withDefaults.
func NewWorker(sender *Sender, checker *Checker, cfg WorkerConfig, log Logger) *Worker {
	if log == nil {
		log = nopLogger{}
	}
	return &Worker{
		sender:  sender,
		checker: checker,
		cfg:     cfg.withDefaults(),
		log:     log,
		running: make(map[[32]byte]context.CancelFunc),
	}
}

// Run starts the send loop and one check loop per configured identity,
// and blocks until ctx is cancelled. SetIdentities may be called
// concurrently to start or stop per-identity check loops as the local
// identity set changes.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sendLoop(ctx)
	}()

	for _, id := range w.cfg.Identities {
		w.startChecker(ctx, id)
	}

	<-ctx.Done()
	w.mu.Lock()
	for _, cancel := range w.running {
		cancel()
	}
	w.mu.Unlock()
	wg.Wait()
}

// SetIdentities starts a check loop for any newly-added identity and
// stops the loop for any identity no longer present, per spec.md
// §4.7's "supervisor starts/stops per-identity workers when the
// identity list changes".
func (w *Worker) SetIdentities(ctx context.Context, identities []LocalIdentity) {
	want := make(map[[32]byte]LocalIdentity, len(identities))
	for _, id := range identities {
		want[id.Hash()] = id
	}

	w.mu.Lock()
	var toStop [][32]byte
	for hash := range w.running {
		if _, ok := want[hash]; !ok {
			toStop = append(toStop, hash)
		}
	}
	w.mu.Unlock()
	for _, hash := range toStop {
		w.stopChecker(hash)
	}

	for hash, id := range want {
		w.mu.Lock()
		_, exists := w.running[hash]
		w.mu.Unlock()
		if !exists {
			w.startChecker(ctx, id)
		}
	}
}

func (w *Worker) startChecker(ctx context.Context, id LocalIdentity) {
	idCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.running[id.Hash()] = cancel
	w.mu.Unlock()

	go func() {
		w.checkLoop(idCtx, id)
	}()
}

func (w *Worker) stopChecker(hash [32]byte) {
	w.mu.Lock()
	cancel, ok := w.running[hash]
	delete(w.running, hash)
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

func (w *Worker) checkLoop(ctx context.Context, id LocalIdentity) {
	t := time.NewTicker(w.cfg.CheckInterval)
	defer t.Stop()

	w.checker.CheckRound(id)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.checker.CheckRound(id)
		}
	}
}

func (w *Worker) sendLoop(ctx context.Context) {
	t := time.NewTicker(w.cfg.SendInterval)
	defer t.Stop()

	w.sender.SendRound()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.sender.SendRound()
		}
	}
}
