package runner

import "github.com/torosent/apexload/internal/metrics"

// Observer receives lifecycle events from a Runner. Events are delivered
// one at a time, in the order they occur, and no Runner lock is held during
// a callback. A callback may call Stop; it must not call Start on the
// emitting Runner.
type Observer interface {
	OnStatus(status Status)
	OnProgress(completed, total int)
	OnResult(result metrics.RequestResult, snapshot metrics.Stats)
	OnComplete(stats metrics.Stats)
	OnError(err error)
}

// ObserverFuncs adapts optional callbacks to the Observer interface. Nil
// fields are ignored.
type ObserverFuncs struct {
	Status   func(Status)
	Progress func(completed, total int)
	Result   func(metrics.RequestResult, metrics.Stats)
	Complete func(metrics.Stats)
	Error    func(error)
}

func (f ObserverFuncs) OnStatus(status Status) {
	if f.Status != nil {
		f.Status(status)
	}
}

func (f ObserverFuncs) OnProgress(completed, total int) {
	if f.Progress != nil {
		f.Progress(completed, total)
	}
}

func (f ObserverFuncs) OnResult(result metrics.RequestResult, snapshot metrics.Stats) {
	if f.Result != nil {
		f.Result(result, snapshot)
	}
}

func (f ObserverFuncs) OnComplete(stats metrics.Stats) {
	if f.Complete != nil {
		f.Complete(stats)
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}
