package chat

import (
	"time"

	"github.com/samber/lo"
)

// Delivery is the outcome of writing one line to one session.
type Delivery struct {
	Session *Session
	Err     error
}

func (d Delivery) Delivered() bool { return d.Err == nil }

// Report collects the deliveries of a single broadcast, in snapshot order.
type Report struct {
	Line       string
	Deliveries []Delivery
}

func (r Report) Failed() []Delivery {
	return lo.Filter(r.Deliveries, func(d Delivery, _ int) bool {
		return !d.Delivered()
	})
}

func (r Report) DeliveredCount() int {
	return lo.CountBy(r.Deliveries, Delivery.Delivered)
}

// Dispatcher fans lines out to every registered session.
type Dispatcher struct {
	reg *Registry
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Broadcast writes line to every session in a registry snapshot. A failed
// write is recorded and skipped; the dead session is reaped by its own
// handler once its read loop fails.
func (d *Dispatcher) Broadcast(line string) Report {
	start := time.Now()
	defer func() {
		BroadcastDuration.Observe(time.Since(start).Seconds())
	}()

	snapshot := d.reg.Snapshot()
	report := Report{
		Line:       line,
		Deliveries: make([]Delivery, 0, len(snapshot)),
	}
	for _, s := range snapshot {
		err := s.Send(line)
		if err != nil {
			DeliveriesTotal.WithLabelValues(resultFailed).Inc()
		} else {
			DeliveriesTotal.WithLabelValues(resultDelivered).Inc()
		}
		report.Deliveries = append(report.Deliveries, Delivery{Session: s, Err: err})
	}
	return report
}
