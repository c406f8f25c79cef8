package simulation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/worker"
)

// heartbeat logs the interface counters of a host and schedules itself again
// one interval later.
type heartbeat struct {
	interval timing.SimulationTime
	logger   logrus.FieldLogger
}

func (hb heartbeat) task() event.Callback {
	return event.Callback{
		CallbackKind: event.CallbackHeartbeat,
		Callback:     hb,
	}
}

func (hb heartbeat) Execute(ctx context.Context, h *host.Host) error {
	now, _ := worker.CurrentTime(ctx)

	for _, iface := range h.Interfaces() {
		stats := iface.Stats()
		hb.logger.WithFields(logrus.Fields{
			"host":         h.Name(),
			"interface":    iface.Name(),
			"time":         now.SimulationTime(),
			"packets_sent": stats.PacketsSent,
			"packets_recv": stats.PacketsReceived,
			"bytes_sent":   stats.BytesSent.HumanSize(),
			"bytes_recv":   stats.BytesReceived.HumanSize(),
			"dropped":      stats.PacketsDropped,
		}).Info("heartbeat")
	}

	worker.ScheduleTask(ctx, hb.task(), h.ID(), hb.interval)

	return nil
}
