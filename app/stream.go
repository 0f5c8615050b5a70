package app

import (
	"context"

	"github.com/pthm-cable/plume/stream"
)

func (a *App) startStream(addr string) {
	a.server = stream.NewServer(a.log, commandBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.serveDone = make(chan error, 1)
	go func() {
		a.serveDone <- a.server.ListenAndServe(ctx, addr)
	}()
}

func (a *App) stopStream() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	if err := <-a.serveDone; err != nil {
		a.log.Error("stream server stopped", "error", err)
	}
	a.cancel = nil
}

// drainCommands applies every pending remote command before the frame runs.
func (a *App) drainCommands() {
	if a.server == nil {
		return
	}
	for {
		select {
		case cmd := <-a.server.Commands():
			if err := cmd.Apply(a.solver); err != nil {
				a.log.Warn("stream command failed", "type", cmd.Type, "error", err)
			}
		default:
			return
		}
	}
}

// broadcast sends a dye frame once per stream interval while clients are
// connected.
func (a *App) broadcast(dt float32) {
	if a.server == nil || a.server.Clients() == 0 {
		return
	}
	cfg := a.solver.Config()
	a.streamAcc += dt
	if a.streamAcc < float32(cfg.Stream.Interval) {
		return
	}
	a.streamAcc = 0

	px, w, h := stream.EncodeDye(a.pixels, a.solver.Dye(), cfg.Stream.Downsample)
	a.pixels = px
	a.server.Broadcast(stream.Frame{
		Frame:  a.solver.FrameCount(),
		Width:  w,
		Height: h,
		Pixels: px,
	})
}
