package gamepad

import (
	"context"
	"sync"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

func (e *Engine) runSync(ctx context.Context, s *session, code uint16) {
	e.setState(s, StateBinding)
	conn, err := s.pipe.Bind(ctx, pipe.Sync(code))
	if err != nil {
		e.fail(ctx, s, err)
		return
	}

	res := conn.AwaitSync(ctx)
	if res.Status != pipe.StatusSuccess {
		_ = conn.Close()
		e.fail(ctx, s, res.Status)
		return
	}

	s.logger.Info("sync succeeded", "bssid", res.Credentials.BSSIDString())
	payload, _ := res.Credentials.MarshalBinary()
	e.push(s, event.KindSync, payload)

	<-ctx.Done()
	e.setState(s, StateInterrupted)
	_ = conn.Close()
	e.setState(s, StateClosed)
}

func (e *Engine) runConnect(ctx context.Context, s *session, creds pipe.Credentials) {
	var conn *pipe.Conn
	if s.address.NeedsBridge() {
		e.setState(s, StateBinding)
		c, err := s.pipe.Bind(ctx, pipe.Connect(creds))
		if err == nil && s.pipe.Config().WaitConnected {
			if err = c.AwaitConnected(ctx); err != nil {
				c.Unbind()
				_ = c.Close()
			}
		}
		if err != nil {
			e.fail(ctx, s, err)
			return
		}
		conn = c
	}

	e.setState(s, StateChannelsOpening)
	set, err := s.manager.OpenAll(ctx)
	if err != nil {
		// OpenAll already closed the channels it had opened.
		if conn != nil {
			conn.Unbind()
			_ = conn.Close()
		}
		e.fail(ctx, s, err)
		return
	}

	e.setState(s, StateListening)
	e.msgSock.Store(set.Get(channel.Message))
	e.vibrating.Store(false)

	var wg sync.WaitGroup
	for _, run := range []func(){
		func() { e.receiveLoop(ctx, s, set.Get(channel.Video), e.videoHandler(s)) },
		func() { e.receiveLoop(ctx, s, set.Get(channel.Audio), e.audioHandler(s)) },
		func() { e.receiveLoop(ctx, s, set.Get(channel.Message), e.messageHandler(s)) },
		func() { e.receiveLoop(ctx, s, set.Get(channel.Command), e.commandHandler(s, set.Get(channel.Command))) },
		func() { e.inputLoop(ctx, set.Get(channel.Input)) },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run()
		}()
	}
	s.logger.Info("listening on gamepad channels")

	<-ctx.Done()
	e.setState(s, StateInterrupted)
	wg.Wait()

	e.msgSock.Store(nil)
	if conn != nil {
		conn.Unbind()
	}
	set.Close()
	if conn != nil {
		_ = conn.Close()
	}
	e.setState(s, StateClosed)
}
