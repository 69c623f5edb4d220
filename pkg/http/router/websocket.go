package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gobwas/ws"
	"github.com/lintang-b-s/drivesim/pkg/concurrent"
	"github.com/lintang-b-s/drivesim/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/drivesim/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

func (api *API) handleWebsocket(ctx context.Context, config http_server.Config,
	journeyService controllers.JourneyService, errChan chan error,
) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		errChan <- err
		return
	}
	api.log.Info(fmt.Sprintf("state stream websocket API run on port %d", config.WebsocketPort))

	acceptDesc := netpoll.Must(netpoll.HandleListener(
		ln, netpoll.EventRead|netpoll.EventOneShot,
	))

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		errChan <- err
		return
	}

	api.pool = concurrent.NewPool(128, 16, 8)

	api.hub = controllers.NewHub(api.pool, journeyService, api.log)

	go api.hub.Run(ctx, config.StreamInterval)

	// accept is a channel to signal about next incoming connection Accept()
	// results.
	accept := make(chan error, 1)

	err = api.poller.Start(acceptDesc, func(ev netpoll.Event) {
		// the listener is one-shot: re-arm it once this connection is accepted
		defer api.poller.Resume(acceptDesc)
		err := api.pool.ScheduleTimeout(time.Millisecond, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err != nil {
			// pool saturated or a temporary accept failure: cool down before the next one
			var ne net.Error
			if errors.Is(err, concurrent.ErrScheduleTimeout) || (errors.As(err, &ne) && ne.Timeout()) {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			api.log.Error("accept error", zap.Error(err))
		}
	})
	if err != nil {
		ln.Close()
		errChan <- err
		return
	}

	<-ctx.Done()

	api.poller.Stop(acceptDesc)
	ln.Close()

	api.hub.RemoveAllUser()

	api.pool.Close()

	api.log.Info("websocket server stopped")
}

/*
handle upgrades conn and subscribes it to the state stream.
use epoll api to reduce memory stack, ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
*/
func (api *API) handle(conn net.Conn) {
	codec := controllers.CodecJSON
	upgrader := ws.Upgrader{
		OnRequest: func(uri []byte) error {
			u, err := url.ParseRequestURI(string(uri))
			if err != nil {
				return ws.RejectConnectionError(ws.RejectionStatus(400))
			}
			c, ok := controllers.ParseCodec(u.Query().Get("codec"))
			if !ok {
				return ws.RejectConnectionError(
					ws.RejectionStatus(400),
					ws.RejectionReason(fmt.Sprintf("unknown codec %q", u.Query().Get("codec"))),
				)
			}
			codec = c
			return nil
		},
	}

	hs, err := upgrader.Upgrade(conn)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connnection name ", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connnection name ", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	desc := netpoll.Must(netpoll.HandleRead(conn))
	user := api.hub.Register(conn, codec, func() {
		api.poller.Stop(desc)
	})

	api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			// peer closed its end of the connection
			api.log.Info("user disconnected from websocket server")
			api.hub.Drop(user)
			return
		}

		api.pool.Schedule(func() {
			if err := user.Receive(); err != nil {
				api.log.Debug("websocket read error", zap.Error(err))
				api.hub.Drop(user)
			}
		})
	})
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
