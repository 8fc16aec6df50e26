// Copyright 2024 The libdill-go Authors
// This file is part of the libdill-go library.
//
// The libdill-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The libdill-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the libdill-go library. If not, see <http://www.gnu.org/licenses/>.

// Command dillbench drives a configurable number of concurrent senders
// and receivers over one dill.Endpoint pair and reports rendezvous
// throughput, the way a small geth-family command would: urfave/cli
// flags and github.com/ethereum/go-ethereum/log for output.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/prque"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/yonggeshidai/libdill/dill"
)

func main() {
	app := &cli.App{
		Name:  "dillbench",
		Usage: "drive concurrent senders and receivers over a dill rendezvous channel",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "senders", Value: 4, Usage: "number of concurrent sending tasks"},
			&cli.IntFlag{Name: "receivers", Value: 4, Usage: "number of concurrent receiving tasks"},
			&cli.IntFlag{Name: "messages", Value: 1000, Usage: "messages sent per sending task"},
			&cli.IntFlag{Name: "size", Value: 64, Usage: "payload size in bytes"},
			&cli.DurationFlag{Name: "deadline", Value: time.Second, Usage: "per-operation deadline; 0 disables blocking"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every matched rendezvous at trace level"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("dillbench failed", "err", err)
	}
}

func run(c *cli.Context) error {
	if c.Bool("verbose") {
		log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))
	}

	senders := c.Int("senders")
	receivers := c.Int("receivers")
	messages := c.Int("messages")
	size := c.Int("size")
	deadline := c.Duration("deadline")

	sendEnd, recvEnd, err := dill.NewPair(context.Background())
	if err != nil {
		return fmt.Errorf("create pair: %w", err)
	}

	// deadlines records each send's expiry when it starts, soonest first,
	// the same role the downloader's `timeouts` prque plays for in-flight
	// peer requests. Receives are not recorded, and an entry is dropped
	// only once its expiry has passed, not when its send completes, so
	// the ticker's "outstanding" count is the number of sends started
	// within the last deadline window.
	var mu sync.Mutex
	deadlines := prque.New[int64, string](func(string, int) {})

	var sent, received, timedOut int64

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < senders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, size)
			for m := 0; m < messages; m++ {
				tag := fmt.Sprintf("sender-%d/%d", i, m)
				mu.Lock()
				deadlines.Push(tag, -time.Now().Add(deadline).UnixNano())
				mu.Unlock()

				err := sendEnd.Send(context.Background(), buf, deadline)
				switch err {
				case nil:
					atomic.AddInt64(&sent, 1)
					if c.Bool("verbose") {
						log.Trace("dillbench: sent", "tag", tag)
					}
				case dill.ErrTimeout:
					atomic.AddInt64(&timedOut, 1)
				case dill.ErrPeerClosed:
					return
				default:
					log.Warn("dillbench: send failed", "tag", tag, "err", err)
				}
			}
		}()
	}

	for i := 0; i < receivers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, size)
			for {
				n, err := recvEnd.Recv(context.Background(), buf, deadline)
				switch err {
				case nil:
					atomic.AddInt64(&received, 1)
					if c.Bool("verbose") {
						log.Trace("dillbench: received", "receiver", i, "bytes", n)
					}
				case dill.ErrTimeout:
					atomic.AddInt64(&timedOut, 1)
					if atomic.LoadInt64(&sent) >= int64(senders*messages) {
						return
					}
				case dill.ErrPeerClosed:
					return
				default:
					log.Warn("dillbench: recv failed", "receiver", i, "err", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			log.Info("dillbench: finished",
				"sent", atomic.LoadInt64(&sent),
				"received", atomic.LoadInt64(&received),
				"timed_out", atomic.LoadInt64(&timedOut),
				"elapsed", time.Since(start))
			return nil
		case <-ticker.C:
			mu.Lock()
			now := -time.Now().UnixNano()
			for !deadlines.Empty() {
				_, prio := deadlines.Peek()
				if prio < now { // priority is -expiry; still in the future
					break
				}
				deadlines.Pop()
			}
			size := deadlines.Size()
			var soonest string
			if size > 0 {
				soonest, _ = deadlines.Peek()
			}
			mu.Unlock()
			log.Info("dillbench: progress",
				"sent", atomic.LoadInt64(&sent),
				"received", atomic.LoadInt64(&received),
				"outstanding", size,
				"soonest_deadline", soonest)
		}
	}
}
