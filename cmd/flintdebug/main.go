// Command flintdebug wires a debug Session to a transport and, optionally,
// a Redis event mirror and a wire trace file.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/eventbus"
	"github.com/FlintVN/FlintDebug/pkg/redis"
	"github.com/FlintVN/FlintDebug/pkg/session"
	"github.com/FlintVN/FlintDebug/pkg/trace"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/transport/serialtransport"
	"github.com/FlintVN/FlintDebug/pkg/transport/tcptransport"
)

var (
	transportKind = flag.String("transport", "tcp", "Transport to use: tcp or serial")
	addr          = flag.String("addr", "localhost:4711", "Debug agent address (tcp transport)")
	device        = flag.String("device", "/dev/ttyUSB0", "Serial device path (serial transport)")
	baud          = flag.Int("baud", 115200, "Serial baud rate (serial transport)")

	pollStatusInterval  = flag.Duration("poll-status-interval", 100*time.Millisecond, "READ_STATUS poll interval")
	pollConsoleInterval = flag.Duration("poll-console-interval", 300*time.Millisecond, "READ_CONSOLE poll interval")

	eventsRedisAddr = flag.String("events-redis-addr", "", "Redis address to mirror session events to; empty disables the mirror")
	redisPass       = flag.String("redis-pass", "", "Redis password")
	redisDB         = flag.Int("redis-db", 0, "Redis database number")
	sessionID       = flag.String("session-id", "default", "Session ID used to scope the Redis event channels")

	traceFile = flag.String("trace-file", "", "File to record the raw wire traffic to as CBOR; empty disables tracing")
)

func buildTransport() transport.Transport {
	switch *transportKind {
	case "tcp":
		return tcptransport.New(*addr, 5*time.Second)
	case "serial":
		return serialtransport.New(*device, *baud)
	default:
		log.Fatalf("Unknown transport %q: must be tcp or serial", *transportKind)
		return nil
	}
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting FlintDebug session core")
	log.Printf("Transport: %s", *transportKind)

	t := buildTransport()

	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			log.Fatalf("Failed to create trace file: %v", err)
		}
		defer f.Close()
		t = trace.NewTracingTransport(t, trace.NewRecorder(f))
		log.Printf("Recording wire trace to %s", *traceFile)
	}

	// class-file metadata resolution is an external collaborator the core
	// only consumes through the ClassLoader interface; this module carries
	// no real implementation, so a cached fake stands in here until a real
	// one is wired in by the embedding application.
	cl := classloader.NewCachingClassLoader(classloader.NewFakeClassLoader())

	s := session.NewWithPollIntervals(t, cl, *pollStatusInterval, *pollConsoleInterval)

	s.OnStop(func(ev session.StopEvent) {
		if ev.Reason != "" {
			log.Printf("target stopped: %s", ev.Reason)
		} else {
			log.Printf("target stopped")
		}
	})
	s.OnStdout(func(text string) { log.Printf("stdout: %s", text) })
	s.OnError(func(err error) { log.Printf("transport error: %v", err) })
	s.OnClose(func() { log.Printf("transport closed") })

	if *eventsRedisAddr != "" {
		client, err := redis.New(*eventsRedisAddr, *redisPass, *redisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		eventbus.New(client, *sessionID).Attach(s)
		log.Printf("Mirroring session events to Redis at %s (session %s)", *eventsRedisAddr, *sessionID)
	}

	if err := s.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer s.Disconnect()
	log.Printf("Connected")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Printf("Shutting down...")
}
