// Package main is the entry point for the s2800ctl API server
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/s28tools/s2800ctl/pkg/api"
	"github.com/s28tools/s2800ctl/pkg/config"
	"github.com/s28tools/s2800ctl/pkg/sampler"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	opts := []sampler.Option{
		sampler.WithPorts(cfg.InPort, cfg.OutPort),
		sampler.WithChannel(byte(cfg.ExclusiveChannel)),
		sampler.WithSDSChannel(byte(cfg.SDSChannel)),
	}
	if cfg.ReplyTimeoutMillis > 0 {
		opts = append(opts, sampler.WithReplyTimeout(time.Duration(cfg.ReplyTimeoutMillis)*time.Millisecond))
	}
	session := sampler.NewSession(opts...)
	defer func() { _ = session.Close() }()

	fmt.Printf("Starting s2800ctl API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, session); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
