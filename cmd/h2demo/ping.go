package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/vh2proto/engine/h2"
	"github.com/vh2proto/engine/internal/h2log"
)

func pingCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to an engine server and measure one PING round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8443", "server address")
	return cmd
}

func runPing(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := h2log.New("h2demo-ping")
	c := h2.NewConnection(h2.RoleClient, conn, h2.DefaultValues(), log)
	if err := c.Handshake(); err != nil {
		return err
	}
	go c.Serve()
	defer c.Close()

	start := time.Now()
	if err := <-c.Ping([8]byte{}, true); err != nil {
		return err
	}
	fmt.Printf("pong in %s\n", time.Since(start))
	return nil
}
