// Command ipcctl is an operator tool for kerneld: it can probe a running
// instance's gRPC health endpoint, or run a self-contained demo that
// exercises message pipe creation, a write, and a read against a throwaway
// in-process Core, to sanity-check that the kernel package still behaves as
// expected without standing up a whole deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/core"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcopts"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/kernelrpc"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "health":
		runHealth(os.Args[2:])
	case "demo":
		runDemo()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ipcctl <health|demo> [flags]")
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "localhost:9001", "kerneld gRPC address")
	service := fs.String("service", "", "health service name (empty means overall server)")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")
	fs.Parse(args)

	client, err := kernelrpc.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, err := client.Probe(ctx, *service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: unhealthy (%s): %v\n", *addr, status, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", *addr, status)
}

func runDemo() {
	k := core.New(nil)

	h0, h1, res := k.CreateMessagePipe(core.CreateMessagePipeOptions{Header: ipcopts.Header{SpecifiedBytes: 8}})
	mustOK("CreateMessagePipe", res)

	res = k.WriteMessage(h0, []byte("hello from ipcctl"), nil, 0)
	mustOK("WriteMessage", res)

	rd, res := k.ReadMessage(h1, 4096, 16, 0)
	mustOK("ReadMessage", res)

	fmt.Printf("round-trip ok: %q\n", string(rd.Bytes))

	mustOK("Close(h0)", k.Close(h0))
	mustOK("Close(h1)", k.Close(h1))
}

func mustOK(step string, res ipcresult.Result) {
	if res != ipcresult.OK {
		fmt.Fprintf(os.Stderr, "%s: %s\n", step, res)
		os.Exit(1)
	}
}
