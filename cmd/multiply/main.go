package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/env"
	fx "github.com/robotalks/bytelink/pkg/framework"
	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/link/loopback"
)

//go-build: CGO_ENABLED=0

var role = "both"

func init() {
	env.SetupFlags()
	flag.StringVar(&role, "role", role, "client, server, or both on a loopback pair.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [A B]\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func operands() (a, b int32) {
	a, b = 6, 7
	if flag.NArg() == 0 {
		return
	}
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	x, err := strconv.ParseInt(flag.Arg(0), 0, 32)
	if err != nil {
		glog.Exitf("invalid operand %q: %v", flag.Arg(0), err)
	}
	y, err := strconv.ParseInt(flag.Arg(1), 0, 32)
	if err != nil {
		glog.Exitf("invalid operand %q: %v", flag.Arg(1), err)
	}
	return int32(x), int32(y)
}

func call(t link.Transport, a, b int32) error {
	glog.Info("client calling multiply")
	r, err := NewClient(t).Multiply(a, b)
	if err != nil {
		return err
	}
	fmt.Printf("multiply(%d, %d) = %d\n", a, b, r)
	return nil
}

// runBoth serves on ep and calls from its peer in the same process.
func runBoth(ep *loopback.Endpoint, a, b int32) error {
	peer := ep.Peer()
	if err := peer.Init(); err != nil {
		return err
	}
	runner := fx.NewRunner()
	runner.Go(&Server{Link: ep})
	err := call(peer, a, b)
	runner.Stop()
	if werr := runner.Wait(); werr != nil {
		glog.Errorf("multiply server: %v", werr)
		if err == nil {
			err = werr
		}
	}
	return err
}

func main() {
	flag.Parse()
	a, b := operands()
	conf := env.Default()

	switch role {
	case "server":
		t := conf.MustNewTransport()
		runner := fx.NewRunner().HandleSignals()
		if err := runner.Go(&Server{Link: t}).Wait(); err != nil {
			glog.Exit(err)
		}
	case "client":
		t := conf.MustNewTransport()
		defer t.Close()
		if err := call(t, a, b); err != nil {
			glog.Exit(err)
		}
	case "both":
		t := conf.MustNewTransport()
		ep, ok := t.(*loopback.Endpoint)
		if !ok {
			glog.Exitf("role both requires a loopback link, got %s", conf.URL)
		}
		if err := runBoth(ep, a, b); err != nil {
			glog.Exit(err)
		}
	default:
		glog.Exitf("unknown role %q", role)
	}
	glog.Flush()
}
