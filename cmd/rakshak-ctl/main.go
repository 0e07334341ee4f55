package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"rakshak/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Println("usage: rakshak-ctl [--socket PATH] start|stop|status|say <text>")
		os.Exit(2)
	}

	req := ipc.Request{Cmd: args[0]}
	if req.Cmd == "say" {
		req.Text = strings.Join(args[1:], " ")
	}

	resp, err := ipc.Send(*socket, req)
	if err != nil {
		fmt.Println("rakshak-daemon not running:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Println("error:", resp.Error)
		os.Exit(1)
	}
	if resp.Status != "" {
		fmt.Println("status:", resp.Status)
	}
	if len(resp.Payload) > 0 {
		fmt.Println(string(resp.Payload))
	}
}
