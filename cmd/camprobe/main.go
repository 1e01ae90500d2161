// Command camprobe checks that a camera's HTTP snapshot endpoint is
// reachable before an operator registers its rtsp:// URL with the
// control plane.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MaximushkaBed/camera-ingest-module/internal/httpclient"
)

func main() {
	url := flag.String("url", "", "HTTP snapshot URL to probe")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: camprobe -url <snapshot-url>")
		os.Exit(2)
	}

	c := httpclient.New()
	body, err := c.ProbeSnapshot(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ok: received %d bytes\n", len(body))
}
