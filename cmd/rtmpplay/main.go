package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rtmpgo/rtmp-client/flvsink"
	"github.com/rtmpgo/rtmp-client/rtmp"
)

func main() {
	url := flag.String("url", "", "rtmp://host[:port]/app/playpath to play")
	out := flag.String("out", "out.flv", "output FLV file path")
	envFile := flag.String("env", "", "optional .env file with client configuration")
	seek := flag.Float64("seek", 0, "seek time in milliseconds")
	flag.Parse()

	if *envFile != "" {
		rtmp.LoadDotEnv(*envFile)
	}

	if *url == "" {
		fmt.Fprintln(os.Stderr, "rtmpplay: -url is required")
		os.Exit(1)
	}

	link, err := rtmp.ParseURL(*url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rtmpplay:", err)
		os.Exit(1)
	}

	sink, err := flvsink.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rtmpplay:", err)
		os.Exit(1)
	}
	defer sink.Close()

	session := rtmp.NewSession()
	session.Setup(link)

	if err := session.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, "rtmpplay: connect failed:", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := session.ConnectStream(*seek, 0); err != nil {
		fmt.Fprintln(os.Stderr, "rtmpplay: connect_stream failed:", err)
		os.Exit(1)
	}

	var pkt rtmp.MediaPacket
	for {
		result, err := session.NextMediaPacket(&pkt)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rtmpplay: read failed:", err)
			return
		}
		if result == rtmp.RouteStop {
			return
		}
		if result != rtmp.RouteMedia {
			continue
		}
		if err := sink.WriteMedia(pkt); err != nil {
			fmt.Fprintln(os.Stderr, "rtmpplay: write failed:", err)
			return
		}
	}
}
