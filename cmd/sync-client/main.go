package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"screenlog/internal/realtime"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP change feed address")
	prefix := flag.String("subject", "", "only print subjects with this prefix, e.g. profile/")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of the summary form")
	flag.Parse()

	for {
		if err := run(*addr, *prefix, *raw); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr, prefix string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev realtime.ChangeEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Subject == "" {
			// welcome line or something else, print as-is
			fmt.Println(string(line))
			continue
		}

		if prefix != "" && !strings.HasPrefix(ev.Subject, prefix) {
			continue
		}

		if raw {
			fmt.Println(string(line))
			continue
		}

		if !ev.Found {
			fmt.Printf("%s  %-40s  (gone)\n", ev.At.Format(time.RFC3339), ev.Subject)
			continue
		}
		fmt.Printf("%s  %-40s  %s\n", ev.At.Format(time.RFC3339), ev.Subject, compact(ev.Doc))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func compact(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}
