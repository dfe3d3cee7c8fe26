// Command redistill-bench drives a synthetic SET/GET workload against a
// running redistill server and reports throughput and hit rate. Each worker
// keeps one request in flight: it writes a command, flushes, and reads the
// reply before sending the next.
// Adapted from the teacher's cache benchmark: same flag-driven Zipfian
// workload generator, now speaking the wire protocol over a real TCP
// connection instead of calling an in-process cache directly.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:6379", "server address")
		workers  = flag.Int("workers", 8, "number of connections/goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		keys     = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS    = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV    = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload  = flag.Int("preload", 1000, "keys to preload before measuring")
	)
	flag.Parse()

	preloadConn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	w := bufio.NewWriter(preloadConn)
	r := bufio.NewReader(preloadConn)
	for i := 0; i < *preload; i++ {
		sendSet(w, "k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
		_ = w.Flush()
		readReply(r)
	}
	_ = preloadConn.Close()

	var reads, writes, hits, misses, total uint64
	stop := make(chan struct{})
	time.AfterFunc(*duration, func() { close(stop) })

	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal, zipfVVal := *zipfS, *zipfV

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(*workers)
	for id := 0; id < *workers; id++ {
		go func(id int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", *addr)
			if err != nil {
				log.Printf("worker %d: dial failed: %v", id, err)
				return
			}
			defer conn.Close()
			writer := bufio.NewWriter(conn)
			reader := bufio.NewReader(conn)

			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)
			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-stop:
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					sendGet(writer, keyByZipf())
					_ = writer.Flush()
					if isNullBulk(readReply(reader)) {
						atomic.AddUint64(&misses, 1)
					} else {
						atomic.AddUint64(&hits, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					sendSet(writer, keyByZipf(), "v"+strconv.Itoa(localR.Int()))
					_ = writer.Flush()
					readReply(reader)
				}
			}
		}(id)
	}
	wg.Wait()
	elapsed := time.Since(start)

	ops := atomic.LoadUint64(&total)
	readsN, writesN := atomic.LoadUint64(&reads), atomic.LoadUint64(&writes)
	hitsN, missesN := atomic.LoadUint64(&hits), atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("addr=%s workers=%d keys=%d dur=%v seed=%d\n", *addr, *workers, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n", ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
}

func sendSet(w *bufio.Writer, key, value string) {
	fmt.Fprintf(w, "*3\r\n$3\r\nSET\r\n$%d\r\n%s\r\n$%d\r\n%s\r\n", len(key), key, len(value), value)
}

func sendGet(w *bufio.Writer, key string) {
	fmt.Fprintf(w, "*2\r\n$3\r\nGET\r\n$%d\r\n%s\r\n", len(key), key)
}

// readReply reads exactly one reply line plus, for bulk replies, its body.
// It is intentionally minimal: it understands only the subset the bench
// tool itself sends (+simple, $bulk/null-bulk), which is all SET/GET ever
// produce.
func readReply(r *bufio.Reader) []byte {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil
	}
	if len(line) == 0 {
		return nil
	}
	switch line[0] {
	case '+':
		return []byte(line)
	case '$':
		n, err := strconv.Atoi(trimCRLF(line[1:]))
		if err != nil {
			return []byte(line)
		}
		if n < 0 {
			return nil // null bulk: GET miss
		}
		body := make([]byte, n+2)
		_, _ = io.ReadFull(r, body)
		return body[:n]
	default:
		return []byte(line)
	}
}

func isNullBulk(b []byte) bool { return b == nil }

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
